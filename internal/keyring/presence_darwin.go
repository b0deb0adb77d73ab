//go:build darwin

package keyring

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework LocalAuthentication -framework Foundation

#import <LocalAuthentication/LocalAuthentication.h>
#import <Foundation/Foundation.h>
#import <dispatch/dispatch.h>
#include <stdlib.h>

// Result codes are decoded by presenceError.
static int pinvault_owner_auth(const char *cReason, int64_t timeoutSec) {
	@autoreleasepool {
		NSString *reason = [[NSString alloc] initWithUTF8String:cReason];
		LAContext *context = [[LAContext alloc] init];
		if (!reason || !context) {
			return -100;
		}

		if (![context canEvaluatePolicy:LAPolicyDeviceOwnerAuthentication error:nil]) {
			return -101;
		}

		dispatch_semaphore_t done = dispatch_semaphore_create(0);
		__block BOOL ok = NO;
		__block NSInteger errCode = 0;
		[context evaluatePolicy:LAPolicyDeviceOwnerAuthentication
		        localizedReason:reason
		                  reply:^(BOOL evaluated, NSError * _Nullable error) {
		                      ok = evaluated;
		                      errCode = error ? [error code] : 0;
		                      dispatch_semaphore_signal(done);
		                  }];

		long waited = dispatch_semaphore_wait(done,
			dispatch_time(DISPATCH_TIME_NOW, timeoutSec * (int64_t)NSEC_PER_SEC));
		[context invalidate];
		if (waited != 0) {
			return -103;
		}
		if (ok) {
			return 0;
		}
		return errCode != 0 ? (int)errCode : -104;
	}
}
*/
import "C"
import (
	"strings"
	"unsafe"
)

const defaultReason = "Authenticate to unlock the PIN vault"

// Authenticate asks the device owner to confirm presence before a vault key
// is released.
//
// It evaluates LAPolicyDeviceOwnerAuthentication rather than the
// biometrics-only policy: Macs without Touch ID, clamshell mode and
// biometry lockout all fall back to the login password instead of locking
// the user out of their PIN.
func Authenticate(reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = defaultReason
	}
	cReason := C.CString(reason)
	defer C.free(unsafe.Pointer(cReason))

	code := C.pinvault_owner_auth(cReason, C.int64_t(PresenceTimeout.Seconds()))
	return presenceError(int(code))
}
