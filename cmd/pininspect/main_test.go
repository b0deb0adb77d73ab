package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PinVault/internal/hashengine"
	"github.com/Hussein-Mazeh/PinVault/internal/legacy/legacytest"
	"github.com/Hussein-Mazeh/PinVault/krypto"
	"github.com/Hussein-Mazeh/PinVault/store"
)

func TestInspect(t *testing.T) {
	v := store.NewMemory()

	var out bytes.Buffer
	require.NoError(t, inspect(&out, v))
	assert.Equal(t, "no record stored\n", out.String())

	require.NoError(t, v.WriteAll(legacytest.Bytes(t, "1234")))
	out.Reset()
	require.NoError(t, inspect(&out, v))
	assert.Contains(t, out.String(), "format: legacy")
	assert.Contains(t, out.String(), "iterations=1000")

	engine, err := hashengine.New(krypto.Argon2Params{MemoryKiB: 64, Time: 1, Parallelism: 1, KeyLen: 32})
	require.NoError(t, err)
	rec, err := engine.Hash([]byte("1234"), bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)
	require.NoError(t, v.WriteAll(rec))
	out.Reset()
	require.NoError(t, inspect(&out, v))
	assert.Contains(t, out.String(), "format: current (params version 1)")
	assert.Contains(t, out.String(), "m=64KiB t=1 p=1 salt=16B hash=32B")

	require.NoError(t, v.WriteAll([]byte{0xA2, 0x09}))
	out.Reset()
	require.NoError(t, inspect(&out, v))
	assert.Contains(t, out.String(), "format: unreadable")
}
