package keyvault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMasterKey() []byte {
	return []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
		0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
	}
}

func TestDeriveBeforeLoadFails(t *testing.T) {
	v := New()
	_, _, err := v.Derive(Salt{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestLoadRejectsWrongLength(t *testing.T) {
	v := New()
	err := v.LoadFromBytes([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidMasterKey)
}

func TestMintThenDeriveIsDeterministic(t *testing.T) {
	v := New()
	require.NoError(t, v.LoadFromBytes(testMasterKey()))

	addr, priv, salt, err := v.Mint()
	require.NoError(t, err)

	addr2, priv2, err := v.Derive(salt)
	require.NoError(t, err)

	assert.Equal(t, addr, addr2)
	assert.Equal(t, priv.D, priv2.D)
}

func TestDeriveIsAFunctionOfMasterKeyAndSalt(t *testing.T) {
	v1 := New()
	v2 := New()
	require.NoError(t, v1.LoadFromBytes(testMasterKey()))
	require.NoError(t, v2.LoadFromBytes(testMasterKey()))

	var salt Salt
	salt[0] = 0xAB

	addr1, _, err := v1.Derive(salt)
	require.NoError(t, err)
	addr2, _, err := v2.Derive(salt)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2)
}

func TestDifferentSaltsYieldDifferentAddresses(t *testing.T) {
	v := New()
	require.NoError(t, v.LoadFromBytes(testMasterKey()))

	var saltA, saltB Salt
	saltA[0] = 1
	saltB[0] = 2

	addrA, _, err := v.Derive(saltA)
	require.NoError(t, err)
	addrB, _, err := v.Derive(saltB)
	require.NoError(t, err)

	assert.NotEqual(t, addrA, addrB)
}
