// Package keyvault implements the deterministic vault key derivation of
// spec.md §4.1 (C1): the store only ever holds salts, never keys, because
// any vault's private key can be recomputed on demand from the one
// server master key.
package keyvault

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const MasterKeyLen = 32

var (
	// ErrNotInitialized is returned by Derive/Mint before Load succeeds.
	ErrNotInitialized = errors.New("keyvault: not initialized")

	// ErrInvalidMasterKey is a ConfigError: the key file content is not
	// exactly 32 bytes once hex-decoded.
	ErrInvalidMasterKey = errors.New("keyvault: master key must be exactly 32 bytes, hex-encoded")
)

// Salt is the only material the Store persists for a vault; everything
// else is recomputed from it plus the in-memory master key.
type Salt [32]byte

// KeyVault holds the single 32-byte master key for the process lifetime.
// It is safe for concurrent use; Load is expected to run once at startup.
type KeyVault struct {
	mu        sync.RWMutex
	masterKey []byte // nil until Load succeeds
}

func New() *KeyVault {
	return &KeyVault{}
}

// Load reads the master key from path, validates its shape, and makes the
// vault ready for Mint/Derive. It is a ConfigError (fatal at startup) if
// the file is missing or the content does not decode to 32 bytes.
func (v *KeyVault) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("keyvault: read master key file %q: %w", path, err)
	}

	hexStr := strings.TrimSpace(string(raw))
	hexStr = strings.TrimPrefix(hexStr, "0x")
	hexStr = strings.TrimPrefix(hexStr, "0X")

	key, err := hex.DecodeString(hexStr)
	if err != nil || len(key) != MasterKeyLen {
		return ErrInvalidMasterKey
	}

	v.mu.Lock()
	v.masterKey = key
	v.mu.Unlock()
	return nil
}

// LoadFromBytes is the test-only equivalent of Load, skipping the file
// round trip.
func (v *KeyVault) LoadFromBytes(key []byte) error {
	if len(key) != MasterKeyLen {
		return ErrInvalidMasterKey
	}
	v.mu.Lock()
	v.masterKey = append([]byte(nil), key...)
	v.mu.Unlock()
	return nil
}

// Mint generates a fresh random salt and derives the vault key pair for
// it. The salt is the only thing the caller must persist to be able to
// re-derive the same (address, private key) later via Derive.
func (v *KeyVault) Mint() (ethcommon.Address, *ecdsa.PrivateKey, Salt, error) {
	var salt Salt
	if _, err := rand.Read(salt[:]); err != nil {
		return ethcommon.Address{}, nil, Salt{}, fmt.Errorf("keyvault: generate salt: %w", err)
	}

	addr, priv, err := v.Derive(salt)
	if err != nil {
		return ethcommon.Address{}, nil, Salt{}, err
	}
	return addr, priv, salt, nil
}

// Derive recomputes the (address, private key) pair for salt. It is a
// deterministic pure function of (master key, salt): the same two inputs
// always yield the same pair, in this process or any other holding the
// same master key.
func (v *KeyVault) Derive(salt Salt) (ethcommon.Address, *ecdsa.PrivateKey, error) {
	v.mu.RLock()
	masterKey := v.masterKey
	v.mu.RUnlock()

	if masterKey == nil {
		return ethcommon.Address{}, nil, ErrNotInitialized
	}

	digest := crypto.Keccak256(append(append([]byte(nil), masterKey...), salt[:]...))

	priv, err := crypto.ToECDSA(digest)
	if err != nil {
		return ethcommon.Address{}, nil, fmt.Errorf("keyvault: derive private key: %w", err)
	}

	addr := crypto.PubkeyToAddress(priv.PublicKey)
	return addr, priv, nil
}

// Zero overwrites a derived private key's scalar in place once the caller
// is done signing with it (spec.md §9 "Secret handling").
func Zero(priv *ecdsa.PrivateKey) {
	if priv == nil || priv.D == nil {
		return
	}
	b := priv.D.Bits()
	for i := range b {
		b[i] = 0
	}
}
