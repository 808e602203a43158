// Package cryptox holds the symmetric primitives used for end-to-end
// encryption: argon2id password derivation and AES-256-GCM sealing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"golang.org/x/crypto/argon2"
)

// MethodAESGCM identifies the only cipher this package writes.
const MethodAESGCM = 1

const (
	keySize  = 32
	saltSize = 32
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, keySize)
}

// NewDataKey returns a random key suitable for Seal/Open.
func NewDataKey() []byte {
	return common.GenerateRandByteArray(keySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM under key. A fresh random nonce is
// generated and prepended to the returned ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	ns := aesgcm.NonceSize()
	if len(sealed) < ns {
		return nil, ErrCiphertextTooShort
	}
	return aesgcm.Open(nil, sealed[:ns], sealed[ns:], nil)
}

// wrappedKey is the JSON shape stored in a master key's content field.
type wrappedKey struct {
	Salt       []byte `json:"salt"`
	Ciphertext []byte `json:"ciphertext"`
}

// WrapKey encrypts dataKey with a key derived from password and a new salt.
// The result is self-contained and safe to sync.
func WrapKey(dataKey, password []byte) (string, error) {
	salt := common.GenerateRandByteArray(saltSize)
	kek := DeriveMasterKey(password, salt)
	defer common.WipeByteArray(kek)

	ct, err := Seal(dataKey, kek)
	if err != nil {
		return "", fmt.Errorf("seal data key: %w", err)
	}
	b, err := json.Marshal(wrappedKey{Salt: salt, Ciphertext: ct})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnwrapKey recovers the data key from WrapKey output. A wrong password
// surfaces as common.ErrInvalidPassword.
func UnwrapKey(content string, password []byte) ([]byte, error) {
	var wk wrappedKey
	if err := json.Unmarshal([]byte(content), &wk); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCipherFormat, err)
	}
	kek := DeriveMasterKey(password, wk.Salt)
	defer common.WipeByteArray(kek)

	dataKey, err := Open(wk.Ciphertext, kek)
	if err != nil {
		return nil, common.ErrInvalidPassword
	}
	return dataKey, nil
}
