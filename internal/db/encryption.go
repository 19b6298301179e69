package db

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

var errCiphertextTooShort = fmt.Errorf("the encrypted token is shorter than the nonce")

// GCMEncryptor protects persisted tokens at rest. Output layout is
// base64(nonce || sealed token).
type GCMEncryptor struct {
	aead cipher.AEAD
}

func (g GCMEncryptor) Encrypt(token string) (string, error) {
	out := make([]byte, g.aead.NonceSize(), g.aead.NonceSize()+len(token)+g.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return "", fmt.Errorf("cannot generate nonce: %w", err)
	}
	out = g.aead.Seal(out, out[:g.aead.NonceSize()], []byte(token), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (g GCMEncryptor) Decrypt(stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("cannot decode encrypted token: %w", err)
	}
	n := g.aead.NonceSize()
	if len(raw) < n {
		return "", errCiphertextTooShort
	}
	plain, err := g.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("cannot decrypt token: %w", err)
	}
	return string(plain), nil
}

// NewGCMEncryptor accepts 16, 24 or 32 byte keys.
func NewGCMEncryptor(key string) (GCMEncryptor, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return GCMEncryptor{}, fmt.Errorf("invalid token encryption key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return GCMEncryptor{}, err
	}
	return GCMEncryptor{aead: aead}, nil
}
