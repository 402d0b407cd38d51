package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

// An encrypted snapshot is laid out as
// [16-byte salt][12-byte nonce][AES-256-GCM ciphertext]. The salt feeds
// Argon2id, so changing the passphrase re-keys future snapshots without
// touching objects already uploaded.
const (
	saltLen  = 16
	nonceLen = 12
	keyLen   = 32
)

// Argon2id parameters, sized so a restore stays interactive on the small
// hosts despensa typically runs on.
const (
	kdfTime    = 3
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

// GenerateSalt returns a fresh random salt for passphrase key derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches the backup passphrase into an AES-256 key with Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, keyLen)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}

// EncryptFile seals the database snapshot at src into dst using the
// passphrase and salt.
func EncryptFile(src, dst, passphrase string, salt []byte) error {
	snapshot, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	gcm, err := newGCM(DeriveKey(passphrase, salt))
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, saltLen+nonceLen+len(snapshot)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, snapshot, nil)

	if err := os.WriteFile(dst, out, 0600); err != nil {
		return fmt.Errorf("write encrypted snapshot: %w", err)
	}
	return nil
}

// DecryptFile opens the encrypted snapshot at src into dst. The salt is
// read back from the snapshot itself, so a restore only needs the
// passphrase.
func DecryptFile(src, dst, passphrase string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read encrypted snapshot: %w", err)
	}
	if len(data) < saltLen+nonceLen {
		return errors.New("encrypted snapshot truncated")
	}

	salt := data[:saltLen]
	nonce := data[saltLen : saltLen+nonceLen]
	sealed := data[saltLen+nonceLen:]

	gcm, err := newGCM(DeriveKey(passphrase, salt))
	if err != nil {
		return err
	}

	// Open fails on a wrong passphrase as well as on tampering.
	snapshot, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fmt.Errorf("decrypt snapshot: %w", err)
	}

	if err := os.WriteFile(dst, snapshot, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
