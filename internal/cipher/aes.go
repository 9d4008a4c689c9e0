// Package cipher encrypts request bodies with per-project AES-256 keys.
//
// Ciphertext, keys and vectors travel as standard base64. The mode is CBC with
// PKCS#7 padding, which is what game clients built on .NET's Aes defaults
// produce.
package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// KeySize is the AES-256 key length in bytes
	KeySize = 32
	// VectorSize is the CBC initialization vector length in bytes
	VectorSize = aes.BlockSize
)

var (
	// ErrDecryptionFailed wraps every Decrypt failure
	ErrDecryptionFailed = errors.New("cipher: decryption failed")

	// ErrInvalidKey indicates the key does not decode to 32 bytes
	ErrInvalidKey = errors.New("cipher: key must be 32 bytes")

	// ErrInvalidVector indicates the vector does not decode to 16 bytes
	ErrInvalidVector = errors.New("cipher: vector must be 16 bytes")

	// ErrInvalidEncoding indicates malformed base64 input
	ErrInvalidEncoding = errors.New("cipher: invalid base64")

	// ErrInvalidLength indicates ciphertext that is empty or not block aligned
	ErrInvalidLength = errors.New("cipher: ciphertext is not a whole number of blocks")

	// ErrInvalidPadding indicates the decrypted data does not end in valid PKCS#7 padding
	ErrInvalidPadding = errors.New("cipher: invalid padding")

	// ErrInvalidPlaintext indicates the decrypted data is not UTF-8 text
	ErrInvalidPlaintext = errors.New("cipher: plaintext is not valid UTF-8")
)

// GenerateKey returns a fresh random 256-bit key, base64 encoded
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("cipher: generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt encrypts plaintext under keyBase64 with a fresh random vector.
// It returns the ciphertext and the vector, both base64 encoded.
func Encrypt(plaintext, keyBase64 string) (ciphertextBase64, vectorBase64 string, err error) {
	block, err := newBlock(keyBase64)
	if err != nil {
		return "", "", err
	}

	iv := make([]byte, VectorSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", "", fmt.Errorf("cipher: generating vector: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt. Any failure wraps ErrDecryptionFailed and no
// partial plaintext is ever returned.
func Decrypt(ciphertextBase64, keyBase64, vectorBase64 string) (string, error) {
	plaintext, err := decrypt(ciphertextBase64, keyBase64, vectorBase64)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func decrypt(ciphertextBase64, keyBase64, vectorBase64 string) (string, error) {
	block, err := newBlock(keyBase64)
	if err != nil {
		return "", err
	}

	iv, err := base64.StdEncoding.DecodeString(strings.TrimSpace(vectorBase64))
	if err != nil {
		return "", ErrInvalidEncoding
	}
	if len(iv) != VectorSize {
		return "", ErrInvalidVector
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertextBase64))
	if err != nil {
		return "", ErrInvalidEncoding
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrInvalidLength
	}

	out := make([]byte, len(data))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	plaintext, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", ErrInvalidPlaintext
	}
	return string(plaintext), nil
}

func newBlock(keyBase64 string) (stdcipher.Block, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyBase64))
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: creating block: %w", err)
	}
	return block, nil
}

// pad appends PKCS#7 padding; a full block is added when data is aligned
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
