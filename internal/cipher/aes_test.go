package cipher

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Produced by a .NET client with Aes.Create() defaults.
const (
	testKey        = "HbrBX/TckMpgKFKZbLQsJkkfE3bUKJ1JuD2CPZbxt48="
	testVector     = "YYmZfhLrt858GSKU/U6Siw=="
	testCiphertext = "lto17w6Y3bKc0xJbKEg9iiWlHD2hNmPISili+kWhMKBIB/PE0ceU+Qk9yUjzJC1b"
	testPlaintext  = `{ "username": "user", "score": 10 }`
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, raw, KeySize)
	assert.LessOrEqual(t, len(key), 256)

	other, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestDecrypt_KnownVector(t *testing.T) {
	plaintext, err := Decrypt(testCiphertext, testKey, testVector)
	require.NoError(t, err)
	assert.Equal(t, testPlaintext, plaintext)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"json body", testPlaintext},
		{"empty", ""},
		{"exactly one block", strings.Repeat("a", 16)},
		{"unicode", `{"username":"こんにちは","score":5}`},
		{"large", strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, vector, err := Encrypt(tt.plaintext, key)
			require.NoError(t, err)

			iv, err := base64.StdEncoding.DecodeString(vector)
			require.NoError(t, err)
			assert.Len(t, iv, VectorSize)

			plaintext, err := Decrypt(ciphertext, key, vector)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, plaintext)
		})
	}
}

func TestEncrypt_FreshVectorPerCall(t *testing.T) {
	first, firstVector, err := Encrypt(testPlaintext, testKey)
	require.NoError(t, err)
	second, secondVector, err := Encrypt(testPlaintext, testKey)
	require.NoError(t, err)

	assert.NotEqual(t, firstVector, secondVector)
	assert.NotEqual(t, first, second)
}

func TestEncrypt_InvalidKey(t *testing.T) {
	_, _, err := Encrypt(testPlaintext, base64.StdEncoding.EncodeToString([]byte("too short")))
	require.ErrorIs(t, err, ErrInvalidKey)

	_, _, err = Encrypt(testPlaintext, "not base64!")
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestDecrypt_Failures(t *testing.T) {
	tests := []struct {
		name       string
		ciphertext string
		key        string
		vector     string
		cause      error
	}{
		{
			name:       "wrong key",
			ciphertext: testCiphertext,
			key:        "67MXRzccqY/TZR+Jkr6PAp93sb95NMIZYDt8QMP8nqs=",
			vector:     testVector,
			cause:      ErrInvalidPadding,
		},
		{
			// first byte of the vector flipped, so the first plaintext byte is 0xfb
			name:       "wrong vector",
			ciphertext: testCiphertext,
			key:        testKey,
			vector:     "4YmZfhLrt858GSKU/U6Siw==",
			cause:      ErrInvalidPlaintext,
		},
		{
			name:       "short vector",
			ciphertext: testCiphertext,
			key:        testKey,
			vector:     base64.StdEncoding.EncodeToString([]byte("short")),
			cause:      ErrInvalidVector,
		},
		{
			name:       "malformed ciphertext",
			ciphertext: "%%%",
			key:        testKey,
			vector:     testVector,
			cause:      ErrInvalidEncoding,
		},
		{
			name:       "truncated ciphertext",
			ciphertext: base64.StdEncoding.EncodeToString([]byte("0123456789")),
			key:        testKey,
			vector:     testVector,
			cause:      ErrInvalidLength,
		},
		{
			name:       "empty ciphertext",
			ciphertext: "",
			key:        testKey,
			vector:     testVector,
			cause:      ErrInvalidLength,
		},
		{
			name:       "malformed key",
			ciphertext: testCiphertext,
			key:        "???",
			vector:     testVector,
			cause:      ErrInvalidEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plaintext, err := Decrypt(tt.ciphertext, tt.key, tt.vector)
			require.ErrorIs(t, err, ErrDecryptionFailed)
			require.ErrorIs(t, err, tt.cause)
			assert.Empty(t, plaintext)
		})
	}
}

func TestDecrypt_DifferentGeneratedKeyNeverYieldsPlaintext(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	other, err := GenerateKey()
	require.NoError(t, err)

	ciphertext, vector, err := Encrypt(testPlaintext, key)
	require.NoError(t, err)

	plaintext, err := Decrypt(ciphertext, other, vector)
	if err == nil {
		assert.NotEqual(t, testPlaintext, plaintext)
	}
}

func TestUnpad(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		valid bool
	}{
		{"full padding block", append([]byte("0123456789abcdef"), []byte(strings.Repeat("\x10", 16))...), true},
		{"one byte", append([]byte("012345678901234"), 0x01), true},
		{"zero pad byte", append([]byte("012345678901234"), 0x00), false},
		{"pad larger than block", append([]byte("012345678901234"), 0x11), false},
		{"inconsistent bytes", append([]byte("0123456789abcd"), 0x01, 0x02), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unpad(tt.data, 16)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPadding)
			}
		})
	}
}
