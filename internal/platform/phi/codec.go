package phi

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// ivSize is the length of the initialization vector prepended to every
// ciphertext. Equal to the AES block size.
const ivSize = aes.BlockSize

// Codec encrypts and decrypts individual PHI field values with AES-256-CBC.
// Every encryption uses a fresh random IV, so a given plaintext does not
// produce a stable ciphertext; the round-trip guarantee is
// Decrypt(Encrypt(x)) == x, never ciphertext equality.
//
// Codec is safe for concurrent use: the cipher block is created once and
// only read afterwards.
type Codec struct {
	block cipher.Block
}

// NewCodec creates a Codec using the key held by the provider.
func NewCodec(keys *KeyProvider) (*Codec, error) {
	block, err := aes.NewCipher(keys.Key())
	if err != nil {
		return nil, fmt.Errorf("phi codec: create cipher: %w", err)
	}
	return &Codec{block: block}, nil
}

// EncryptBytes encrypts data and returns the IV prepended to the ciphertext.
func (c *Codec) EncryptBytes(data []byte) ([]byte, error) {
	padded := pkcs7Pad(data)

	out := make([]byte, ivSize+len(padded))
	iv := out[:ivSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("phi encrypt: generate iv: %w", err)
	}

	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[ivSize:], padded)
	return out, nil
}

// DecryptBytes splits the IV from the front of data and decrypts the
// remainder. It fails on truncated input, misaligned ciphertext, or invalid
// padding (which is what a wrong key degrades to).
func (c *Codec) DecryptBytes(data []byte) ([]byte, error) {
	if len(data) < ivSize+aes.BlockSize {
		return nil, fmt.Errorf("phi decrypt: ciphertext too short")
	}
	iv, ciphertext := data[:ivSize], data[ivSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("phi decrypt: ciphertext not block-aligned")
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return nil, fmt.Errorf("phi decrypt: %w", err)
	}
	return unpadded, nil
}

// EncryptField encrypts a plaintext string and returns the storable base64
// text form, for text-typed columns. Binary columns store EncryptBytes
// output directly.
func (c *Codec) EncryptField(plaintext string) (string, error) {
	encrypted, err := c.EncryptBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptField decrypts a base64-encoded field value.
//
// On any failure (corrupt data, wrong key, truncated input) it returns an
// empty string instead of an error, so one unreadable legacy field does not
// abort an entire record read. Callers that need to distinguish "unreadable"
// from "genuinely empty" use DecryptFieldStrict.
func (c *Codec) DecryptField(encrypted string) string {
	plaintext, err := c.DecryptFieldStrict(encrypted)
	if err != nil {
		return ""
	}
	return plaintext
}

// DecryptFieldStrict decrypts a base64-encoded field value, propagating any
// failure to the caller.
func (c *Codec) DecryptFieldStrict(encrypted string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: base64 decode: %w", err)
	}
	plaintext, err := c.DecryptBytes(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptToBuffer encrypts an arbitrary value. Strings are encrypted as-is;
// everything else is JSON-serialized first so that DecryptFromBuffer can
// restore the original shape.
func (c *Codec) EncryptToBuffer(value any) ([]byte, error) {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("phi encrypt: marshal value: %w", err)
		}
		data = encoded
	}
	return c.EncryptBytes(data)
}

// DecryptFromBuffer decrypts data produced by EncryptToBuffer. The decrypted
// payload is JSON-parsed when possible; otherwise the raw string is returned.
func (c *Codec) DecryptFromBuffer(data []byte) (any, error) {
	plaintext, err := c.DecryptBytes(data)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return string(plaintext), nil
	}
	return value, nil
}

func pkcs7Pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
