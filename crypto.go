package hssp

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
)

// Function variables for testing injection.
var randReader io.Reader = rand.Reader

// cryptoGate holds the key material derived from a password. The password
// itself is discarded on construction.
type cryptoGate struct {
	key      [32]byte
	verifier [32]byte
}

// newCryptoGate derives key = SHA-256(password) and verifier = SHA-256(key).
// An empty password yields nil.
func newCryptoGate(password string) *cryptoGate {
	if password == "" {
		return nil
	}
	g := &cryptoGate{key: sha256.Sum256([]byte(password))}
	g.verifier = sha256.Sum256(g.key[:])
	return g
}

func (g *cryptoGate) String() string   { return "hssp.cryptoGate{REDACTED}" }
func (g *cryptoGate) GoString() string { return g.String() }

// encrypt pads body with PKCS#7 and encrypts it with AES-256-CBC under a fresh IV.
func (g *cryptoGate) encrypt(body []byte) (iv [16]byte, out []byte, err error) {
	if _, err := io.ReadFull(randReader, iv[:]); err != nil {
		return iv, nil, fmt.Errorf("hssp: generate iv: %w", err)
	}
	block, err := aes.NewCipher(g.key[:])
	if err != nil {
		return iv, nil, err
	}
	out = pkcs7Pad(body, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, out)
	return iv, out, nil
}

// decrypt checks the stored verifier before touching the ciphertext.
func (g *cryptoGate) decrypt(body []byte, verifier [32]byte, iv [16]byte) ([]byte, error) {
	if err := g.check(verifier); err != nil {
		return nil, err
	}
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", ErrInvalidPayload, len(body))
	}
	block, err := aes.NewCipher(g.key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(out, body)
	return pkcs7Unpad(out, aes.BlockSize)
}

// check returns a PasswordError if the gate does not match verifier, or a
// MissingPasswordError if g is nil.
func (g *cryptoGate) check(verifier [32]byte) error {
	if g == nil {
		return &MissingPasswordError{Verifier: verifier}
	}
	if subtle.ConstantTimeCompare(g.verifier[:], verifier[:]) != 1 {
		return &PasswordError{Expected: verifier, Actual: g.verifier}
	}
	return nil
}

func pkcs7Pad(in []byte, blockSize int) []byte {
	n := blockSize - len(in)%blockSize
	out := make([]byte, len(in)+n)
	copy(out, in)
	copy(out[len(in):], bytes.Repeat([]byte{byte(n)}, n))
	return out
}

func pkcs7Unpad(in []byte, blockSize int) ([]byte, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrInvalidPayload)
	}
	n := int(in[len(in)-1])
	if n == 0 || n > blockSize || n > len(in) {
		return nil, fmt.Errorf("%w: bad padding", ErrInvalidPayload)
	}
	for _, b := range in[len(in)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrInvalidPayload)
		}
	}
	return in[:len(in)-n], nil
}
