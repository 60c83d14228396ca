// Package secret seals configuration values such as database passwords so
// they can sit in config files and be opened with a key from the environment.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// Prefix marks a sealed value.
const Prefix = "sealed:"

// KeyEnv names the variable holding the sealing passphrase.
const KeyEnv = "KRELTRACK_SECRET_KEY"

const nonceSize = 24

var (
	ErrNoKey      = errors.New("sealed value needs " + KeyEnv)
	ErrMalformed  = errors.New("sealed value is malformed")
	ErrWrongKey   = errors.New("sealed value cannot be opened with this key")
	ErrEmptyValue = errors.New("nothing to seal")
)

// Key is derived from a passphrase.
type Key [32]byte

func NewKey(passphrase string) (*Key, error) {
	if passphrase == "" {
		return nil, ErrNoKey
	}
	k := Key(sha256.Sum256([]byte(passphrase)))
	return &k, nil
}

func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Seal encrypts value under key with a fresh random nonce.
func Seal(value string, key *Key) (string, error) {
	if value == "" {
		return "", ErrEmptyValue
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to read nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, (*[32]byte)(key))
	return Prefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open returns value unchanged unless it is sealed.
func Open(value string, key *Key) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if key == nil {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	out, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, (*[32]byte)(key))
	if !ok {
		return "", ErrWrongKey
	}
	return string(out), nil
}

// OpenWithPassphrase opens value with a key derived from passphrase. An
// empty passphrase only fails when value is sealed.
func OpenWithPassphrase(value, passphrase string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	key, err := NewKey(passphrase)
	if err != nil {
		return "", err
	}
	return Open(value, key)
}
