// Package auth hashes chat passwords with Argon2id.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params defines the tuning parameters for Argon2id hashing.
type Params struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultParams keeps a registration under a few tens of milliseconds.
var DefaultParams = Params{
	Time:       1,
	Memory:     64 * 1024,
	Threads:    4,
	KeyLength:  32,
	SaltLength: 16,
}

// HashPassword encodes password as argon2id$time$memory$threads$salt$hash.
func HashPassword(password string) (string, error) {
	return hash(password, DefaultParams)
}

func hash(value string, params Params) (string, error) {
	salt := make([]byte, int(params.SaltLength))
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(value), salt, params.Time, params.Memory, params.Threads, params.KeyLength)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		params.Time, params.Memory, params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword checks password against an encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false, fmt.Errorf("invalid hash format")
	}
	var numbers [3]uint32
	for i := range numbers {
		n, err := strconv.ParseUint(parts[i+1], 10, 32)
		if err != nil {
			return false, fmt.Errorf("invalid hash parameter: %w", err)
		}
		numbers[i] = uint32(n)
	}
	if numbers[2] == 0 || numbers[2] > 255 {
		return false, fmt.Errorf("invalid thread count %d", numbers[2])
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}
	got := argon2.IDKey([]byte(password), salt, numbers[0], numbers[1], uint8(numbers[2]), uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
