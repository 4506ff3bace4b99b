package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidPasswordHash         = errors.New("invalid password hash format")
	ErrIncompatiblePasswordVersion = errors.New("incompatible password hash version")
)

// Argon2idParams tunes the cost of password hashing.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams is what new staff accounts are hashed with.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

var b64 = base64.RawStdEncoding

// storedPassword is the decoded form of
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<key>.
type storedPassword struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (p storedPassword) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.params.Memory, p.params.Iterations, p.params.Parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

func parseStoredPassword(encoded string) (storedPassword, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return storedPassword{}, ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return storedPassword{}, fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
	}
	if version != argon2.Version {
		return storedPassword{}, ErrIncompatiblePasswordVersion
	}

	var stored storedPassword
	p := &stored.params
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return storedPassword{}, fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
	}

	var err error
	if stored.salt, err = b64.DecodeString(fields[4]); err != nil {
		return storedPassword{}, fmt.Errorf("%w: salt: %v", ErrInvalidPasswordHash, err)
	}
	if stored.key, err = b64.DecodeString(fields[5]); err != nil {
		return storedPassword{}, fmt.Errorf("%w: key: %v", ErrInvalidPasswordHash, err)
	}
	p.SaltLength = uint32(len(stored.salt))
	p.KeyLength = uint32(len(stored.key))
	return stored, nil
}

func (p storedPassword) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.params.Iterations, p.params.Memory, p.params.Parallelism, p.params.KeyLength)
}

// CreatePasswordHash derives an argon2id hash with a random salt.
func CreatePasswordHash(password string, params Argon2idParams) (string, error) {
	stored := storedPassword{params: params, salt: make([]byte, params.SaltLength)}
	if _, err := rand.Read(stored.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	stored.key = stored.derive(password)
	return stored.String(), nil
}

// VerifyPassword returns ErrInvalidCredentials on a mismatch and a hash format
// error when encoded cannot be decoded.
func VerifyPassword(encoded, password string) error {
	stored, err := parseStoredPassword(encoded)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(stored.key, stored.derive(password)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
