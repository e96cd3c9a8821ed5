// Package password реализует хеширование и проверку паролей алгоритмом argon2id.
//
// Хэш хранится в PHC-формате: $argon2id$v=19$m=<KiB>,t=<iter>,p=<threads>$<salt>$<key>.
// Соль генерируется для каждого пароля и хранится внутри строки хэша.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minIterations  uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// ErrInvalidHash возвращается, если строка хэша не разбирается.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// Params параметры argon2id.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams параметры, рекомендованные для интерактивного входа.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher хеширует и проверяет пароли. Безопасен для конкурентного использования.
type Hasher struct {
	params Params
}

// NewHasher создает Hasher, отклоняя слишком слабые параметры.
func NewHasher(p Params) (*Hasher, error) {
	const op = "password.NewHasher"
	switch {
	case p.Memory < minMemoryKB:
		return nil, fmt.Errorf("%s: memory must be >= %d KiB", op, minMemoryKB)
	case p.Iterations < minIterations:
		return nil, fmt.Errorf("%s: iterations must be >= %d", op, minIterations)
	case p.Parallelism < minParallelism:
		return nil, fmt.Errorf("%s: parallelism must be >= %d", op, minParallelism)
	case p.SaltLength < minSaltLength:
		return nil, fmt.Errorf("%s: salt length must be >= %d", op, minSaltLength)
	case p.KeyLength < minKeyLength:
		return nil, fmt.Errorf("%s: key length must be >= %d", op, minKeyLength)
	}
	return &Hasher{params: p}, nil
}

// Hash возвращает argon2id-хэш пароля со случайной солью.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory,
		h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify сравнивает пароль с хэшем. Несовпадение дает (false, nil);
// ошибка возвращается только для испорченного хэша.
func (h *Hasher) Verify(encodedHash, password string) (bool, error) {
	const op = "password.Verify"

	p, salt, key, err := decode(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	computed := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism,
		uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func decode(encodedHash string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return p, nil, nil, ErrInvalidHash
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if p.Memory < minMemoryKB || p.Iterations < minIterations || p.Parallelism < minParallelism {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}
