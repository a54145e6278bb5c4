package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// Config holds the argon2id cost parameters. Salt and parameters are
// embedded in every produced hash, so verification is self-describing.
type Config struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MaxConcurrent bounds how many hash computations may run at once,
	// so hashing cannot starve unrelated request handling.
	MaxConcurrent int
}

// DefaultConfig returns the recommended cost parameters: 64 MiB memory,
// 3 iterations, 4-way parallelism, 32-byte key, 16-byte salt.
func DefaultConfig() Config {
	return Config{
		MemoryKB:    64 * 1024,
		Time:        3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher derives and verifies argon2id password hashes.
type Hasher struct {
	config Config
	slots  chan struct{}
}

func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.MemoryKB < 8*1024 {
		return nil, errors.New("[NewHasher] memory must be >= 8192 KB")
	}
	if cfg.Time < 1 || cfg.Parallelism < 1 {
		return nil, errors.New("[NewHasher] time and parallelism must be >= 1")
	}
	if cfg.SaltLength < 16 || cfg.KeyLength < 16 {
		return nil, errors.New("[NewHasher] salt and key length must be >= 16")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		config: cfg,
		slots:  make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Hash derives a hash from the password using a fresh random salt.
// The call may wait for a worker slot; once the computation starts it
// runs to completion regardless of ctx.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", errors.Wrap(err, "[Hasher.Hash] rand.Read")
	}

	key := argon2.IDKey([]byte(password), salt, h.config.Time, h.config.MemoryKB, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.MemoryKB,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks a candidate password against an encoded hash. It fails
// closed: malformed input yields false, never an error. On the failure
// path an equivalent-cost dummy computation still runs so that failure
// and success take comparable time.
func (h *Hasher) Verify(ctx context.Context, encodedHash, candidate string) bool {
	if err := h.acquire(ctx); err != nil {
		return false
	}
	defer h.release()

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		h.dummyHash(candidate)
		return false
	}

	computed := argon2.IDKey([]byte(candidate), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

// DummyVerify burns the cost of a real verification. Callers use it to
// keep the unknown-account path as slow as the wrong-password path.
func (h *Hasher) DummyVerify(ctx context.Context) {
	if err := h.acquire(ctx); err != nil {
		return
	}
	defer h.release()
	h.dummyHash("dummy")
}

func (h *Hasher) dummyHash(candidate string) {
	var salt [16]byte
	argon2.IDKey([]byte(candidate), salt[:], h.config.Time, h.config.MemoryKB, h.config.Parallelism, h.config.KeyLength)
}

func (h *Hasher) acquire(ctx context.Context) error {
	select {
	case h.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "[Hasher] waiting for hash slot")
	}
}

func (h *Hasher) release() {
	<-h.slots
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var parsed parsedPHC
	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("invalid parameter entry")
		}
		v, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return nil, errors.New("invalid parameter value")
		}
		switch kv[0] {
		case "m":
			parsed.memory = uint32(v)
		case "t":
			parsed.time = uint32(v)
		case "p":
			if v > 255 {
				return nil, errors.New("invalid parallelism")
			}
			parsed.parallelism = uint8(v)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if parsed.memory == 0 || parsed.time == 0 || parsed.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	if parsed.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(parsed.salt) < 16 {
		return nil, errors.New("invalid salt")
	}
	if parsed.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(parsed.key) == 0 {
		return nil, errors.New("invalid key")
	}

	return &parsed, nil
}
