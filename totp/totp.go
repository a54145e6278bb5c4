package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const secretBytes = 20

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Verifier validates RFC 6238 time-based one-time codes. Applies only
// to accounts that have enrolled a secret.
type Verifier struct {
	Period int // time step in seconds
	Digits int
	Skew   int // accepted steps either side of now
	Issuer string
}

// NewVerifier returns a verifier with the standard 30-second period,
// 6 digits and one step of clock-skew tolerance.
func NewVerifier(issuer string) *Verifier {
	return &Verifier{
		Period: 30,
		Digits: 6,
		Skew:   1,
		Issuer: issuer,
	}
}

// GenerateSecret produces a fresh base32-encoded shared secret.
func (v *Verifier) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth URI an authenticator app enrolls from.
func (v *Verifier) ProvisionURI(secretBase32, account string) string {
	label := url.PathEscape(v.Issuer + ":" + account)

	q := url.Values{}
	q.Set("secret", secretBase32)
	q.Set("issuer", v.Issuer)
	q.Set("period", strconv.Itoa(v.Period))
	q.Set("digits", strconv.Itoa(v.Digits))
	q.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + q.Encode()
}

// Verify checks a submitted code against the shared secret at the given
// instant, accepting ±Skew time steps. Malformed secrets and codes fail
// closed.
func (v *Verifier) Verify(secretBase32, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != v.Digits || !isNumeric(trimmed) {
		return false
	}

	secret, err := b32.DecodeString(strings.ToUpper(strings.TrimRight(secretBase32, "=")))
	if err != nil || len(secret) == 0 {
		return false
	}

	baseCounter := now.Unix() / int64(v.Period)
	for step := -v.Skew; step <= v.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(secret, counter, v.Digits)), []byte(trimmed)) == 1 {
			return true
		}
	}
	return false
}

func hotpCode(secret []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
