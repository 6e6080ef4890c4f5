package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrOTPAlreadySent is returned while a previously issued code is live.
	ErrOTPAlreadySent = errors.New("otp already sent")

	// ErrInvalidOTP is returned for an unknown, expired or wrong code.
	ErrInvalidOTP = errors.New("invalid otp")
)

// OTPLength is the number of digits of a one-time password.
const OTPLength = 6

// OTPStore keeps one-time passwords per email address.
type OTPStore interface {
	// Issue creates a code for email. It fails with ErrOTPAlreadySent while
	// an earlier code has not expired.
	Issue(ctx context.Context, email string) (string, error)

	// Verify consumes the code for email. It fails with ErrInvalidOTP.
	Verify(ctx context.Context, email, code string) error
}

type otpEntry struct {
	hash    []byte
	expires time.Time
}

// MemoryOTPStore is an in-process OTPStore holding bcrypt hashes of codes.
type MemoryOTPStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	cost    int
	now     func() time.Time
	entries map[string]otpEntry
}

// NewMemoryOTPStore returns a store whose codes live for ttl.
func NewMemoryOTPStore(ttl time.Duration) *MemoryOTPStore {
	return &MemoryOTPStore{
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		entries: make(map[string]otpEntry),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryOTPStore) Issue(_ context.Context, email string) (string, error) {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return "", ErrOTPAlreadySent
	}

	code, err := generateOTP()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	s.entries[key] = otpEntry{hash: hash, expires: now.Add(s.ttl)}
	s.prune(now)

	return code, nil
}

func (s *MemoryOTPStore) Verify(_ context.Context, email, code string) error {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expires) {
		delete(s.entries, key)
		return ErrInvalidOTP
	}

	if bcrypt.CompareHashAndPassword(e.hash, []byte(code)) != nil {
		return ErrInvalidOTP
	}

	delete(s.entries, key)

	return nil
}

// prune drops expired entries. Callers hold s.mu.
func (s *MemoryOTPStore) prune(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}

// generateOTP returns a random code of OTPLength digits without a leading
// zero.
func generateOTP() (string, error) {
	low := int64(1)
	for range OTPLength - 1 {
		low *= 10
	}

	n, err := rand.Int(rand.Reader, big.NewInt(9*low))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	return fmt.Sprintf("%d", n.Int64()+low), nil
}
