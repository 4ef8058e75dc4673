package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CodeTTL bounds how long an issued code stays redeemable.
	CodeTTL = 15 * time.Minute

	// MaxAttempts bounds wrong guesses per issued code.
	MaxAttempts = 5

	codeDigits = 6
)

var (
	ErrCodeMismatch    = errors.New("verification code does not match")
	ErrCodeExpired     = errors.New("verification code expired or never issued")
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

// Store issues and redeems one-time email verification codes backed by
// redis. Codes are keyed per (link, email) so a code issued for one link
// cannot verify another.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func codeKey(linkID, email string) string {
	return fmt.Sprintf("verify:code:%s:%s", linkID, email)
}

func attemptsKey(linkID, email string) string {
	return fmt.Sprintf("verify:attempts:%s:%s", linkID, email)
}

// Issue generates a fresh numeric code, stores it with the TTL, and resets
// the attempt counter. Reissuing overwrites any outstanding code.
func (s *Store) Issue(ctx context.Context, linkID, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, codeKey(linkID, email), code, CodeTTL)
	pipe.Del(ctx, attemptsKey(linkID, email))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}
	return code, nil
}

// Redeem checks the submitted code. A match consumes the code; a mismatch
// burns one attempt, and the code is invalidated once attempts run out.
func (s *Store) Redeem(ctx context.Context, linkID, email, submitted string) error {
	stored, err := s.client.Get(ctx, codeKey(linkID, email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeExpired
	}
	if err != nil {
		return fmt.Errorf("failed to read verification code: %w", err)
	}

	if stored != submitted {
		attempts, err := s.client.Incr(ctx, attemptsKey(linkID, email)).Result()
		if err != nil {
			return fmt.Errorf("failed to count verification attempt: %w", err)
		}
		s.client.Expire(ctx, attemptsKey(linkID, email), CodeTTL)
		if attempts >= MaxAttempts {
			s.client.Del(ctx, codeKey(linkID, email), attemptsKey(linkID, email))
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	s.client.Del(ctx, codeKey(linkID, email), attemptsKey(linkID, email))
	return nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
