package otp

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	repo "storefront/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const maxAttempts = 5

// RedisStore keeps one bcrypt-hashed code per email in a hash at otp:<email>.
type RedisStore struct {
	client *redis.Client
	cost   int
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, cost: bcrypt.DefaultCost}
}

func otpKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

// Save replaces any outstanding code for email and resets the attempt count.
func (s *RedisStore) Save(ctx context.Context, email string, code string, ttl time.Duration) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return err
	}

	key := otpKey(email)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "hash", string(hash), "attempts", 0)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// Verify deletes the code on success or after too many wrong attempts.
func (s *RedisStore) Verify(ctx context.Context, email string, code string) error {
	key := otpKey(email)
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	hash, ok := fields["hash"]
	if !ok {
		return repo.ErrOTPNotFound
	}

// lockout
	attempts, _ := strconv.Atoi(fields["attempts"])
	if attempts >= maxAttempts {
		s.client.Del(ctx, key)
		return repo.ErrOTPTooManyAttempts
	}

	if err := checkCode(hash, code); err != nil {
		if errors.Is(err, repo.ErrOTPMismatch) {
// the TTL set in Save still applies
			s.client.HIncrBy(ctx, key, "attempts", 1)
		}
		return err
	}

	return s.client.Del(ctx, key).Err()
}

// checkCode maps a bcrypt mismatch to ErrOTPMismatch.
func checkCode(hash, code string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return repo.ErrOTPMismatch
	}
	return err
}
