package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/finloop/loan-management/pkg/errors"
)

// otpStore keeps verification codes in redis under otp:<email>. The TTL
// bounds their lifetime and GETDEL makes each code single-use.
type otpStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) OTPStore {
	return &otpStore{client: client}
}

func otpKey(email string) string {
	return fmt.Sprintf("otp:%s", email)
}

func (s *otpStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpKey(email), code, ttl).Err(); err != nil {
		return apperrors.WrapCacheError(err)
	}
	return nil
}

func (s *otpStore) Consume(ctx context.Context, email string) (string, error) {
	code, err := s.client.GetDel(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.ErrInvalidOTP
	}
	if err != nil {
		return "", apperrors.WrapCacheError(err)
	}
	return code, nil
}
