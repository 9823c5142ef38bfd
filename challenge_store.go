package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var errChallengeMissing = errors.New("challenge missing")

// issueScript performs the whole issuance decision server-side so two
// concurrent requesters for the same email cannot both slip under the
// cooldown or spam threshold. Key order: lock, spam, cooldown, otp,
// counter. It returns {status, pttl-or-count}.
var issueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {'account', redis.call('PTTL', KEYS[1])}
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return {'spam', redis.call('PTTL', KEYS[2])}
end
if redis.call('EXISTS', KEYS[3]) == 1 then
  return {'cooldown', redis.call('PTTL', KEYS[3])}
end
redis.call('SET', KEYS[4], ARGV[1], 'EX', ARGV[2])
redis.call('SET', KEYS[3], '1', 'EX', ARGV[3])
local count = redis.call('INCR', KEYS[5])
if count == 1 then
  redis.call('EXPIRE', KEYS[5], ARGV[4])
end
if count >= tonumber(ARGV[5]) then
  redis.call('SET', KEYS[2], '1', 'EX', ARGV[6])
end
return {'ok', count}
`)

// challengeStore owns the TTL keys of the OTP state machine. All key
// material is namespaced by prefix and normalized email.
type challengeStore struct {
	redis  redis.UniversalClient
	prefix string
	config ChallengeConfig
}

func newChallengeStore(redisClient redis.UniversalClient, prefix string, cfg ChallengeConfig) *challengeStore {
	return &challengeStore{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

func (s *challengeStore) otpKey(email string) string      { return s.prefix + ":otp:" + email }
func (s *challengeStore) cooldownKey(email string) string { return s.prefix + ":otp:cool:" + email }
func (s *challengeStore) countKey(email string) string    { return s.prefix + ":otp:req:" + email }
func (s *challengeStore) spamKey(email string) string     { return s.prefix + ":otp:spam:" + email }
func (s *challengeStore) failKey(email string) string     { return s.prefix + ":otp:fail:" + email }
func (s *challengeStore) lockKey(email string) string     { return s.prefix + ":otp:lock:" + email }

// Issue stores a fresh challenge for email if no lock, spam window, or
// cooldown refuses it, and returns the post-increment request count.
// A prior live challenge is overwritten; at most one exists per email.
func (s *challengeStore) Issue(ctx context.Context, email, code string) (int64, error) {
	keys := []string{
		s.lockKey(email),
		s.spamKey(email),
		s.cooldownKey(email),
		s.otpKey(email),
		s.countKey(email),
	}
	args := []interface{}{
		code,
		int(s.config.ChallengeTTL / time.Second),
		int(s.config.Cooldown / time.Second),
		int(s.config.RequestWindow / time.Second),
		s.config.MaxPerWindow,
		int(s.config.SpamLock / time.Second),
	}

	raw, err := issueScript.Run(ctx, s.redis, keys, args...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return 0, fmt.Errorf("%w: unexpected issue script reply", ErrStoreUnavailable)
	}

	status, _ := reply[0].(string)
	value := scriptInt(reply[1])

	switch status {
	case "ok":
		return value, nil
	case "account":
		return 0, &LockedError{Kind: LockAccount, RetryAfter: pttlToDuration(value, s.config.AccountLock)}
	case "spam":
		return 0, &LockedError{Kind: LockSpam, RetryAfter: pttlToDuration(value, s.config.SpamLock)}
	case "cooldown":
		return 0, &LockedError{Kind: LockCooldown, RetryAfter: pttlToDuration(value, s.config.Cooldown)}
	default:
		return 0, fmt.Errorf("%w: unknown issue status %q", ErrStoreUnavailable, status)
	}
}

// Verify consumes the live challenge for email. The read-check-write
// sequence runs under WATCH so a concurrent verify for the same email
// forces a retry instead of double-counting a failure.
//
// Outcomes: nil on match (challenge and counter purged),
// [ErrChallengeNotFound] when nothing is stored, [OTPMismatchError] on a
// wrong code, and [LockedError] once wrong guesses exhaust the budget or
// while an earlier lock is still active.
func (s *challengeStore) Verify(ctx context.Context, email, code string) error {
	const maxRetries = 4

	otpKey := s.otpKey(email)
	failKey := s.failKey(email)
	lockKey := s.lockKey(email)

	for i := 0; i < maxRetries; i++ {
		var outcome error

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			lockTTL, err := tx.PTTL(ctx, lockKey).Result()
			if err != nil {
				return err
			}
			if lockTTL > 0 {
				outcome = &LockedError{Kind: LockAccount, RetryAfter: lockTTL}
				return nil
			}

			stored, err := tx.Get(ctx, otpKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return errChallengeMissing
				}
				return err
			}

			failures, err := tx.Get(ctx, failKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
				// Lock on the fourth wrong guess; the reported remaining
				// count intentionally mirrors the original user-facing
				// numbering, which under-reports by one.
				if failures > 2 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Set(ctx, lockKey, "locked", s.config.AccountLock)
						pipe.Del(ctx, otpKey, failKey)
						return nil
					})
					if err != nil {
						return err
					}
					outcome = &LockedError{Kind: LockAccount, RetryAfter: s.config.AccountLock}
					return nil
				}

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, failKey, strconv.FormatInt(failures+1, 10), s.config.AttemptTTL)
					return nil
				})
				if err != nil {
					return err
				}
				outcome = &OTPMismatchError{Remaining: int(2 - failures)}
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, otpKey, failKey)
				return nil
			})
			return err
		}, otpKey, failKey)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, errChallengeMissing) {
				return ErrChallengeNotFound
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		return outcome
	}

	return ErrChallengeNotFound
}

func scriptInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func pttlToDuration(ms int64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
