package stores

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const secretRecordVersionV1 = 1

// secretRecordHeader is version(1) + expiresAt unix millis(8).
const secretRecordHeader = 9

// The stored record is header || secret; Lua strings are 1-indexed, so the
// secret starts at secretRecordHeader+1.
var removeSecretScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
if string.sub(v, tonumber(ARGV[2])) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

var deleteRecordScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var (
	ErrSecretCacheUnavailable = errors.New("secret cache unavailable")
	ErrSecretRecordCorrupt    = errors.New("secret record corrupt")
)

// RedisSecretCache keeps one-time-code secrets in Redis under
// {prefix}:{purpose}:{email}. Each value carries its own expiry in addition to
// the key TTL, so a record read after its deadline is treated as absent.
type RedisSecretCache struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisSecretCache(redisClient redis.UniversalClient, prefix string) *RedisSecretCache {
	if prefix == "" {
		prefix = "aotp"
	}
	return &RedisSecretCache{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisSecretCache) key(purpose, email string) string {
	return s.prefix + ":" + purpose + ":" + email
}

// Put stores secret, replacing any previous entry for the same key.
func (s *RedisSecretCache) Put(ctx context.Context, purpose, email string, secret []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("secret ttl must be > 0")
	}

	encoded := encodeSecretRecord(secret, s.now().Add(ttl))
	if err := s.redis.Set(ctx, s.key(purpose, email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSecretCacheUnavailable, err)
	}

	return nil
}

// Get returns the live secret for the key. Missing and expired entries both
// report ok=false with a nil error.
func (s *RedisSecretCache) Get(ctx context.Context, purpose, email string) ([]byte, bool, error) {
	key := s.key(purpose, email)

	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrSecretCacheUnavailable, err)
	}

	secret, expiresAt, err := decodeSecretRecord(data)
	if err != nil {
		return nil, false, errors.Join(err, s.discard(ctx, key, data))
	}
	if !s.now().Before(expiresAt) {
		return nil, false, s.discard(ctx, key, data)
	}

	return secret, true, nil
}

// Remove deletes the entry only while it still holds secret, and reports
// whether this call removed it. A secret replaced by a later Put survives, and
// of two concurrent callers at most one observes true.
func (s *RedisSecretCache) Remove(ctx context.Context, purpose, email string, secret []byte) (bool, error) {
	n, err := removeSecretScript.Run(ctx, s.redis,
		[]string{s.key(purpose, email)}, secret, secretRecordHeader+1).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSecretCacheUnavailable, err)
	}
	return n == 1, nil
}

// discard drops an unusable record unless a Put has replaced it since it was
// read.
func (s *RedisSecretCache) discard(ctx context.Context, key string, record []byte) error {
	if err := deleteRecordScript.Run(ctx, s.redis, []string{key}, record).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSecretCacheUnavailable, err)
	}
	return nil
}

func encodeSecretRecord(secret []byte, expiresAt time.Time) []byte {
	buf := make([]byte, secretRecordHeader+len(secret))
	buf[0] = secretRecordVersionV1
	binary.BigEndian.PutUint64(buf[1:secretRecordHeader], uint64(expiresAt.UnixMilli()))
	copy(buf[secretRecordHeader:], secret)
	return buf
}

func decodeSecretRecord(data []byte) ([]byte, time.Time, error) {
	if len(data) <= secretRecordHeader {
		return nil, time.Time{}, ErrSecretRecordCorrupt
	}
	if data[0] != secretRecordVersionV1 {
		return nil, time.Time{}, fmt.Errorf("%w: version %d", ErrSecretRecordCorrupt, data[0])
	}

	expiresAt := time.UnixMilli(int64(binary.BigEndian.Uint64(data[1:secretRecordHeader])))
	secret := make([]byte, len(data)-secretRecordHeader)
	copy(secret, data[secretRecordHeader:])

	return secret, expiresAt, nil
}
