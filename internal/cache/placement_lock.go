package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const placementLockKey = "affiliate:placement_lock"

// ErrLockNotAcquired 抢锁失败
var ErrLockNotAcquired = errors.New("placement lock not acquired")

// releaseScript 只释放自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PlacementLock 基于 Redis SET NX 的树排位互斥锁。
// Redis 未启用时抢锁直接成功，唯一索引负责兜底。
type PlacementLock struct{}

// NewPlacementLock 创建排位锁
func NewPlacementLock() *PlacementLock {
	return &PlacementLock{}
}

// AcquirePlacementLock 抢占排位锁，返回释放函数
func (l *PlacementLock) AcquirePlacementLock(ttl time.Duration) (func(), error) {
	if !Enabled() {
		return func() {}, nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	ctx := context.Background()
	token := uuid.NewString()
	key := buildKey(placementLockKey)

	deadline := time.Now().Add(ttl)
	for {
		ok, err := Client().SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}
		time.Sleep(50 * time.Millisecond)
	}

	return func() {
		_, _ = releaseScript.Run(ctx, Client(), []string{key}, token).Result()
	}, nil
}
