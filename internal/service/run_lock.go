package service

import (
	"context"
	"fmt"
	"time"

	"dms_orgsync/pkg/log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RunLock 保证同一时刻只有一个同步进程写 employees 表。
type RunLock interface {
	// Acquire 成功时返回释放函数；锁被占用时返回 ErrSyncInProgress
	Acquire(ctx context.Context) (release func(), err error)
}

// NoopRunLock 在未配置 Redis 时使用，串行执行由运维人员保证。
type NoopRunLock struct{}

func (NoopRunLock) Acquire(context.Context) (func(), error) {
	return func() {}, nil
}

// lockClient 是 RunLock 用到的 Redis 命令子集，*redis.Client 满足该接口。
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// 只删除自己持有的锁，避免锁过期后误删别人的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisRunLock struct {
	client lockClient
	key    string
	ttl    time.Duration
}

// NewRedisRunLock 基于 SETNX + TTL 的运行锁。TTL 兜底进程崩溃后锁无法释放的情况。
func NewRedisRunLock(client lockClient, key string, ttl time.Duration) RunLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisRunLock{client: client, key: key, ttl: ttl}
}

func (l *redisRunLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	log.Infow("Run lock acquired", "key", l.key, "ttl", l.ttl)

	release := func() {
		if err := releaseScript.Run(context.Background(), l.client, []string{l.key}, token).Err(); err != nil {
			log.Error("Failed to release run lock", err)
		}
	}
	return release, nil
}

// RunExclusive 持有运行锁执行 fn，fn 返回后释放锁。
func RunExclusive(ctx context.Context, lock RunLock, fn func() error) error {
	if lock == nil {
		lock = NoopRunLock{}
	}
	release, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
