package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// scriptedLockClient 录制调用的本地替身，SetNX 结果可预置
type scriptedLockClient struct {
	acquired bool

	setKey   string
	setOwner string
	released bool
	relKey   string
	relOwner string
}

func (c *scriptedLockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	c.setKey = key
	c.setOwner = fmt.Sprint(value)
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(c.acquired)
	return cmd
}

func (c *scriptedLockClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	c.released = true
	if len(keys) > 0 {
		c.relKey = keys[0]
	}
	if len(args) > 0 {
		c.relOwner = fmt.Sprint(args[0])
	}
	cmd := redis.NewCmd(ctx)
	cmd.SetVal(int64(1))
	return cmd
}

func TestWithLockDisabledFallback(t *testing.T) {
	locker := NewRedisLocker()
	ran := false
	err := locker.WithLock(context.Background(), "fallback", time.Second, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("未启用缓存时应直跑: %v", err)
	}
	if !ran {
		t.Fatal("fn 未执行")
	}

	wantErr := errors.New("fn failed")
	err = locker.WithLock(context.Background(), "fallback", time.Second, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("fn 错误应原样返回: %v", err)
	}
}

func TestWithLockReleasesAfterCompletion(t *testing.T) {
	client := &scriptedLockClient{acquired: true}
	locker := &RedisLocker{client: client}
	ran := false
	err := locker.WithLock(context.Background(), "workflow:code-1", 30*time.Second, func(ctx context.Context) error {
		ran = true
		if client.released {
			t.Fatal("锁不应在 fn 执行期间释放")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("持锁执行失败: %v", err)
	}
	if !ran {
		t.Fatal("fn 未执行")
	}
	if !client.released {
		t.Fatal("执行完成后锁未释放")
	}
	if client.relKey != client.setKey {
		t.Fatalf("释放键与加锁键不一致: %q vs %q", client.relKey, client.setKey)
	}
	if client.relOwner != client.setOwner {
		t.Fatalf("释放持有者与加锁持有者不一致: %q vs %q", client.relOwner, client.setOwner)
	}
}

func TestWithLockReleasesOnFnError(t *testing.T) {
	client := &scriptedLockClient{acquired: true}
	locker := &RedisLocker{client: client}
	wantErr := errors.New("workflow failed")
	err := locker.WithLock(context.Background(), "workflow:code-2", 30*time.Second, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("fn 错误应原样返回: %v", err)
	}
	if !client.released {
		t.Fatal("fn 失败后锁同样应释放")
	}
}

func TestWithLockNotAcquired(t *testing.T) {
	client := &scriptedLockClient{acquired: false}
	locker := &RedisLocker{client: client}
	err := locker.WithLock(context.Background(), "workflow:code-3", 30*time.Second, func(ctx context.Context) error {
		t.Fatal("未抢到锁不应执行 fn")
		return nil
	})
	if !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("期望 ErrLockNotAcquired，得到: %v", err)
	}
	if client.released {
		t.Fatal("未抢到锁不应触发释放")
	}
}
