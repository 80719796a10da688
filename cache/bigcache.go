package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/wyfcoding/mcsim/xerrors"
)

// Options BigCache 参数.
type Options struct {
	LifeWindow       time.Duration // 全局过期时间
	Shards           int           // 分片数，必须是 2 的幂
	HardMaxCacheSize int           // 最大容量 (MB)，0 表示不限
	Compress         bool          // 是否对 JSON 负载做 zstd 压缩
}

// BigCache 使用 allegro/bigcache 实现 Cache. 值以 JSON 编码存储，可选 zstd 压缩.
type BigCache struct {
	cache    *bigcache.BigCache
	compress bool
}

// NewBigCache 创建 BigCache.
func NewBigCache(opts Options) (*BigCache, error) {
	if opts.LifeWindow <= 0 {
		return nil, xerrors.InvalidArgument("cache life window must be positive, got %s", opts.LifeWindow)
	}
	config := bigcache.DefaultConfig(opts.LifeWindow)
	if opts.Shards > 0 {
		config.Shards = opts.Shards
	}
	config.HardMaxCacheSize = opts.HardMaxCacheSize
	config.CleanWindow = opts.LifeWindow
	config.Verbose = false

	c, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "init bigcache")
	}
	return &BigCache{cache: c, compress: opts.Compress}, nil
}

// Get 读取 key 并解码到 value，未命中返回 ErrCacheMiss.
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return xerrors.ErrCacheMiss.WithDetail("key %s", key)
		}
		return xerrors.WrapInternal(err, "bigcache get")
	}
	if c.compress {
		if data, err = decompress(data); err != nil {
			return xerrors.WrapInternal(err, "decode cached entry")
		}
	}
	if err := json.Unmarshal(data, value); err != nil {
		return xerrors.WrapInternal(err, "decode cached entry")
	}
	return nil
}

// Set 写入 key. bigcache 只支持全局过期时间.
func (c *BigCache) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return xerrors.WrapInternal(err, "encode cache entry")
	}
	if c.compress {
		data = compress(data)
	}
	if err := c.cache.Set(key, data); err != nil {
		return xerrors.WrapInternal(err, "bigcache set")
	}
	return nil
}

// Delete 删除一个或多个键，不存在的键被忽略.
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return xerrors.WrapInternal(err, "bigcache delete")
		}
	}
	return nil
}

func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bigcache.ErrEntryNotFound):
		return false, nil
	default:
		return false, xerrors.WrapInternal(err, "bigcache get")
	}
}

// Len 当前条目数.
func (c *BigCache) Len() int {
	return c.cache.Len()
}

func (c *BigCache) Close() error {
	return c.cache.Close()
}
