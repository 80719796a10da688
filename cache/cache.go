// Package cache 提供模拟结果的本地缓存：bigcache 存储、zstd 压缩、xxhash 键.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/wyfcoding/mcsim/xerrors"
)

// Cache 定义结果缓存接口.
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// Key 由运行输入计算缓存键. 输入以 JSON 编码后取 xxhash64，
// 相同输入 (模型参数、路径数、步长、种子等) 必然得到相同键.
func Key(prefix string, inputs ...any) (string, error) {
	d := xxhash.New()
	enc := json.NewEncoder(d)
	for _, in := range inputs {
		if err := enc.Encode(in); err != nil {
			return "", xerrors.Wrap(err, xerrors.ErrInvalidArg, "encode cache key input")
		}
	}
	return prefix + ":" + strconv.FormatUint(d.Sum64(), 16), nil
}

// IsMiss 判断是否为缓存未命中.
func IsMiss(err error) bool {
	return errors.Is(err, xerrors.ErrCacheMiss)
}
