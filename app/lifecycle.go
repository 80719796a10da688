// Package app 管理命令运行期间的附属组件 (追踪、指标服务、缓存) 的启动与关闭顺序.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Hook 定义了生命周期钩子，包含启动和停止逻辑
type Hook struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Lifecycle 管理多个组件的生命周期. 停止顺序与启动顺序相反.
type Lifecycle struct {
	logger  *slog.Logger
	mu      sync.Mutex
	hooks   []Hook
	started int
}

// NewLifecycle 创建一个新的生命周期管理器
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{logger: logger}
}

// Append 添加一个生命周期钩子
func (l *Lifecycle) Append(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Start 按顺序启动所有组件. 某个组件启动失败时，已启动的组件按相反顺序停止.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := l.started; i < len(l.hooks); i++ {
		hook := l.hooks[i]
		if hook.OnStart != nil {
			l.logger.DebugContext(ctx, "starting component", "name", hook.Name)
			if err := hook.OnStart(ctx); err != nil {
				l.logger.ErrorContext(ctx, "failed to start component", "name", hook.Name, "error", err)
				return errors.Join(err, l.stopLocked(ctx))
			}
		}
		l.started = i + 1
	}
	return nil
}

// Stop 以相反的顺序停止已启动的组件，返回所有停止错误.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked(ctx)
}

func (l *Lifecycle) stopLocked(ctx context.Context) error {
	var errs []error
	for i := l.started - 1; i >= 0; i-- {
		hook := l.hooks[i]
		if hook.OnStop == nil {
			continue
		}
		l.logger.DebugContext(ctx, "stopping component", "name", hook.Name)
		if err := hook.OnStop(ctx); err != nil {
			l.logger.ErrorContext(ctx, "failed to stop component", "name", hook.Name, "error", err)
			errs = append(errs, err)
		}
	}
	l.started = 0
	return errors.Join(errs...)
}
