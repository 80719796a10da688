// Package xerrors 提供模拟引擎统一的错误分类与构造工具。
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType 错误的大类
type ErrorType uint

const (
	ErrUnknown ErrorType = iota
	ErrInternal
	ErrInvalidArg       // 调用参数非法 (路径数、步数、置信度、矩阵维度等)
	ErrInvalidParam     // 模型参数非法 (波动率为负、初始价格非正等)
	ErrNotFound
	ErrUnavailable
)

// Error 增强型错误结构
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    int            `json:"code"`    // 错误码
	Message string         `json:"message"` // 对外展示的消息
	Detail  string         `json:"detail"`  // 调试细节
	Cause   error          `json:"-"`       // 原始错误
	Stack   []string       `json:"stack"`
	Context map[string]any `json:"context"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %d: %s", e.Type.String(), e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (Cause: %v)", e.Cause)
	}
	return msg
}

// Unwrap 实现 Go 1.13 解包接口
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按 Type 与 Code 比较，调用方附加 Detail 后仍能与哨兵错误匹配。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (t ErrorType) String() string {
	names := [...]string{"Unknown", "Internal", "InvalidArgument", "InvalidParameter", "NotFound", "Unavailable"}
	if int(t) >= len(names) {
		return "Unknown"
	}
	return names[t]
}

// --- 核心构造函数 ---

// New 创建新错误并自动捕获堆栈
func New(errType ErrorType, code int, message string, detail string, cause error) *Error {
	e := &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
		Context: make(map[string]any),
	}
	e.captureStack()
	return e
}

// captureStack 捕获当前调用栈 (深度限制 10 层)
func (e *Error) captureStack() {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		e.Stack = append(e.Stack, fmt.Sprintf("%s:%d (%s)", frame.File, frame.Line, frame.Function))
		if !more || len(e.Stack) >= depth {
			break
		}
	}
}

// --- 链式 API ---

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// WithDetail 基于哨兵错误派生一个带细节的新错误，哨兵本身不被修改。
func (e *Error) WithDetail(format string, args ...any) *Error {
	out := New(e.Type, e.Code, e.Message, fmt.Sprintf(format, args...), e.Cause)
	for k, v := range e.Context {
		out.Context[k] = v
	}
	return out
}

// --- 快捷构造工具 ---

func Internal(msg string, cause error) *Error {
	return New(ErrInternal, 500, msg, "", cause)
}

// InvalidArgument 构造调用参数错误，可用 errors.Is(err, ErrInvalidArgument) 匹配。
func InvalidArgument(format string, args ...any) *Error {
	return New(ErrInvalidArg, codeInvalidArgument, "invalid argument", fmt.Sprintf(format, args...), nil)
}

// InvalidParameter 构造模型参数错误，可用 errors.Is(err, ErrInvalidParameter) 匹配。
func InvalidParameter(format string, args ...any) *Error {
	return New(ErrInvalidParam, codeInvalidParameter, "invalid parameter", fmt.Sprintf(format, args...), nil)
}

func NotFound(msg string) *Error {
	return New(ErrNotFound, 404, msg, "", nil)
}

// Wrap 包装现有错误并捕获堆栈
func Wrap(err error, errType ErrorType, msg string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := FromError(err); ok {
		return New(e.Type, e.Code, msg, e.Detail, err)
	}
	return New(errType, codeFor(errType), msg, "", err)
}

func codeFor(t ErrorType) int {
	switch t {
	case ErrInvalidArg:
		return codeInvalidArgument
	case ErrInvalidParam:
		return codeInvalidParameter
	case ErrNotFound:
		return 404
	case ErrInternal:
		return 500
	default:
		return int(t)
	}
}

// WrapInternal 快速包装内部错误
func WrapInternal(err error, msg string) *Error {
	return Wrap(err, ErrInternal, msg)
}

// IsInvalidArgument 判断错误链中是否包含调用参数错误。
func IsInvalidArgument(err error) bool {
	return hasType(err, ErrInvalidArg)
}

// IsInvalidParameter 判断错误链中是否包含模型参数错误。
func IsInvalidParameter(err error) bool {
	return hasType(err, ErrInvalidParam)
}

func hasType(err error, t ErrorType) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Type == t {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// ExitCode 将错误映射为命令行退出码。
func (e *Error) ExitCode() int {
	switch e.Type {
	case ErrInvalidArg, ErrInvalidParam:
		return 2
	case ErrNotFound:
		return 3
	default:
		return 1
	}
}

// FromError 尝试转换
func FromError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
