// Package apperr 是整个服务共用的错误类型。
//
// 存储层只返回窄错误 (storage.ErrNotFound / storage.IOError)，
// 由 service 层翻译成带 Op、Kind、Message 的 *Error，
// 最终在传输边界通过 Record 序列化，内部错误只以字符串形式出网。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind 是封闭的错误分类
type Kind string

const (
	Permission Kind = "Permission" // 预留：调用方无权限 (当前不做鉴权)
	BadRequest Kind = "BadRequest" // 输入不合法：空 payload、编码错误等
	Internal   Kind = "Internal"   // 序列化、IO 或其他意外失败
	NotFound   Kind = "NotFound"   // Blob / Node 不存在
)

func (k Kind) String() string { return string(k) }

// HTTPStatus 返回 Kind 对应的 HTTP 状态码，未知 Kind 按 500 处理
func (k Kind) HTTPStatus() int {
	switch k {
	case Permission:
		return http.StatusForbidden
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error 是进程内的错误表示，Err 保留原始错误供日志和 errors.Is 使用
type Error struct {
	User    string // 调用方身份，可为空
	Op      string // 操作名，例如 "POST /blob"
	Kind    Kind
	Message string
	Err     error
}

// New 构造一个没有内部错误的 *Error
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf 同 New，支持格式化
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 用一个底层错误构造 *Error
func Wrap(err error, msg string, kind Kind) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// WithOp 设置操作名；已经有 Op 的保持不变 (最先观察到失败的一层说了算)
func (e *Error) WithOp(op string) *Error {
	if e.Op == "" {
		e.Op = op
	}
	return e
}

// WithUser 记录调用方身份
func (e *Error) WithUser(user string) *Error {
	if e.User == "" {
		e.User = user
	}
	return e
}

// Error 输出单行结构化记录:
// { user: 'bilbo', op: 'server.Put', kind: 'Permission', message: '...', err: '...' }
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("{ ")
	if e.User != "" {
		fmt.Fprintf(&b, "user: '%s', ", e.User)
	}
	if e.Op != "" {
		fmt.Fprintf(&b, "op: '%s', ", e.Op)
	}
	fmt.Fprintf(&b, "kind: '%s', ", e.Kind)
	fmt.Fprintf(&b, "message: '%s'", e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ", err: '%s'", e.Err)
	}
	b.WriteString(" }")
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf 取错误链上第一个 *Error 的 Kind，没有则视为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is 判断错误链上是否有指定 Kind 的 *Error
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
