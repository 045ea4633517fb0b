package apperr

import "errors"

// Record 是 *Error 的传输形式：只含字符串，不携带任何原生错误
type Record struct {
	Message string `json:"message"`
	Op      string `json:"op,omitempty"`
	Kind    Kind   `json:"kind"`
	Err     string `json:"err,omitempty"`
}

// ToRecord 把任意错误转换为 Record；非 *Error 一律按 Internal 处理
func ToRecord(err error) Record {
	var e *Error
	if !errors.As(err, &e) {
		return Record{Message: err.Error(), Kind: Internal}
	}

	r := Record{
		Message: e.Message,
		Op:      e.Op,
		Kind:    e.Kind,
	}
	if e.Err != nil {
		r.Err = e.Err.Error()
	}
	return r
}

// AsError 是反方向的转换 (客户端收到 Record 后使用)
func (r Record) AsError() *Error {
	e := &Error{Op: r.Op, Kind: r.Kind, Message: r.Message}
	if r.Err != "" {
		e.Err = errors.New(r.Err)
	}
	if e.Kind == "" {
		e.Kind = Internal
	}
	return e
}
