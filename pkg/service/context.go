package service

// UnknownUser 是未鉴权请求的调用方标识 (目前不做鉴权)
const UnknownUser = "unknown"

// RequestContext 描述一次请求的调用方和操作名，出错时挂到 apperr.Error 上
type RequestContext struct {
	User string
	Op   string // 通常是请求 URI
}

// NewRequestContext 构造请求上下文，空 user 视为 UnknownUser
func NewRequestContext(user, op string) RequestContext {
	if user == "" {
		user = UnknownUser
	}
	return RequestContext{User: user, Op: op}
}
