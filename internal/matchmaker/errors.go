package matchmaker

import "errors"

var (
	// ErrInvalidRequest 请求在进入队列之前即被拒绝（例如角色列表为空）
	ErrInvalidRequest = errors.New("invalid request")
	// ErrResourceExhausted 口令空间内所有候选都与存活口令冲突，调用方稍后重试
	ErrResourceExhausted = errors.New("password space exhausted")
)
