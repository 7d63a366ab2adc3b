package pool

import "errors"

var (
	// ErrPoolClosed 池已关闭。
	ErrPoolClosed = errors.New("协程池已关闭")

	// ErrPoolNotFound 未找到指定名称的池。
	ErrPoolNotFound = errors.New("协程池不存在")

	// ErrPoolExists 同名池已存在。
	ErrPoolExists = errors.New("协程池已存在")

	// ErrInvalidPoolName 池名称非法。
	ErrInvalidPoolName = errors.New("协程池名称不能为空")

	// ErrInvalidCapacity 池容量非法。
	ErrInvalidCapacity = errors.New("协程池容量必须为正数")
)
