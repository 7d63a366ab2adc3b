package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 通用错误码。知识库领域的错误码在 kb_codes.go 中定义。
var (
	// OK 占住 0 号成功码，防止业务码误注册为 0。
	OK = Register(&Errno{
		Code:      0,
		HTTP:      http.StatusOK,
		GRPCCode:  codes.OK,
		MessageEN: "Success",
		MessageZH: "成功",
	})

	// ErrRateLimitExceeded 请求超出限流窗口配额。
	ErrRateLimitExceeded = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRateLimit, 0),
		HTTP:      http.StatusTooManyRequests,
		GRPCCode:  codes.ResourceExhausted,
		MessageEN: "Too many requests",
		MessageZH: "请求过于频繁",
	})

	// ErrInternal 未分类的内部错误，也是非 Errno 错误的兜底包装。
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server error",
		MessageZH: "内部服务器错误",
	})

	// ErrDatabase 关系存储访问失败。
	ErrDatabase = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database error",
		MessageZH: "数据库错误",
	})
)
