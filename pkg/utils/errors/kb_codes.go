package errors

import "google.golang.org/grpc/codes"

// 知识库服务代码: 21 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 21 (知识库服务)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrKBInvalidRequest = Register(New(MakeCode(ServiceKB, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))
	ErrKBInvalidFilter  = Register(New(MakeCode(ServiceKB, CategoryRequest, 2), 400, codes.InvalidArgument, "Invalid search filter", "检索过滤条件无效"))

	// 资源相关错误 (类别 04)
	ErrKBDocumentNotFound = Register(New(MakeCode(ServiceKB, CategoryResource, 1), 404, codes.NotFound, "Document not found", "文档不存在"))
	ErrKBFileNotFound     = Register(New(MakeCode(ServiceKB, CategoryResource, 2), 404, codes.NotFound, "Stored file not found", "存储文件不存在"))

	// 解析相关错误 (类别 01/07)
	ErrKBUnsupportedFormat = Register(New(MakeCode(ServiceKB, CategoryRequest, 3), 400, codes.InvalidArgument, "Unsupported file format", "不支持的文件格式"))
	ErrKBEmptyContent      = Register(New(MakeCode(ServiceKB, CategoryInternal, 1), 422, codes.FailedPrecondition, "No text could be extracted", "未能提取到文本"))
	ErrKBParseFailed       = Register(New(MakeCode(ServiceKB, CategoryInternal, 6), 422, codes.FailedPrecondition, "Failed to parse document", "文档解析失败"))

	// 处理管线错误 (类别 05/07)
	ErrKBAlreadyProcessing = Register(New(MakeCode(ServiceKB, CategoryConflict, 1), 409, codes.Aborted, "Document is already being processed", "文档正在处理中"))
	ErrKBProcessFailed     = Register(New(MakeCode(ServiceKB, CategoryInternal, 2), 500, codes.Internal, "Document processing failed", "文档处理失败"))
	ErrKBEmbeddingFailed   = Register(New(MakeCode(ServiceKB, CategoryInternal, 3), 500, codes.Internal, "Embedding generation failed", "向量生成失败"))
	ErrKBIndexFailed       = Register(New(MakeCode(ServiceKB, CategoryInternal, 4), 500, codes.Internal, "Vector index operation failed", "向量索引操作失败"))

	// 检索相关错误 (类别 07/11)
	ErrKBSearchFailed  = Register(New(MakeCode(ServiceKB, CategoryInternal, 5), 500, codes.Internal, "Search failed", "检索失败"))
	ErrKBSearchTimeout = Register(New(MakeCode(ServiceKB, CategoryTimeout, 1), 504, codes.DeadlineExceeded, "Search timeout", "检索超时"))
)
