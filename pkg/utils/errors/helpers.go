package errors

// FromError 将任意 error 归一化为 Errno。
// 已是 Errno 的原样返回，其余包装为 ErrInternal 并保留原因链。
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Errno); ok {
		return e
	}
	return ErrInternal.WithCause(err)
}
