package errors

import "errors"

// ErrConcurrentCreate 并发创建冲突：同一 (student_id, date) 的记录已被其他写入者抢先创建
var ErrConcurrentCreate = errors.New("记录已被并发创建，请刷新后重试")
