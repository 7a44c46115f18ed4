package rdb

import (
	"fmt"

	"github.com/pkg/errors"
)

// 错误分类，调用方通过 errors.Is 判断
var (
	// ErrPrecondition 参数缺失、id 元数不匹配、只读/不可变表等前置条件错误，在构建 SQL 之前返回
	ErrPrecondition = errors.New("precondition failed")
	// ErrOutOfRange limit 超出范围，属于 ErrPrecondition
	ErrOutOfRange = errors.WithMessage(ErrPrecondition, "out of range")
	// ErrInvalidCondition 条件树结构非法，在构造时返回
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrMapping 实体与列之间的映射错误
	ErrMapping = errors.New("mapping error")
	// ErrUnsupportedType 方言无法识别的参数类型
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrInconsistentBatchShape 批量写入的实体列结构不一致
	ErrInconsistentBatchShape = errors.New("inconsistent batch shape")
	// ErrExecution 执行器返回的错误
	ErrExecution = errors.New("execution failed")
	// ErrRecordNotFound 按 id 查询没有结果
	ErrRecordNotFound = errors.New("record not found")
)

// ExecutionError 执行器错误，保留出错的 SQL 以便排查
type ExecutionError struct {
	SQL string
	Err error
}

// NewExecutionError 包装执行器错误，err 为 nil 时返回 nil
func NewExecutionError(sql string, err error) error {
	if err == nil {
		return nil
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return &ExecutionError{SQL: sql, Err: err}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%v: %v. sql: [%s]", ErrExecution, e.Err, e.SQL)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrExecution) 成立
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
