package database

import (
	"context"

	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
)

// Querier 执行已经生成好的 SQL，参数与 ? 占位符按位置绑定
type Querier interface {
	// Execute 执行一条写语句，返回影响行数
	Execute(ctx context.Context, sql string, args []any) (int64, error)
	// ExecuteBatch 同一条语句预编译一次，依次绑定每组参数执行
	ExecuteBatch(ctx context.Context, sql string, argSets [][]any) ([]int64, error)
	// Query 逐行回调，fn 返回错误时停止遍历
	Query(ctx context.Context, sql string, args []any, fn func(row rdb.Row) error) error
}

// Transaction 事务内的 Querier
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Executor 可以开启事务的 Querier，由调用方创建并在多个 Repository 之间共享
type Executor interface {
	Querier
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚，否则提交
func WithTx(ctx context.Context, executor Executor, fn func(tx Transaction) error) (err error) {
	tx, err := executor.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.WithMessagef(err, "rollback failed: %v", rerr)
		}
		return err
	}

	return tx.Commit()
}
