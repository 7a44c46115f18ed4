package database

import (
	"context"

	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormOptions GORM 执行器配置
type GormOptions struct {
	// 数据库驱动：sqlite, mysql
	Driver string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite"`
	DSN    string `cfg:"dsn"`
	// 预编译语句缓存
	PrepareStmt bool `cfg:"prepareStmt"`
}

// Gorm 基于 GORM 的执行器，只使用 Raw/Exec，不使用 GORM 的模型能力
type Gorm struct {
	db *gorm.DB
}

func NewGormWithOptions(options *GormOptions) (*Gorm, error) {
	if options == nil {
		return nil, errors.New("gorm options is nil")
	}
	if options.DSN == "" {
		return nil, errors.New("gorm dsn is required")
	}

	config := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: options.PrepareStmt,
	}

	var db *gorm.DB
	var err error
	switch options.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(options.DSN), config)
	case "mysql":
		db, err = gorm.Open(mysql.Open(options.DSN), config)
	default:
		return nil, errors.Errorf("unsupported gorm driver: %s", options.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	// sqlite 内存库只能使用一个连接
	if options.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get sql.DB")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return NewGorm(db), nil
}

// NewGorm 包装已有的 *gorm.DB
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Execute(ctx context.Context, sql string, args []any) (int64, error) {
	return gormExecute(g.db.WithContext(ctx), sql, args)
}

// ExecuteBatch 开启预编译会话，同一条语句只准备一次
func (g *Gorm) ExecuteBatch(ctx context.Context, sql string, argSets [][]any) ([]int64, error) {
	return gormExecuteBatch(g.db.WithContext(ctx).Session(&gorm.Session{PrepareStmt: true}), sql, argSets)
}

func (g *Gorm) Query(ctx context.Context, sql string, args []any, fn func(row rdb.Row) error) error {
	return gormQuery(g.db.WithContext(ctx), sql, args, fn)
}

func (g *Gorm) BeginTx(ctx context.Context) (Transaction, error) {
	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, rdb.NewExecutionError("BEGIN", tx.Error)
	}
	return &GormTransaction{tx: tx}, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormTransaction GORM 事务
type GormTransaction struct {
	tx *gorm.DB
}

func (t *GormTransaction) Execute(ctx context.Context, sql string, args []any) (int64, error) {
	return gormExecute(t.tx.WithContext(ctx), sql, args)
}

func (t *GormTransaction) ExecuteBatch(ctx context.Context, sql string, argSets [][]any) ([]int64, error) {
	return gormExecuteBatch(t.tx.WithContext(ctx), sql, argSets)
}

func (t *GormTransaction) Query(ctx context.Context, sql string, args []any, fn func(row rdb.Row) error) error {
	return gormQuery(t.tx.WithContext(ctx), sql, args, fn)
}

func (t *GormTransaction) Commit() error {
	return rdb.NewExecutionError("COMMIT", t.tx.Commit().Error)
}

func (t *GormTransaction) Rollback() error {
	return rdb.NewExecutionError("ROLLBACK", t.tx.Rollback().Error)
}

func gormExecute(db *gorm.DB, sql string, args []any) (int64, error) {
	result := db.Exec(sql, args...)
	if result.Error != nil {
		return 0, rdb.NewExecutionError(sql, result.Error)
	}
	return result.RowsAffected, nil
}

func gormExecuteBatch(db *gorm.DB, sql string, argSets [][]any) ([]int64, error) {
	counts := make([]int64, 0, len(argSets))
	for i, args := range argSets {
		result := db.Exec(sql, args...)
		if result.Error != nil {
			return counts, rdb.NewExecutionError(sql, errors.WithMessagef(result.Error, "batch item %d", i))
		}
		counts = append(counts, result.RowsAffected)
	}
	return counts, nil
}

func gormQuery(db *gorm.DB, sql string, args []any, fn func(row rdb.Row) error) error {
	rows, err := db.Raw(sql, args...).Rows()
	if err != nil {
		return rdb.NewExecutionError(sql, err)
	}
	defer rows.Close()

	return scanRows(sql, rows, fn)
}
