package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hatlonely/rooster/rdb"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLOptions struct {
	// 驱动：mysql, sqlite3, postgres（Redshift 兼容 postgres 协议）
	Driver   string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3 postgres"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
	SSLMode  string `cfg:"sslMode" def:"disable"`

	MaxConns        int           `cfg:"maxConns" def:"10"`
	MaxIdle         int           `cfg:"maxIdle" def:"5"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime"`
}

// SQL 基于 database/sql 的执行器
type SQL struct {
	sqlQuerier
	db     *sql.DB
	driver string
}

func NewSQLWithOptions(options *SQLOptions) (*SQL, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	dsn, err := buildDSN(options)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s failed", options.Driver)
	}

	// 内存数据库每个连接相互独立，只能使用一个连接
	if options.Driver == "sqlite3" && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(options.MaxConns)
		db.SetMaxIdleConns(options.MaxIdle)
	}
	if options.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(options.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s failed", options.Driver)
	}

	return OpenDB(options.Driver, db), nil
}

// OpenDB 包装已有的连接池，postgres 驱动会把 ? 改写为 $n
func OpenDB(driver string, db *sql.DB) *SQL {
	return &SQL{
		sqlQuerier: sqlQuerier{conn: db, dollar: driver == "postgres"},
		db:         db,
		driver:     driver,
	}
}

func buildDSN(options *SQLOptions) (string, error) {
	if options.DSN != "" {
		return options.DSN, nil
	}
	switch options.Driver {
	case "mysql":
		port := options.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
			options.Username, options.Password, options.Host, port, options.Database, options.Charset), nil
	case "sqlite3":
		if options.Database == "" {
			return "", errors.New("sqlite3 requires database")
		}
		return options.Database, nil
	case "postgres":
		port := options.Port
		if port == "" {
			port = "5439"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			options.Host, port, options.Username, options.Password, options.Database, options.SSLMode), nil
	default:
		return "", errors.Errorf("unsupported driver: %s", options.Driver)
	}
}

func (s *SQL) Driver() string {
	return s.driver
}

func (s *SQL) DB() *sql.DB {
	return s.db
}

func (s *SQL) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, rdb.NewExecutionError("BEGIN", err)
	}

	return &SQLTransaction{
		sqlQuerier: sqlQuerier{conn: tx, dollar: s.dollar},
		tx:         tx,
	}, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// SQLTransaction database/sql 事务
type SQLTransaction struct {
	sqlQuerier
	tx *sql.Tx
}

func (t *SQLTransaction) Commit() error {
	return rdb.NewExecutionError("COMMIT", t.tx.Commit())
}

func (t *SQLTransaction) Rollback() error {
	return rdb.NewExecutionError("ROLLBACK", t.tx.Rollback())
}

// conn *sql.DB 与 *sql.Tx 的公共方法
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type sqlQuerier struct {
	conn   conn
	dollar bool
}

func (q *sqlQuerier) Execute(ctx context.Context, query string, args []any) (int64, error) {
	query = q.formatSQL(query)
	result, err := q.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, rdb.NewExecutionError(query, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, rdb.NewExecutionError(query, err)
	}
	return n, nil
}

func (q *sqlQuerier) ExecuteBatch(ctx context.Context, query string, argSets [][]any) ([]int64, error) {
	query = q.formatSQL(query)
	stmt, err := q.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, rdb.NewExecutionError(query, err)
	}
	defer stmt.Close()

	counts := make([]int64, 0, len(argSets))
	for i, args := range argSets {
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return counts, rdb.NewExecutionError(query, errors.WithMessagef(err, "batch item %d", i))
		}
		n, err := result.RowsAffected()
		if err != nil {
			return counts, rdb.NewExecutionError(query, err)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

func (q *sqlQuerier) Query(ctx context.Context, query string, args []any, fn func(row rdb.Row) error) error {
	query = q.formatSQL(query)
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return rdb.NewExecutionError(query, err)
	}
	defer rows.Close()

	return scanRows(query, rows, fn)
}

// formatSQL postgres 使用 $1, $2, $3... 格式的占位符，生成的 SQL 中不包含字符串字面量
func (q *sqlQuerier) formatSQL(query string) string {
	if !q.dollar || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// scanRows 把每一行扫描为列名到值的映射
func scanRows(query string, rows *sql.Rows, fn func(row rdb.Row) error) error {
	columns, err := rows.Columns()
	if err != nil {
		return rdb.NewExecutionError(query, err)
	}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return rdb.NewExecutionError(query, err)
		}

		row := make(rdb.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		if err := fn(row); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return rdb.NewExecutionError(query, err)
	}
	return nil
}
