package query

import (
	"fmt"
	"strings"

	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
)

const (
	// MaxLimit 单次查询返回的最大行数
	MaxLimit = 5000
	// DefaultLimit 未指定 limit 时使用的默认值
	DefaultLimit = 5000
	// NoLimit 不生成 LIMIT 子句，只在内部全表扫描时使用
	NoLimit = -1
)

// Direction 排序方向
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Order 单列排序
type Order struct {
	Column    string    `cfg:"column" validate:"required"`
	Direction Direction `cfg:"direction" def:"ASC" validate:"oneof=ASC DESC"`
}

func Asc(column string) Order {
	return Order{Column: column, Direction: ASC}
}

func Desc(column string) Order {
	return Order{Column: column, Direction: DESC}
}

func (o Order) String() string {
	return o.Column + " " + string(o.Direction)
}

// Sort 多列排序，保持调用方指定的顺序
type Sort []Order

// Validate 列名不能为空，方向只能是 ASC 或 DESC
func (s Sort) Validate() error {
	for i, order := range s {
		if strings.TrimSpace(order.Column) == "" {
			return errors.WithMessagef(rdb.ErrPrecondition, "sort column %d is empty", i)
		}
		if order.Direction != ASC && order.Direction != DESC {
			return errors.WithMessagef(rdb.ErrPrecondition, "invalid sort direction %q on column %s", order.Direction, order.Column)
		}
	}
	return nil
}

func (s Sort) String() string {
	parts := make([]string, len(s))
	for i, order := range s {
		parts[i] = order.String()
	}
	return strings.Join(parts, ", ")
}

// ValidateLimit 0 < limit <= MaxLimit
func ValidateLimit(limit int) error {
	if limit <= 0 || limit > MaxLimit {
		return errors.WithMessagef(rdb.ErrOutOfRange, "limit %d not in (0, %d]", limit, MaxLimit)
	}
	return nil
}

// Query 不可变的查询描述，由 Builder 创建
type Query struct {
	projection []string
	conditions []*Condition
	sort       Sort
	limit      int
}

// Projection 查询的列，nil 表示使用表的默认投影
func (q *Query) Projection() []string {
	if len(q.projection) == 0 {
		return nil
	}
	return append([]string(nil), q.projection...)
}

// Conditions 顶层条件列表，隐式 AND 连接
func (q *Query) Conditions() []*Condition {
	return append([]*Condition(nil), q.conditions...)
}

func (q *Query) HasConditions() bool {
	return len(q.conditions) > 0
}

func (q *Query) Sort() Sort {
	return append(Sort(nil), q.sort...)
}

func (q *Query) Limit() int {
	return q.limit
}

// Params 条件参数，顺序与渲染出的占位符一致
func (q *Query) Params() []any {
	return ToParams(q.conditions)
}

func (q *Query) String() string {
	conditions := make([]string, len(q.conditions))
	for i, c := range q.conditions {
		conditions[i] = c.SQL()
	}
	return fmt.Sprintf("Query[projection=%v, conditions=%v, sort=[%v], limit=%d]",
		q.projection, conditions, q.sort, q.limit)
}
