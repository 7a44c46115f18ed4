package query

import (
	"strings"

	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
)

// Builder 链式构造 Query，记录第一个错误并在 Build 时返回
//
//	q, err := query.NewBuilder().
//		Where(query.Or(query.Eq("status", "Active"), query.Eq("status", "Suspended"))).
//		OrderBy(query.Desc("id")).
//		Limit(2).
//		Build()
type Builder struct {
	projection []string
	conditions []*Condition
	sort       Sort
	limit      int
	err        error
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Select 指定查询的列
func (b *Builder) Select(columns ...string) *Builder {
	for i, column := range columns {
		if strings.TrimSpace(column) == "" {
			return b.fail(errors.WithMessagef(rdb.ErrPrecondition, "projection column %d is empty", i))
		}
	}
	b.projection = append(b.projection, columns...)
	return b
}

// Where 追加顶层条件，多次调用之间是 AND 关系
func (b *Builder) Where(conditions ...*Condition) *Builder {
	if err := Validate(conditions); err != nil {
		return b.fail(err)
	}
	b.conditions = append(b.conditions, conditions...)
	return b
}

// OrderBy 追加排序列
func (b *Builder) OrderBy(orders ...Order) *Builder {
	if err := Sort(orders).Validate(); err != nil {
		return b.fail(err)
	}
	b.sort = append(b.sort, orders...)
	return b
}

// Limit n 必须在 (0, MaxLimit] 之间
func (b *Builder) Limit(n int) *Builder {
	if err := ValidateLimit(n); err != nil {
		return b.fail(err)
	}
	b.limit = n
	return b
}

// Build 未设置 limit 时使用 DefaultLimit
func (b *Builder) Build() (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}

	limit := b.limit
	if limit == 0 {
		limit = DefaultLimit
	}

	return &Query{
		projection: append([]string(nil), b.projection...),
		conditions: append([]*Condition(nil), b.conditions...),
		sort:       append(Sort(nil), b.sort...),
		limit:      limit,
	}, nil
}

// MustBuild 构造失败时 panic
func (b *Builder) MustBuild() *Query {
	q, err := b.Build()
	if err != nil {
		panic(err)
	}
	return q
}
