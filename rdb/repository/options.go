package repository

import (
	"strings"

	"github.com/hatlonely/rooster/log"
	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
)

// Options 仓库配置，表结构与方言从配置文件读取
type Options struct {
	Grammar string                   `cfg:"grammar" def:"phoenix" validate:"required"`
	Table   rdb.TableMetadataOptions `cfg:"table"`
}

// Option 仓库构造选项
type Option func(*repositoryOptions)

type repositoryOptions struct {
	logger log.Logger
}

// WithLogger 默认使用 log.Default()
func WithLogger(logger log.Logger) Option {
	return func(o *repositoryOptions) {
		o.logger = logger
	}
}

// FindOption 读操作选项
type FindOption func(*findOptions)

type findOptions struct {
	sort       query.Sort
	limit      int
	projection []string
	// ignored 通过 WithQuery 传入但不会生效的条件数
	ignored int
}

func WithSort(orders ...query.Order) FindOption {
	return func(o *findOptions) {
		o.sort = append(o.sort, orders...)
	}
}

// WithLimit 必须在 (0, query.MaxLimit] 内
func WithLimit(limit int) FindOption {
	return func(o *findOptions) {
		o.limit = limit
	}
}

// WithProjection 只查询指定的列，不指定时使用表的默认投影
func WithProjection(columns ...string) FindOption {
	return func(o *findOptions) {
		o.projection = append(o.projection, columns...)
	}
}

// WithQuery 使用查询的排序、limit 和投影，查询条件不生效
func WithQuery(q *query.Query) FindOption {
	return func(o *findOptions) {
		if q == nil {
			return
		}
		o.sort = q.Sort()
		o.limit = q.Limit()
		o.projection = q.Projection()
		o.ignored = len(q.Conditions())
	}
}

func newFindOptions(opts []FindOption) (*findOptions, error) {
	o := &findOptions{limit: query.DefaultLimit}
	for _, opt := range opts {
		opt(o)
	}
	if err := query.ValidateLimit(o.limit); err != nil {
		return nil, err
	}
	if err := o.sort.Validate(); err != nil {
		return nil, err
	}
	for i, column := range o.projection {
		if strings.TrimSpace(column) == "" {
			return nil, errors.WithMessagef(rdb.ErrPrecondition, "projection column %d is empty", i)
		}
	}
	return o, nil
}
