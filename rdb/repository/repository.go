package repository

import (
	"context"
	"strconv"

	"github.com/hatlonely/rooster/log"
	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/database"
	"github.com/hatlonely/rooster/rdb/grammar"
	"github.com/hatlonely/rooster/rdb/mapper"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
)

// Repository 单表的增删查，所有写操作在一个事务内完成
//
// Repository 只读持有表定义、方言和映射器，可以被多个 goroutine 并发使用，
// 连接池和并发安全由 executor 负责
type Repository[T any] struct {
	executor database.Executor
	grammar  grammar.Grammar
	table    *rdb.TableMetadata
	mapper   mapper.Mapper[T]
	logger   log.Logger
}

func NewRepository[T any](executor database.Executor, g grammar.Grammar, table *rdb.TableMetadata, m mapper.Mapper[T], opts ...Option) (*Repository[T], error) {
	if executor == nil {
		return nil, errors.WithMessage(rdb.ErrPrecondition, "executor must be provided")
	}
	if g == nil {
		return nil, errors.WithMessage(rdb.ErrPrecondition, "grammar must be provided")
	}
	if table == nil {
		return nil, errors.WithMessage(rdb.ErrPrecondition, "table must be provided")
	}
	if m == nil {
		return nil, errors.WithMessage(rdb.ErrPrecondition, "mapper must be provided")
	}

	o := &repositoryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}

	return &Repository[T]{
		executor: executor,
		grammar:  g,
		table:    table,
		mapper:   m,
		logger:   o.logger.With("table", table.Name(), "grammar", g.Name()),
	}, nil
}

// NewRepositoryWithOptions 方言按名称从注册表获取
func NewRepositoryWithOptions[T any](options *Options, executor database.Executor, m mapper.Mapper[T], opts ...Option) (*Repository[T], error) {
	if options == nil {
		return nil, errors.WithMessage(rdb.ErrPrecondition, "options must be provided")
	}
	g, err := grammar.Get(options.Grammar)
	if err != nil {
		return nil, err
	}
	table, err := rdb.NewTableMetadataWithOptions(&options.Table)
	if err != nil {
		return nil, err
	}
	return NewRepository[T](executor, g, table, m, opts...)
}

func (r *Repository[T]) Table() *rdb.TableMetadata {
	return r.table
}

func (r *Repository[T]) Grammar() grammar.Grammar {
	return r.grammar
}

// Save 写入固定列和动态列，参数顺序为固定列之后接动态列
func (r *Repository[T]) Save(ctx context.Context, entity *T) (*T, error) {
	if err := r.checkWritable("Save"); err != nil {
		return nil, err
	}
	sql, params, err := r.compileSave(entity)
	if err != nil {
		return nil, err
	}

	err = r.mutate(ctx, "Save", sql, 1, func(tx database.Transaction) error {
		_, err := tx.Execute(ctx, sql, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// SaveBatch 所有实体必须生成相同的语句，否则在执行任何语句之前返回 ErrInconsistentBatchShape
func (r *Repository[T]) SaveBatch(ctx context.Context, entities []*T) ([]*T, error) {
	if err := r.checkWritable("SaveBatch"); err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, errors.WithMessage(rdb.ErrPrecondition, "entities must not be empty")
	}

	var shape string
	argSets := make([][]any, 0, len(entities))
	for i, entity := range entities {
		sql, params, err := r.compileSave(entity)
		if err != nil {
			return nil, errors.WithMessagef(err, "entity %d", i)
		}
		if i == 0 {
			shape = sql
		} else if sql != shape {
			return nil, errors.WithMessagef(rdb.ErrInconsistentBatchShape, "entity %d compiles to [%s], entity 0 compiles to [%s]", i, sql, shape)
		}
		argSets = append(argSets, params)
	}

	err := r.mutate(ctx, "SaveBatch", shape, len(entities), func(tx database.Transaction) error {
		_, err := tx.ExecuteBatch(ctx, shape, argSets)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// Exists 等价于 Get 是否有结果
func (r *Repository[T]) Exists(ctx context.Context, id ID) (bool, error) {
	_, err := r.Get(ctx, id)
	if errors.Is(err, rdb.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	sql, err := r.grammar.Count(r.table)
	if err != nil {
		return 0, err
	}

	var count int64
	var found bool
	err = r.query(ctx, "Count", sql, nil, func(row rdb.Row) error {
		for _, value := range row {
			n, err := toInt64(value)
			if err != nil {
				return rdb.NewExecutionError(sql, err)
			}
			count, found = n, true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, rdb.NewExecutionError(sql, errors.New("count returned no row"))
	}
	return count, nil
}

// Delete 要求表可变且非只读
func (r *Repository[T]) Delete(ctx context.Context, id ID) error {
	return r.DeleteBatch(ctx, []ID{id})
}

// DeleteBatch 每个 id 一个 OR 分组，单条语句单个事务
func (r *Repository[T]) DeleteBatch(ctx context.Context, ids []ID) error {
	op := "DeleteBatch"
	if len(ids) == 1 {
		op = "Delete"
	}
	if err := r.checkWritable(op); err != nil {
		return err
	}
	if !r.table.Mutable() {
		return errors.WithMessagef(rdb.ErrPrecondition, "table %s is immutable, %s is not allowed", r.table.Name(), op)
	}
	if len(ids) == 0 {
		return errors.WithMessage(rdb.ErrPrecondition, "ids must not be empty")
	}

	params, err := flattenIDs(r.table, ids)
	if err != nil {
		return err
	}
	sql, err := r.grammar.DeleteByIDs(r.table, len(ids))
	if err != nil {
		return err
	}

	return r.mutate(ctx, op, sql, len(ids), func(tx database.Transaction) error {
		_, err := tx.Execute(ctx, sql, params)
		return err
	})
}

// Get 没有结果时返回 rdb.ErrRecordNotFound
func (r *Repository[T]) Get(ctx context.Context, id ID) (*T, error) {
	params, err := flattenIDs(r.table, []ID{id})
	if err != nil {
		return nil, err
	}
	sql, err := r.grammar.SelectByID(r.table, nil, 1, 1, r.mapper.DynamicColumnTypes(), nil)
	if err != nil {
		return nil, err
	}

	entities, err := r.fetch(ctx, "Get", sql, params)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, errors.WithMessagef(rdb.ErrRecordNotFound, "table %s id %v", r.table.Name(), []any(id))
	}
	return entities[0], nil
}

// FindAll 不带 WHERE，默认 limit 为 query.DefaultLimit
func (r *Repository[T]) FindAll(ctx context.Context, opts ...FindOption) ([]*T, error) {
	o, err := newFindOptions(opts)
	if err != nil {
		return nil, err
	}
	r.warnIgnoredConditions(ctx, "FindAll", o)
	sql, err := r.grammar.SelectByID(r.table, o.sort, o.limit, 0, r.mapper.DynamicColumnTypes(), o.projection)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, "FindAll", sql, nil)
}

// FindByIDs ids 为空时不查询，直接返回空结果
func (r *Repository[T]) FindByIDs(ctx context.Context, ids []ID, opts ...FindOption) ([]*T, error) {
	o, err := newFindOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*T{}, nil
	}

	params, err := flattenIDs(r.table, ids)
	if err != nil {
		return nil, err
	}
	r.warnIgnoredConditions(ctx, "FindByIDs", o)
	sql, err := r.grammar.SelectByID(r.table, o.sort, o.limit, len(ids), r.mapper.DynamicColumnTypes(), o.projection)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, "FindByIDs", sql, params)
}

func (r *Repository[T]) warnIgnoredConditions(ctx context.Context, op string, o *findOptions) {
	if o.ignored > 0 {
		r.logger.WarnContext(ctx, "query conditions are ignored", "op", op, "conditions", o.ignored)
	}
}

// Find 有条件时按条件查询，否则查询全表
func (r *Repository[T]) Find(ctx context.Context, q *query.Query) ([]*T, error) {
	if q == nil {
		return nil, errors.WithMessage(rdb.ErrPrecondition, "query must be provided")
	}

	var sql string
	var err error
	if q.HasConditions() {
		sql, err = r.grammar.SelectByCondition(r.table, q.Sort(), q.Limit(), q.Conditions(), r.mapper.DynamicColumnTypes(), q.Projection())
	} else {
		sql, err = r.grammar.SelectByID(r.table, q.Sort(), q.Limit(), 0, r.mapper.DynamicColumnTypes(), q.Projection())
	}
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, "Find", sql, q.Params())
}

func (r *Repository[T]) checkWritable(op string) error {
	if r.table.Readonly() {
		return errors.WithMessagef(rdb.ErrPrecondition, "table %s is readonly, %s is not allowed", r.table.Name(), op)
	}
	return nil
}

func (r *Repository[T]) compileSave(entity *T) (string, []any, error) {
	columns, err := r.mapper.ToColumns(entity)
	if err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		return "", nil, errors.WithMessage(rdb.ErrMapping, "entity maps to no column")
	}
	dynamic, err := r.mapper.ToDynamicColumns(entity)
	if err != nil {
		return "", nil, err
	}
	// 写入和读取使用同一份类型声明
	types := r.mapper.DynamicColumnTypes()
	for i := range dynamic {
		if dynamic[i].Type != "" {
			continue
		}
		if t, ok := types.Get(dynamic[i].Name); ok {
			dynamic[i].Type = t
		}
	}

	sql, err := r.grammar.Save(r.table, columns, dynamic)
	if err != nil {
		return "", nil, err
	}

	params := make([]any, 0, len(columns)+len(dynamic))
	params = append(params, columns.Values()...)
	params = append(params, dynamic.Values()...)
	return sql, params, nil
}

// mutate 在事务中执行写操作，失败时回滚并返回错误
func (r *Repository[T]) mutate(ctx context.Context, op string, sql string, size int, fn func(tx database.Transaction) error) error {
	if err := database.WithTx(ctx, r.executor, fn); err != nil {
		r.logger.ErrorContext(ctx, "mutation failed", "op", op, "sql", sql, "size", size, "error", err.Error())
		return err
	}
	r.logger.InfoContext(ctx, "mutation committed", "op", op, "size", size)
	return nil
}

func (r *Repository[T]) query(ctx context.Context, op string, sql string, params []any, fn func(row rdb.Row) error) error {
	r.logger.DebugContext(ctx, "query", "op", op, "sql", sql, "params", len(params))
	if err := r.executor.Query(ctx, sql, params, fn); err != nil {
		r.logger.ErrorContext(ctx, "query failed", "op", op, "sql", sql, "error", err.Error())
		return err
	}
	return nil
}

func (r *Repository[T]) fetch(ctx context.Context, op string, sql string, params []any) ([]*T, error) {
	entities := []*T{}
	err := r.query(ctx, op, sql, params, func(row rdb.Row) error {
		entity, err := r.mapper.FromRow(row)
		if err != nil {
			return err
		}
		entities = append(entities, entity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, errors.Errorf("unexpected count value %T", value)
}
