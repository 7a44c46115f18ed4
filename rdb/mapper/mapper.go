package mapper

import (
	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
)

// Mapper 实体与列之间的双向映射
// 同一实体类型的所有实例，ToColumns/ToDynamicColumns 返回的列顺序必须一致，批量写入依赖这一点复用同一条语句
type Mapper[T any] interface {
	// ToColumns 固定列，不能为空
	ToColumns(entity *T) (rdb.Columns, error)
	// ToDynamicColumns 动态列，可以为空但不会是 nil
	ToDynamicColumns(entity *T) (rdb.Columns, error)
	// DynamicColumnTypes 动态列的 SQL 类型，与具体实例无关
	DynamicColumnTypes() rdb.ColumnTypes
	FromRow(row rdb.Row) (*T, error)
}

// Funcs 用函数实现 Mapper，Dynamic 为 nil 时没有动态列
type Funcs[T any] struct {
	Columns func(entity *T) (rdb.Columns, error)
	Dynamic func(entity *T) (rdb.Columns, error)
	Types   rdb.ColumnTypes
	Row     func(row rdb.Row) (*T, error)
}

func (f *Funcs[T]) ToColumns(entity *T) (rdb.Columns, error) {
	if entity == nil {
		return nil, errors.WithMessage(rdb.ErrMapping, "entity is nil")
	}
	if f.Columns == nil {
		return nil, errors.WithMessage(rdb.ErrMapping, "columns func is nil")
	}
	columns, err := f.Columns(entity)
	if err != nil {
		return nil, errors.WithMessage(rdb.ErrMapping, err.Error())
	}
	if len(columns) == 0 {
		return nil, errors.WithMessage(rdb.ErrMapping, "entity has no column")
	}
	return columns, nil
}

func (f *Funcs[T]) ToDynamicColumns(entity *T) (rdb.Columns, error) {
	if entity == nil {
		return nil, errors.WithMessage(rdb.ErrMapping, "entity is nil")
	}
	if f.Dynamic == nil {
		return rdb.Columns{}, nil
	}
	columns, err := f.Dynamic(entity)
	if err != nil {
		return nil, errors.WithMessage(rdb.ErrMapping, err.Error())
	}
	if columns == nil {
		columns = rdb.Columns{}
	}
	return columns, nil
}

func (f *Funcs[T]) DynamicColumnTypes() rdb.ColumnTypes {
	return f.Types
}

func (f *Funcs[T]) FromRow(row rdb.Row) (*T, error) {
	if f.Row == nil {
		return nil, errors.WithMessage(rdb.ErrMapping, "row func is nil")
	}
	entity, err := f.Row(row)
	if err != nil {
		return nil, errors.WithMessage(rdb.ErrMapping, err.Error())
	}
	return entity, nil
}
