package repository

import (
	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
)

// ID 主键元组，分量顺序与 TableMetadata.PrimaryKey 一致，单列主键也是一元组
type ID []any

// Key 由主键分量构造 ID，调用方负责按主键顺序传入
func Key(components ...any) ID {
	return ID(components)
}

func (id ID) validate(table *rdb.TableMetadata) error {
	if len(id) != table.IDArity() {
		return errors.WithMessagef(rdb.ErrPrecondition, "id %v has %d components, table %s requires %d %v",
			[]any(id), len(id), table.Name(), table.IDArity(), table.PrimaryKey())
	}
	for i, component := range id {
		if component == nil {
			return errors.WithMessagef(rdb.ErrPrecondition, "id component %s is nil", table.PrimaryKey()[i])
		}
	}
	return nil
}

// flattenIDs 按列表顺序展开所有 id 的分量，与 OR 分组中占位符的顺序一致
func flattenIDs(table *rdb.TableMetadata, ids []ID) ([]any, error) {
	params := make([]any, 0, len(ids)*table.IDArity())
	for i, id := range ids {
		if err := id.validate(table); err != nil {
			return nil, errors.WithMessagef(err, "id %d", i)
		}
		params = append(params, id...)
	}
	return params, nil
}
