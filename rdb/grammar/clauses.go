package grammar

import (
	"strconv"
	"strings"

	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
)

// base 两种方言共用的子句生成
type base struct {
	name string
	ops  query.Operators
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Operators() query.Operators {
	return b.ops
}

func (b *base) Count(table *rdb.TableMetadata) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	return "SELECT COUNT(*) FROM " + table.Name(), nil
}

func (b *base) DeleteByIDs(table *rdb.TableMetadata, idCount int) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	if idCount <= 0 {
		return "", errors.WithMessagef(rdb.ErrPrecondition, "delete from %s requires at least one id", table.Name())
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table.Name())
	writeWhereByIDs(&sb, table, idCount)
	return sb.String(), nil
}

// selectParts 校验参数并生成 SELECT ... FROM <table> 之外的公共部分
type selectParts struct {
	columns string
	orderBy string
}

func (b *base) prepareSelect(table *rdb.TableMetadata, sort query.Sort, limit int, projection []string) (*selectParts, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	if err := sort.Validate(); err != nil {
		return nil, err
	}

	columns, err := columnSelection(table, projection)
	if err != nil {
		return nil, err
	}

	return &selectParts{columns: columns, orderBy: orderByClause(sort)}, nil
}

func (b *base) whereByConditions(conditions []*query.Condition) (string, error) {
	if len(conditions) == 0 {
		return "", nil
	}
	where, err := query.ToSQL(conditions, b.ops)
	if err != nil {
		return "", err
	}
	return " WHERE " + where, nil
}

func checkTable(table *rdb.TableMetadata) error {
	if table == nil {
		return errors.WithMessage(rdb.ErrPrecondition, "table must be provided")
	}
	return nil
}

func checkLimit(limit int) error {
	if limit == query.NoLimit {
		return nil
	}
	return query.ValidateLimit(limit)
}

func checkColumns(columns rdb.Columns, dynamic rdb.Columns) error {
	if len(columns) == 0 {
		return errors.WithMessage(rdb.ErrMapping, "columns must not be empty")
	}
	seen := make(map[string]bool, len(columns)+len(dynamic))
	for _, cols := range []rdb.Columns{columns, dynamic} {
		for _, col := range cols {
			if strings.TrimSpace(col.Name) == "" {
				return errors.WithMessage(rdb.ErrMapping, "column name must not be empty")
			}
			if seen[col.Name] {
				return errors.WithMessagef(rdb.ErrMapping, "duplicate column %s", col.Name)
			}
			seen[col.Name] = true
		}
	}
	return nil
}

// columnSelection 查询指定的投影优先于表的默认投影
func columnSelection(table *rdb.TableMetadata, projection []string) (string, error) {
	if len(projection) == 0 {
		projection = table.Projection()
	}
	if len(projection) == 0 {
		return "*", nil
	}
	for i, column := range projection {
		if strings.TrimSpace(column) == "" {
			return "", errors.WithMessagef(rdb.ErrPrecondition, "projection column %d is empty", i)
		}
	}
	return strings.Join(projection, ", "), nil
}

func writeWhereByIDs(sb *strings.Builder, table *rdb.TableMetadata, idCount int) {
	primaryKey := table.PrimaryKey()
	sb.WriteString(" WHERE ")
	for i := 0; i < idCount; i++ {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("(")
		for j, column := range primaryKey {
			if j > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(column)
			sb.WriteString(" = ?")
		}
		sb.WriteString(")")
	}
}

func orderByClause(sort query.Sort) string {
	if len(sort) == 0 {
		return ""
	}
	return " ORDER BY " + sort.String()
}

func limitClause(limit int) string {
	return " LIMIT " + strconv.Itoa(limit)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
