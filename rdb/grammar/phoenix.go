package grammar

import (
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
)

// phoenix Apache Phoenix 方言
// 写入使用 UPSERT，动态列在 FROM 之后声明类型，不限制行数时不生成 LIMIT
type phoenix struct {
	base
}

var phoenixGrammar = &phoenix{
	base: base{name: "phoenix", ops: query.MustNewOperators(query.StandardTokens)},
}

// Phoenix 返回单例
func Phoenix() Grammar {
	return phoenixGrammar
}

func (g *phoenix) SelectByID(table *rdb.TableMetadata, sort query.Sort, limit int, idCount int, dynamicTypes rdb.ColumnTypes, projection []string) (string, error) {
	parts, err := g.prepareSelect(table, sort, limit, projection)
	if err != nil {
		return "", err
	}
	decl, err := dynamicColumnsDecl(dynamicTypes)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(parts.columns)
	sb.WriteString(" FROM ")
	sb.WriteString(table.Name())
	sb.WriteString(decl)
	if idCount > 0 {
		writeWhereByIDs(&sb, table, idCount)
	}
	sb.WriteString(parts.orderBy)
	sb.WriteString(phoenixLimit(limit))
	return sb.String(), nil
}

func (g *phoenix) SelectByCondition(table *rdb.TableMetadata, sort query.Sort, limit int, conditions []*query.Condition, dynamicTypes rdb.ColumnTypes, projection []string) (string, error) {
	parts, err := g.prepareSelect(table, sort, limit, projection)
	if err != nil {
		return "", err
	}
	decl, err := dynamicColumnsDecl(dynamicTypes)
	if err != nil {
		return "", err
	}
	where, err := g.whereByConditions(conditions)
	if err != nil {
		return "", err
	}

	return "SELECT " + parts.columns + " FROM " + table.Name() + decl + where + parts.orderBy + phoenixLimit(limit), nil
}

// Save UPSERT INTO t (a, b, d TYPE) VALUES (?, ?, ?)，动态列优先使用声明的类型，没有声明时由值推断
func (g *phoenix) Save(table *rdb.TableMetadata, columns rdb.Columns, dynamic rdb.Columns) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	if err := checkColumns(columns, dynamic); err != nil {
		return "", err
	}

	names := make([]string, 0, len(columns)+len(dynamic))
	names = append(names, columns.Names()...)
	for _, col := range dynamic {
		sqlType := strings.TrimSpace(col.Type)
		if sqlType == "" {
			var err error
			if sqlType, err = g.ParamDataType(col.Value); err != nil {
				return "", errors.WithMessagef(err, "dynamic column %s", col.Name)
			}
		}
		names = append(names, col.Name+" "+sqlType)
	}

	return "UPSERT INTO " + table.Name() + " (" + strings.Join(names, ", ") + ") VALUES (" + placeholders(len(names)) + ")", nil
}

func (g *phoenix) ParamDataType(value any) (string, error) {
	return phoenixType(value, true)
}

func phoenixLimit(limit int) string {
	if limit == query.NoLimit {
		return ""
	}
	return limitClause(limit)
}

// dynamicColumnsDecl (col TYPE, ...)
func dynamicColumnsDecl(types rdb.ColumnTypes) (string, error) {
	if len(types) == 0 {
		return "", nil
	}
	decls := make([]string, len(types))
	for i, t := range types {
		if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Type) == "" {
			return "", errors.WithMessagef(rdb.ErrMapping, "dynamic column %d must have a name and a type", i)
		}
		decls[i] = t.Name + " " + t.Type
	}
	return "(" + strings.Join(decls, ", ") + ")", nil
}

var (
	ratType   = reflect.TypeOf(&big.Rat{})
	floatType = reflect.TypeOf(&big.Float{})
	bytesType = reflect.TypeOf([]byte(nil))
)

func phoenixType(value any, allowArray bool) (string, error) {
	switch value.(type) {
	case nil:
		return "", errors.WithMessage(rdb.ErrUnsupportedType, "nil value has no sql type")
	case int8:
		return "TINYINT", nil
	case int16:
		return "SMALLINT", nil
	case int32:
		return "INTEGER", nil
	case int, int64:
		return "BIGINT", nil
	case uint8:
		return "UNSIGNED_TINYINT", nil
	case uint16:
		return "UNSIGNED_SMALLINT", nil
	case uint32:
		return "UNSIGNED_INT", nil
	case uint, uint64:
		return "UNSIGNED_LONG", nil
	case float32:
		return "FLOAT", nil
	case float64:
		return "DOUBLE", nil
	case *big.Rat, *big.Float:
		return "DECIMAL", nil
	case bool:
		return "BOOLEAN", nil
	case rdb.Date:
		return "DATE", nil
	case time.Time:
		return "TIMESTAMP", nil
	case string, uuid.UUID:
		return "VARCHAR", nil
	case []byte:
		return "VARBINARY", nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "", errors.WithMessagef(rdb.ErrUnsupportedType, "nil %T has no sql type", value)
		}
		return phoenixType(rv.Elem().Interface(), allowArray)
	case reflect.Slice, reflect.Array:
		if !allowArray {
			return "", errors.WithMessagef(rdb.ErrUnsupportedType, "nested array %T", value)
		}
		elem := rv.Type().Elem()
		if elem == ratType || elem == floatType {
			return "DECIMAL ARRAY", nil
		}
		if elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Interface || (elem.Kind() == reflect.Slice && elem != bytesType) {
			return "", errors.WithMessagef(rdb.ErrUnsupportedType, "array element %v", elem)
		}
		elemType, err := phoenixType(reflect.Zero(elem).Interface(), false)
		if err != nil {
			return "", err
		}
		return elemType + " ARRAY", nil
	}

	return "", errors.WithMessagef(rdb.ErrUnsupportedType, "%T", value)
}
