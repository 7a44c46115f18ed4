package grammar

import (
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/rooster/log"
	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
)

// redshift Amazon Redshift 方言
// 写入使用 INSERT，不支持动态列声明，查询时忽略动态列并记录告警；不限制行数时仍然生成 LIMIT DefaultLimit
type redshift struct {
	base
	logger log.Logger
}

var redshiftGrammar = NewRedshift(nil)

// Redshift 返回单例，告警写入 log.Default()
func Redshift() Grammar {
	return redshiftGrammar
}

// NewRedshift logger 为 nil 时使用 log.Default()
func NewRedshift(logger log.Logger) Grammar {
	return &redshift{
		base:   base{name: "redshift", ops: query.MustNewOperators(query.StandardTokens)},
		logger: logger,
	}
}

func (g *redshift) log() log.Logger {
	if g.logger != nil {
		return g.logger
	}
	return log.Default()
}

func (g *redshift) SelectByID(table *rdb.TableMetadata, sort query.Sort, limit int, idCount int, dynamicTypes rdb.ColumnTypes, projection []string) (string, error) {
	parts, err := g.prepareSelect(table, sort, limit, projection)
	if err != nil {
		return "", err
	}
	g.ignoreDynamicColumns("SelectByID", table, dynamicTypes)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(parts.columns)
	sb.WriteString(" FROM ")
	sb.WriteString(table.Name())
	if idCount > 0 {
		writeWhereByIDs(&sb, table, idCount)
	}
	sb.WriteString(parts.orderBy)
	sb.WriteString(redshiftLimit(limit))
	return sb.String(), nil
}

func (g *redshift) SelectByCondition(table *rdb.TableMetadata, sort query.Sort, limit int, conditions []*query.Condition, dynamicTypes rdb.ColumnTypes, projection []string) (string, error) {
	parts, err := g.prepareSelect(table, sort, limit, projection)
	if err != nil {
		return "", err
	}
	where, err := g.whereByConditions(conditions)
	if err != nil {
		return "", err
	}
	g.ignoreDynamicColumns("SelectByCondition", table, dynamicTypes)

	return "SELECT " + parts.columns + " FROM " + table.Name() + where + parts.orderBy + redshiftLimit(limit), nil
}

// Save INSERT INTO t (a, b, d) VALUES (?, ?, ?)，动态列作为普通列写入
func (g *redshift) Save(table *rdb.TableMetadata, columns rdb.Columns, dynamic rdb.Columns) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	if err := checkColumns(columns, dynamic); err != nil {
		return "", err
	}

	names := make([]string, 0, len(columns)+len(dynamic))
	names = append(names, columns.Names()...)
	names = append(names, dynamic.Names()...)

	return "INSERT INTO " + table.Name() + " (" + strings.Join(names, ", ") + ") VALUES (" + placeholders(len(names)) + ")", nil
}

func (g *redshift) ParamDataType(value any) (string, error) {
	switch value.(type) {
	case nil:
		return "", errors.WithMessage(rdb.ErrUnsupportedType, "nil value has no sql type")
	case int8, int16, uint8:
		return "SMALLINT", nil
	case int32, uint16:
		return "INTEGER", nil
	case int, int64, uint32:
		return "BIGINT", nil
	case float32:
		return "REAL", nil
	case float64:
		return "DOUBLE PRECISION", nil
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
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return g.ParamDataType(rv.Elem().Interface())
	}
	return "", errors.WithMessagef(rdb.ErrUnsupportedType, "%T is not supported by redshift", value)
}

func (g *redshift) ignoreDynamicColumns(op string, table *rdb.TableMetadata, types rdb.ColumnTypes) {
	if len(types) == 0 {
		return
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	g.log().Warn("dynamic columns are not supported, ignored",
		"grammar", g.name, "op", op, "table", table.Name(), "columns", names)
}

func redshiftLimit(limit int) string {
	if limit == query.NoLimit {
		return limitClause(query.DefaultLimit)
	}
	return limitClause(limit)
}
