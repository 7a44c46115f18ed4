package mapper

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
)

type field struct {
	index  []int
	column string
	tag    rdb.FieldTag
}

// StructMapper 根据 rdb tag 映射结构体
// 固定列按字段顺序输出；动态列为 nil 指针时不输出
//
//	type Event struct {
//		TenantID int     `rdb:"tid,primary"`
//		UserID   string  `rdb:"uid,primary"`
//		Ts       int64   `rdb:"ts,primary"`
//		Message  string  `rdb:"msg"`
//		Browser  *string `rdb:"browser,dynamic=VARCHAR"`
//	}
type StructMapper[T any] struct {
	fixed   []field
	dynamic []field
	types   rdb.ColumnTypes
}

// NewStructMapper 解析结构体的 rdb tag，没有固定列或动态列没有声明类型时返回 ErrMapping
func NewStructMapper[T any]() (*StructMapper[T], error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() != reflect.Struct {
		return nil, errors.WithMessagef(rdb.ErrMapping, "expected struct, got %v", rt)
	}

	m := &StructMapper[T]{}
	seen := map[string]bool{}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := rdb.ParseFieldTag(sf)
		if tag.Ignore {
			continue
		}
		if seen[tag.Column] {
			return nil, errors.WithMessagef(rdb.ErrMapping, "duplicate column %s in %v", tag.Column, rt)
		}
		seen[tag.Column] = true

		f := field{index: sf.Index, column: tag.Column, tag: tag}
		if tag.Dynamic {
			if tag.SQLType == "" {
				return nil, errors.WithMessagef(rdb.ErrMapping, "dynamic column %s must declare its sql type", tag.Column)
			}
			m.dynamic = append(m.dynamic, f)
			m.types = append(m.types, rdb.ColumnType{Name: tag.Column, Type: tag.SQLType})
			continue
		}
		m.fixed = append(m.fixed, f)
	}

	if len(m.fixed) == 0 {
		return nil, errors.WithMessagef(rdb.ErrMapping, "%v has no fixed column", rt)
	}

	return m, nil
}

// MustNewStructMapper 创建失败时 panic
func MustNewStructMapper[T any]() *StructMapper[T] {
	m, err := NewStructMapper[T]()
	if err != nil {
		panic(err)
	}
	return m
}

func (m *StructMapper[T]) ToColumns(entity *T) (rdb.Columns, error) {
	if entity == nil {
		return nil, errors.WithMessage(rdb.ErrMapping, "entity is nil")
	}
	rv := reflect.ValueOf(entity).Elem()
	columns := make(rdb.Columns, 0, len(m.fixed))
	for _, f := range m.fixed {
		value, _ := toValue(rv.FieldByIndex(f.index))
		columns = append(columns, rdb.Column{Name: f.column, Value: value})
	}
	return columns, nil
}

func (m *StructMapper[T]) ToDynamicColumns(entity *T) (rdb.Columns, error) {
	if entity == nil {
		return nil, errors.WithMessage(rdb.ErrMapping, "entity is nil")
	}
	rv := reflect.ValueOf(entity).Elem()
	columns := rdb.Columns{}
	for _, f := range m.dynamic {
		value, ok := toValue(rv.FieldByIndex(f.index))
		if !ok {
			continue
		}
		columns = append(columns, rdb.Column{Name: f.column, Value: value})
	}
	return columns, nil
}

// DynamicColumnTypes 返回副本
func (m *StructMapper[T]) DynamicColumnTypes() rdb.ColumnTypes {
	return append(rdb.ColumnTypes(nil), m.types...)
}

// FromRow 列名大小写不敏感，行中多余的列被忽略
func (m *StructMapper[T]) FromRow(row rdb.Row) (*T, error) {
	entity := new(T)
	rv := reflect.ValueOf(entity).Elem()

	for _, fields := range [][]field{m.fixed, m.dynamic} {
		for _, f := range fields {
			value, ok := row.Lookup(f.column)
			if !ok || value == nil {
				continue
			}
			if err := setFieldValue(rv.FieldByIndex(f.index), value); err != nil {
				return nil, errors.WithMessagef(rdb.ErrMapping, "failed to set field %s: %v", f.column, err)
			}
		}
	}

	return entity, nil
}

// toValue 解引用指针，nil 指针返回 false；uuid.UUID 转换为字符串
func toValue(fv reflect.Value) (any, bool) {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil, false
		}
		fv = fv.Elem()
	}
	value := fv.Interface()
	if id, ok := value.(uuid.UUID); ok {
		return id.String(), true
	}
	return value, true
}

var (
	timeType = reflect.TypeOf(time.Time{})
	dateType = reflect.TypeOf(rdb.Date{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

var timeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, format := range timeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("cannot parse time string %s: %v", s, lastErr)
}

// setFieldValue 把驱动返回的值写入字段
func setFieldValue(fieldValue reflect.Value, value any) error {
	fieldType := fieldValue.Type()

	if fieldType.Kind() == reflect.Ptr {
		elem := reflect.New(fieldType.Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		fieldValue.Set(elem)
		return nil
	}

	// MySQL/SQLite 的 BOOLEAN 返回整数
	if fieldType.Kind() == reflect.Bool {
		switch v := value.(type) {
		case bool:
			fieldValue.SetBool(v)
			return nil
		case int64:
			fieldValue.SetBool(v != 0)
			return nil
		case int:
			fieldValue.SetBool(v != 0)
			return nil
		case []byte:
			fieldValue.SetBool(string(v) == "1" || string(v) == "true")
			return nil
		}
	}

	switch fieldType {
	case timeType, dateType:
		var t time.Time
		switch v := value.(type) {
		case time.Time:
			t = v
		case rdb.Date:
			t = v.Time
		case string:
			parsed, err := parseTime(v)
			if err != nil {
				return err
			}
			t = parsed
		case []byte:
			parsed, err := parseTime(string(v))
			if err != nil {
				return err
			}
			t = parsed
		default:
			return fmt.Errorf("cannot convert %T to %v", value, fieldType)
		}
		if fieldType == dateType {
			fieldValue.Set(reflect.ValueOf(rdb.NewDate(t.Year(), t.Month(), t.Day())))
		} else {
			fieldValue.Set(reflect.ValueOf(t))
		}
		return nil
	case uuidType:
		var s string
		switch v := value.(type) {
		case uuid.UUID:
			fieldValue.Set(reflect.ValueOf(v))
			return nil
		case string:
			s = v
		case []byte:
			s = string(v)
		default:
			return fmt.Errorf("cannot convert %T to uuid", value)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return err
		}
		fieldValue.Set(reflect.ValueOf(id))
		return nil
	}

	valueType := reflect.TypeOf(value)

	// 驱动通常以 []byte 返回文本
	if b, ok := value.([]byte); ok && fieldType.Kind() == reflect.String {
		fieldValue.SetString(string(b))
		return nil
	}

	if valueType.AssignableTo(fieldType) {
		fieldValue.Set(reflect.ValueOf(value))
		return nil
	}

	// 只在数字之间转换，避免 int 被转换成 rune 字符串
	if isNumber(valueType.Kind()) && isNumber(fieldType.Kind()) {
		fieldValue.Set(reflect.ValueOf(value).Convert(fieldType))
		return nil
	}

	if valueType.Kind() == reflect.String && fieldType.Kind() == reflect.String {
		fieldValue.SetString(reflect.ValueOf(value).String())
		return nil
	}

	if valueType.Kind() == reflect.String && fieldType.Kind() == reflect.Slice && fieldType.Elem().Kind() == reflect.Uint8 {
		fieldValue.SetBytes([]byte(reflect.ValueOf(value).String()))
		return nil
	}

	return fmt.Errorf("cannot convert %v to %v", valueType, fieldType)
}

func isNumber(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
