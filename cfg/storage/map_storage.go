package storage

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/rooster/cfg/def"
	"github.com/pkg/errors"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MapStorage 基于解码后的 map 和 slice 的存储实现
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

func (ms *MapStorage) Data() any {
	return ms.data
}

// Sub key 用点号表示嵌套，[] 表示数组下标，例如 "repository.table.primaryKey[0]"
func (ms *MapStorage) Sub(key string) Storage {
	if key == "" {
		return ms
	}
	current := ms.data
	for _, k := range parseKey(key) {
		current = lookup(current, k)
		if current == nil {
			break
		}
	}
	return NewMapStorage(current)
}

// ConvertTo 先设置 def 默认值，再用配置覆盖
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if rv.Elem().Kind() == reflect.Struct {
		if err := def.SetDefaults(object); err != nil {
			return errors.WithMessage(err, "set defaults failed")
		}
	}
	return convertValue(ms.data, rv.Elem(), "")
}

func parseKey(key string) []string {
	var keys []string
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			keys = append(keys, sb.String())
			sb.Reset()
		}
	}
	for _, ch := range key {
		switch ch {
		case '.', '[', ']':
			flush()
		default:
			sb.WriteRune(ch)
		}
	}
	flush()
	return keys
}

func lookup(data any, key string) any {
	switch v := data.(type) {
	case map[string]any:
		if value, ok := v[key]; ok {
			return value
		}
		for k, value := range v {
			if strings.EqualFold(k, key) {
				return value
			}
		}
	case map[any]any:
		return v[key]
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil
		}
		return v[idx]
	case []map[string]any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil
		}
		return v[idx]
	}
	return nil
}

func convertValue(src any, dst reflect.Value, path string) error {
	if src == nil {
		return nil
	}
	sv := reflect.ValueOf(src)

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
			if dst.Type().Elem().Kind() == reflect.Struct {
				if err := def.SetDefaults(dst.Interface()); err != nil {
					return errors.WithMessagef(err, "set defaults for %s failed", path)
				}
			}
		}
		return convertValue(src, dst.Elem(), path)
	}

	switch dst.Type() {
	case durationType:
		return convertDuration(sv, dst, path)
	case timeType:
		return convertTime(sv, dst, path)
	}

	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return convertStruct(sv, dst, path)
	case reflect.Map:
		return convertMap(sv, dst, path)
	case reflect.Slice:
		return convertSlice(sv, dst, path)
	case reflect.String:
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetString(strconv.FormatInt(sv.Int(), 10))
			return nil
		case reflect.Float32, reflect.Float64:
			dst.SetString(strconv.FormatFloat(sv.Float(), 'f', -1, 64))
			return nil
		case reflect.String:
			dst.SetString(sv.String())
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if sv.Kind() == reflect.String {
			return errors.Errorf("%s: cannot convert string %q to %v", path, sv.String(), dst.Type())
		}
	}

	if sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return errors.Errorf("%s: cannot convert %v to %v", path, sv.Type(), dst.Type())
}

// convertDuration 字符串按 time.ParseDuration 解析，整数视为纳秒，浮点数视为秒
func convertDuration(sv, dst reflect.Value, path string) error {
	switch sv.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return errors.Wrapf(err, "%s: invalid duration %q", path, sv.String())
		}
		dst.SetInt(int64(d))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(sv.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetInt(int64(sv.Uint()))
		return nil
	case reflect.Float32, reflect.Float64:
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
		return nil
	}
	return errors.Errorf("%s: cannot convert %v to time.Duration", path, sv.Type())
}

func convertTime(sv, dst reflect.Value, path string) error {
	if t, ok := sv.Interface().(time.Time); ok {
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	switch sv.Kind() {
	case reflect.String:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, sv.String()); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return errors.Errorf("%s: invalid time %q", path, sv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Unix(sv.Int(), 0)))
		return nil
	}
	return errors.Errorf("%s: cannot convert %v to time.Time", path, sv.Type())
}

func convertStruct(sv, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("%s: cannot convert %v to %v", path, sv.Type(), dst.Type())
	}
	data := make(map[string]any, sv.Len())
	iter := sv.MapRange()
	for iter.Next() {
		data[toString(iter.Key())] = iter.Value().Interface()
	}

	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := dst.Field(i)
		if !fv.CanSet() {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}
		value := lookup(data, name)
		if value == nil {
			continue
		}
		if err := convertValue(value, fv, join(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func convertMap(sv, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("%s: cannot convert %v to %v", path, sv.Type(), dst.Type())
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(dst.Type(), sv.Len()))
	}
	keyType := dst.Type().Key()
	iter := sv.MapRange()
	for iter.Next() {
		key := iter.Key()
		if key.Kind() == reflect.Interface {
			key = key.Elem()
		}
		if !key.Type().ConvertibleTo(keyType) {
			return errors.Errorf("%s: cannot convert key %v to %v", path, key.Type(), keyType)
		}
		value := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(iter.Value().Interface(), value, join(path, toString(key))); err != nil {
			return err
		}
		dst.SetMapIndex(key.Convert(keyType), value)
	}
	return nil
}

func convertSlice(sv, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
		// 单个值视为只有一个元素的列表，ini 中只出现一次的键是标量
		sv = reflect.ValueOf([]any{sv.Interface()})
	}
	slice := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
	for i := 0; i < sv.Len(); i++ {
		if err := convertValue(sv.Index(i).Interface(), slice.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	dst.Set(slice)
	return nil
}

// fieldName 依次取 cfg、json、yaml、toml、ini tag，都没有时用字段名
func fieldName(field reflect.StructField) string {
	for _, key := range []string{"cfg", "json", "yaml", "toml", "ini"} {
		if tag := field.Tag.Get(key); tag != "" {
			if name := strings.Split(tag, ",")[0]; name != "" {
				return name
			}
		}
	}
	return field.Name
}

func toString(v reflect.Value) string {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprint(v.Interface())
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
