package rdb

import (
	"reflect"
	"strings"
)

// FieldTag 解析后的 rdb tag
// 支持的格式：
// - `rdb:"column_name"`
// - `rdb:"column_name,primary"` 主键列，多个主键按字段顺序组成复合主键
// - `rdb:"column_name,dynamic=VARCHAR"` 动态列，写入时声明类型
// - `rdb:"-"` 忽略该字段
type FieldTag struct {
	Column  string
	Primary bool
	Dynamic bool
	// SQLType 动态列声明的 SQL 类型
	SQLType string
	Ignore  bool
}

// ParseFieldTag 解析结构体字段的 rdb tag，未指定列名时使用字段名
func ParseFieldTag(field reflect.StructField) FieldTag {
	tag := field.Tag.Get("rdb")
	if tag == "-" {
		return FieldTag{Ignore: true}
	}

	result := FieldTag{Column: field.Name}
	if tag == "" {
		return result
	}

	parts := strings.Split(tag, ",")
	if parts[0] != "" && !strings.Contains(parts[0], "=") {
		result.Column = strings.TrimSpace(parts[0])
	}
	parts = parts[1:]

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "=") {
			kv := strings.SplitN(part, "=", 2)
			key := strings.TrimSpace(kv[0])
			value := strings.TrimSpace(kv[1])
			if key == "dynamic" {
				result.Dynamic = true
				result.SQLType = value
			}
			continue
		}

		switch part {
		case "primary", "pk":
			result.Primary = true
		case "dynamic":
			result.Dynamic = true
		}
	}

	return result
}
