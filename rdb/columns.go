package rdb

import (
	"database/sql/driver"
	"strings"
	"time"
)

// Column 列名和值，Type 是动态列声明的 SQL 类型，为空时由方言按值推断
type Column struct {
	Name  string
	Value any
	Type  string
}

// Columns 有序的列映射，顺序决定参数绑定的位置
type Columns []Column

// Names 按顺序返回列名
func (c Columns) Names() []string {
	names := make([]string, len(c))
	for i, col := range c {
		names[i] = col.Name
	}
	return names
}

// Values 按顺序返回列值
func (c Columns) Values() []any {
	values := make([]any, len(c))
	for i, col := range c {
		values[i] = col.Value
	}
	return values
}

// Get 按列名查找
func (c Columns) Get(name string) (any, bool) {
	for _, col := range c {
		if col.Name == name {
			return col.Value, true
		}
	}
	return nil, false
}

// ColumnType 动态列的 SQL 类型声明
type ColumnType struct {
	Name string
	Type string
}

// ColumnTypes 有序的动态列类型声明
type ColumnTypes []ColumnType

// Get 按列名查找类型声明
func (t ColumnTypes) Get(name string) (string, bool) {
	for _, ct := range t {
		if ct.Name == name {
			return ct.Type, true
		}
	}
	return "", false
}

// Row 执行器返回的一行数据，key 为数据库返回的列名
type Row map[string]any

// Lookup 按列名查找，大小写不敏感
func (r Row) Lookup(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Date 日期类型，区别于 time.Time 表示的时间戳
type Date struct {
	time.Time
}

// NewDate 截断到天
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Value 实现 driver.Valuer
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}
