package rdb

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hatlonely/rooster/cfg/validator"
	"github.com/pkg/errors"
)

// TableMetadata 表的静态描述，构造后不可修改，可在并发调用间共享
type TableMetadata struct {
	name        string
	primaryKey  []string
	mutable     bool
	readonly    bool
	tenantScope *int
	projection  []string
}

// TableOption 表定义的可选项
type TableOption func(*TableMetadata)

// WithMutable 允许删除
func WithMutable() TableOption {
	return func(t *TableMetadata) {
		t.mutable = true
	}
}

// WithReadonly 禁止写入和删除
func WithReadonly() TableOption {
	return func(t *TableMetadata) {
		t.readonly = true
	}
}

// WithTenantScope 设置租户
func WithTenantScope(tenant int) TableOption {
	return func(t *TableMetadata) {
		t.tenantScope = &tenant
	}
}

// WithProjection 默认查询的列，不设置时查询所有列
func WithProjection(columns ...string) TableOption {
	return func(t *TableMetadata) {
		t.projection = append([]string(nil), columns...)
	}
}

// NewTableMetadata 创建表定义，primaryKey 的顺序即 id 元组的顺序
func NewTableMetadata(name string, primaryKey []string, opts ...TableOption) (*TableMetadata, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.WithMessage(ErrPrecondition, "table name must be provided")
	}
	if len(primaryKey) == 0 {
		return nil, errors.WithMessagef(ErrPrecondition, "primary key of table %s must be provided", name)
	}
	for i, column := range primaryKey {
		if strings.TrimSpace(column) == "" {
			return nil, errors.WithMessagef(ErrPrecondition, "primary key component %d of table %s is empty", i, name)
		}
	}

	table := &TableMetadata{
		name:       name,
		primaryKey: append([]string(nil), primaryKey...),
	}
	for _, opt := range opts {
		opt(table)
	}
	for i, column := range table.projection {
		if strings.TrimSpace(column) == "" {
			return nil, errors.WithMessagef(ErrPrecondition, "projection column %d of table %s is empty", i, name)
		}
	}

	return table, nil
}

// MustNewTableMetadata 创建失败时 panic，用于包级变量
func MustNewTableMetadata(name string, primaryKey []string, opts ...TableOption) *TableMetadata {
	table, err := NewTableMetadata(name, primaryKey, opts...)
	if err != nil {
		panic(err)
	}
	return table
}

// TableMetadataOptions 配置文件中的表定义
type TableMetadataOptions struct {
	Name        string   `cfg:"name" validate:"required"`
	PrimaryKey  []string `cfg:"primaryKey" validate:"required,min=1,dive,required"`
	Mutable     bool     `cfg:"mutable"`
	Readonly    bool     `cfg:"readonly"`
	TenantScope *int     `cfg:"tenantScope"`
	Projection  []string `cfg:"projection" validate:"omitempty,dive,required"`
}

// NewTableMetadataWithOptions 根据配置创建表定义
func NewTableMetadataWithOptions(options *TableMetadataOptions) (*TableMetadata, error) {
	if options == nil {
		return nil, errors.WithMessage(ErrPrecondition, "table options must be provided")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.WithMessagef(ErrPrecondition, "invalid table options: %v", err)
	}

	var opts []TableOption
	if options.Mutable {
		opts = append(opts, WithMutable())
	}
	if options.Readonly {
		opts = append(opts, WithReadonly())
	}
	if options.TenantScope != nil {
		opts = append(opts, WithTenantScope(*options.TenantScope))
	}
	if len(options.Projection) > 0 {
		opts = append(opts, WithProjection(options.Projection...))
	}

	return NewTableMetadata(options.Name, options.PrimaryKey, opts...)
}

// Tabler 实体可以实现该接口指定表名
type Tabler interface {
	TableName() string
}

// NewTableMetadataFromStruct 从结构体的 rdb tag 构建表定义
// 表名优先取 TableName()，否则使用结构体名的小写形式；主键按字段顺序组成
func NewTableMetadataFromStruct(v any, opts ...TableOption) (*TableMetadata, error) {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return nil, errors.WithMessage(ErrPrecondition, "struct must be provided")
	}
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, errors.WithMessagef(ErrPrecondition, "expected struct, got %T", v)
	}

	tableName := strings.ToLower(rt.Name())
	if tabler, ok := reflect.New(rt).Interface().(Tabler); ok && tabler.TableName() != "" {
		tableName = tabler.TableName()
	}

	var primaryKey []string
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := ParseFieldTag(field)
		if tag.Ignore || !tag.Primary {
			continue
		}
		if tag.Dynamic {
			return nil, errors.WithMessagef(ErrPrecondition, "primary key %s cannot be a dynamic column", tag.Column)
		}
		primaryKey = append(primaryKey, tag.Column)
	}

	return NewTableMetadata(tableName, primaryKey, opts...)
}

func (t *TableMetadata) Name() string {
	return t.name
}

// PrimaryKey 返回主键列的副本
func (t *TableMetadata) PrimaryKey() []string {
	return append([]string(nil), t.primaryKey...)
}

func (t *TableMetadata) Mutable() bool {
	return t.mutable
}

func (t *TableMetadata) Readonly() bool {
	return t.readonly
}

// TenantScope 返回租户，未设置时 ok 为 false
func (t *TableMetadata) TenantScope() (tenant int, ok bool) {
	if t.tenantScope == nil {
		return 0, false
	}
	return *t.tenantScope, true
}

// Projection 返回默认查询列的副本，nil 表示所有列
func (t *TableMetadata) Projection() []string {
	if len(t.projection) == 0 {
		return nil
	}
	return append([]string(nil), t.projection...)
}

// IDArity id 元组的元数
func (t *TableMetadata) IDArity() int {
	return len(t.primaryKey)
}

func (t *TableMetadata) String() string {
	return fmt.Sprintf("TableMetadata[name=%s, primaryKey=%v, mutable=%v, readonly=%v]",
		t.name, t.primaryKey, t.mutable, t.readonly)
}
