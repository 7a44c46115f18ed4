package query

import (
	"fmt"

	"github.com/pkg/errors"
)

// OperatorKind 逻辑操作符，与方言无关
type OperatorKind int

const (
	OpEqual OperatorKind = iota + 1
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpNotEqual
	OpLike
	OpILike
	OpIsNull
	OpIsNotNull
	OpAnd
	OpOr
)

var kindNames = map[OperatorKind]string{
	OpEqual:          "Equal",
	OpLess:           "Less",
	OpLessOrEqual:    "LessOrEqual",
	OpGreater:        "Greater",
	OpGreaterOrEqual: "GreaterOrEqual",
	OpNotEqual:       "NotEqual",
	OpLike:           "Like",
	OpILike:          "ILike",
	OpIsNull:         "IsNull",
	OpIsNotNull:      "IsNotNull",
	OpAnd:            "And",
	OpOr:             "Or",
}

func (k OperatorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OperatorKind(%d)", int(k))
}

// Unary 一元操作符不绑定参数
func (k OperatorKind) Unary() bool {
	return k == OpIsNull || k == OpIsNotNull
}

// Boolean 只能用于连接两个条件
func (k OperatorKind) Boolean() bool {
	return k == OpAnd || k == OpOr
}

// Valid 是否是已定义的操作符
func (k OperatorKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Operator 方言中的操作符，除了 SQL 记号之外没有其他状态
type Operator interface {
	Kind() OperatorKind
	SQL() string
}

type token struct {
	kind OperatorKind
	sql  string
}

func (t token) Kind() OperatorKind {
	return t.kind
}

func (t token) SQL() string {
	return t.sql
}

func (t token) String() string {
	return t.sql
}

// NewOperator 创建操作符
func NewOperator(kind OperatorKind, sql string) Operator {
	return token{kind: kind, sql: sql}
}

// Operators 方言的操作符集合，构造后只读
type Operators struct {
	tokens map[OperatorKind]Operator
}

// NewOperators 根据记号表创建操作符集合，必须覆盖所有操作符
func NewOperators(tokens map[OperatorKind]string) (Operators, error) {
	ops := Operators{tokens: make(map[OperatorKind]Operator, len(tokens))}
	for kind := range kindNames {
		sql, ok := tokens[kind]
		if !ok || sql == "" {
			return Operators{}, errors.Errorf("operator %v has no sql token", kind)
		}
		ops.tokens[kind] = token{kind: kind, sql: sql}
	}
	return ops, nil
}

// MustNewOperators 创建失败时 panic
func MustNewOperators(tokens map[OperatorKind]string) Operators {
	ops, err := NewOperators(tokens)
	if err != nil {
		panic(err)
	}
	return ops
}

// Get 返回 kind 对应的操作符
func (o Operators) Get(kind OperatorKind) (Operator, bool) {
	op, ok := o.tokens[kind]
	return op, ok
}

// Op 返回 kind 对应的操作符，不存在时返回 nil
func (o Operators) Op(kind OperatorKind) Operator {
	return o.tokens[kind]
}

// Len 操作符数量
func (o Operators) Len() int {
	return len(o.tokens)
}

// StandardTokens 通用 SQL 记号
var StandardTokens = map[OperatorKind]string{
	OpEqual:          "=",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpNotEqual:       "!=",
	OpLike:           "LIKE",
	OpILike:          "ILIKE",
	OpIsNull:         "IS NULL",
	OpIsNotNull:      "IS NOT NULL",
	OpAnd:            "AND",
	OpOr:             "OR",
}

// Standard 通用操作符集合，用于 Eq、Or 等便捷构造函数
var Standard = MustNewOperators(StandardTokens)
