package query

import (
	"reflect"
	"strings"

	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
)

// MaxDepth 条件树的最大深度
const MaxDepth = 64

// Condition 不可变的条件树，要么是叶子 {column, operator, value}，要么是分支 {left, operator, right}
// 构造时校验，构造失败的条件通过 Err() 返回错误，渲染时不再校验
type Condition struct {
	column string
	op     Operator
	value  any

	left  *Condition
	right *Condition

	depth int
	err   error
}

// NewLeaf 创建叶子条件，IS NULL/IS NOT NULL 的 value 必须为 nil，其他比较操作符的 value 不能为 nil
func NewLeaf(column string, op Operator, value any) (*Condition, error) {
	if strings.TrimSpace(column) == "" {
		return nil, errors.WithMessage(rdb.ErrInvalidCondition, "column must be provided")
	}
	if op == nil || !op.Kind().Valid() {
		return nil, errors.WithMessagef(rdb.ErrInvalidCondition, "operator of column %s must be provided", column)
	}
	kind := op.Kind()
	if isNil(value) {
		value = nil
	}
	if kind.Boolean() {
		return nil, errors.WithMessagef(rdb.ErrInvalidCondition, "operator %v cannot be used on column %s", kind, column)
	}
	if kind.Unary() && value != nil {
		return nil, errors.WithMessagef(rdb.ErrInvalidCondition, "operator %v on column %s takes no value", kind, column)
	}
	if !kind.Unary() && value == nil {
		return nil, errors.WithMessagef(rdb.ErrInvalidCondition, "operator %v on column %s requires a value", kind, column)
	}

	return &Condition{column: column, op: op, value: value, depth: 1}, nil
}

// NewBranch 用 AND/OR 连接两个条件
func NewBranch(left *Condition, op Operator, right *Condition) (*Condition, error) {
	if left == nil || right == nil {
		return nil, errors.WithMessage(rdb.ErrInvalidCondition, "both sides of a branch must be conditions")
	}
	if left.err != nil {
		return nil, left.err
	}
	if right.err != nil {
		return nil, right.err
	}
	if op == nil || !op.Kind().Boolean() {
		return nil, errors.WithMessagef(rdb.ErrInvalidCondition, "branch operator must be AND or OR, got %v", op)
	}

	depth := max(left.depth, right.depth) + 1
	if depth > MaxDepth {
		return nil, errors.WithMessagef(rdb.ErrInvalidCondition, "condition depth %d exceeds %d", depth, MaxDepth)
	}

	return &Condition{left: left, op: op, right: right, depth: depth}, nil
}

// isNil 同时识别 nil 接口和带类型的 nil 指针、切片、map
func isNil(value any) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func invalid(err error) *Condition {
	return &Condition{err: err}
}

func leaf(column string, kind OperatorKind, value any) *Condition {
	c, err := NewLeaf(column, Standard.Op(kind), value)
	if err != nil {
		return invalid(err)
	}
	return c
}

func branch(kind OperatorKind, conditions []*Condition) *Condition {
	if len(conditions) < 2 {
		return invalid(errors.WithMessagef(rdb.ErrInvalidCondition, "%v needs at least two conditions, got %d", kind, len(conditions)))
	}
	c, err := balance(Standard.Op(kind), conditions)
	if err != nil {
		return invalid(err)
	}
	return c
}

// balance 从中点拆分，n 个条件的深度为 ceil(log2 n)+1，叶子顺序不变
func balance(op Operator, conditions []*Condition) (*Condition, error) {
	if len(conditions) == 1 {
		c := conditions[0]
		if c == nil {
			return nil, errors.WithMessage(rdb.ErrInvalidCondition, "both sides of a branch must be conditions")
		}
		return c, c.err
	}
	mid := (len(conditions) + 1) / 2
	left, err := balance(op, conditions[:mid])
	if err != nil {
		return nil, err
	}
	right, err := balance(op, conditions[mid:])
	if err != nil {
		return nil, err
	}
	return NewBranch(left, op, right)
}

func Eq(column string, value any) *Condition {
	return leaf(column, OpEqual, value)
}

func Ne(column string, value any) *Condition {
	return leaf(column, OpNotEqual, value)
}

func Lt(column string, value any) *Condition {
	return leaf(column, OpLess, value)
}

func Le(column string, value any) *Condition {
	return leaf(column, OpLessOrEqual, value)
}

func Gt(column string, value any) *Condition {
	return leaf(column, OpGreater, value)
}

func Ge(column string, value any) *Condition {
	return leaf(column, OpGreaterOrEqual, value)
}

func Like(column string, pattern string) *Condition {
	return leaf(column, OpLike, pattern)
}

func ILike(column string, pattern string) *Condition {
	return leaf(column, OpILike, pattern)
}

func IsNull(column string) *Condition {
	return leaf(column, OpIsNull, nil)
}

func IsNotNull(column string) *Condition {
	return leaf(column, OpIsNotNull, nil)
}

// And 按平衡树连接，And(a, b, c) 等价于 (a AND b) AND c，And(a, b, c, d) 等价于 (a AND b) AND (c AND d)
func And(conditions ...*Condition) *Condition {
	return branch(OpAnd, conditions)
}

// Or 同 And，宽的 OR 列表不会触及 MaxDepth
func Or(conditions ...*Condition) *Condition {
	return branch(OpOr, conditions)
}

// Err 构造失败时返回的错误
func (c *Condition) Err() error {
	if c == nil {
		return errors.WithMessage(rdb.ErrInvalidCondition, "condition is nil")
	}
	return c.err
}

func (c *Condition) IsLeaf() bool {
	return c.err == nil && c.left == nil
}

func (c *Condition) IsBranch() bool {
	return c.err == nil && c.left != nil
}

func (c *Condition) Column() string {
	return c.column
}

func (c *Condition) Operator() Operator {
	return c.op
}

func (c *Condition) Value() any {
	return c.value
}

func (c *Condition) Left() *Condition {
	return c.left
}

func (c *Condition) Right() *Condition {
	return c.right
}

func (c *Condition) Depth() int {
	return c.depth
}

// SQL 使用条件自带的操作符记号渲染
func (c *Condition) SQL() string {
	return c.Render(Operators{})
}

// Render 使用方言的操作符集合渲染，集合中没有的操作符使用条件自带的记号
// 叶子渲染为 (col OP ?) 或 (col OP)，子分支加括号以保留树的结构
func (c *Condition) Render(ops Operators) string {
	if c == nil || c.err != nil {
		return ""
	}
	var sb strings.Builder
	c.render(&sb, ops)
	return sb.String()
}

func (c *Condition) render(sb *strings.Builder, ops Operators) {
	if c.left == nil {
		sb.WriteString("(")
		sb.WriteString(c.column)
		sb.WriteString(" ")
		sb.WriteString(tokenOf(c.op, ops))
		if !c.op.Kind().Unary() {
			sb.WriteString(" ?")
		}
		sb.WriteString(")")
		return
	}

	renderChild(sb, c.left, ops)
	sb.WriteString(" ")
	sb.WriteString(tokenOf(c.op, ops))
	sb.WriteString(" ")
	renderChild(sb, c.right, ops)
}

func renderChild(sb *strings.Builder, child *Condition, ops Operators) {
	if child.left == nil {
		child.render(sb, ops)
		return
	}
	sb.WriteString("(")
	child.render(sb, ops)
	sb.WriteString(")")
}

func tokenOf(op Operator, ops Operators) string {
	if dialect, ok := ops.Get(op.Kind()); ok {
		return dialect.SQL()
	}
	return op.SQL()
}

// Params 参数顺序与 SQL 中占位符的顺序一致，先左后右
func (c *Condition) Params() []any {
	if c == nil || c.err != nil {
		return nil
	}
	var params []any
	c.collect(&params)
	return params
}

func (c *Condition) collect(params *[]any) {
	if c.left == nil {
		if !c.op.Kind().Unary() {
			*params = append(*params, c.value)
		}
		return
	}
	c.left.collect(params)
	c.right.collect(params)
}

// Validate 校验条件列表，nil 或构造失败的条件返回 ErrInvalidCondition
func Validate(conditions []*Condition) error {
	for i, c := range conditions {
		if c == nil {
			return errors.WithMessagef(rdb.ErrInvalidCondition, "condition %d is nil", i)
		}
		if c.err != nil {
			return errors.WithMessagef(c.err, "condition %d", i)
		}
	}
	return nil
}

// ToSQL 渲染顶层条件列表，每个条件单独加括号后用 AND 连接，叶子本身已有括号
func ToSQL(conditions []*Condition, ops Operators) (string, error) {
	if err := Validate(conditions); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, c := range conditions {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		renderChild(&sb, c, ops)
	}
	return sb.String(), nil
}

// ToParams 按条件列表的顺序拼接参数
func ToParams(conditions []*Condition) []any {
	var params []any
	for _, c := range conditions {
		if c == nil || c.err != nil {
			continue
		}
		c.collect(&params)
	}
	return params
}
