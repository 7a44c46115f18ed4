package grammar

import (
	"sort"
	"sync"

	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
)

// Grammar 方言的 SQL 生成规则，实现必须无状态，可以在并发调用间共享
//
// 所有方法在生成 SQL 之前校验参数：table 为 nil 返回 ErrPrecondition，
// limit 既不是 query.NoLimit 也不在 (0, query.MaxLimit] 内返回 ErrOutOfRange
type Grammar interface {
	Name() string
	Operators() query.Operators

	// Count SELECT COUNT(*) FROM <table>
	Count(table *rdb.TableMetadata) (string, error)
	// DeleteByIDs 每个 id 一个 OR 分组，分组内按主键顺序 AND 连接
	DeleteByIDs(table *rdb.TableMetadata, idCount int) (string, error)
	// SelectByID idCount <= 0 时不生成 WHERE 子句
	SelectByID(table *rdb.TableMetadata, sort query.Sort, limit int, idCount int, dynamicTypes rdb.ColumnTypes, projection []string) (string, error)
	// SelectByCondition 顶层条件之间用 AND 连接
	SelectByCondition(table *rdb.TableMetadata, sort query.Sort, limit int, conditions []*query.Condition, dynamicTypes rdb.ColumnTypes, projection []string) (string, error)
	// Save 列顺序为 columns 之后接 dynamic，与绑定参数的顺序一致；dynamic 的 Type 不为空时优先使用
	Save(table *rdb.TableMetadata, columns rdb.Columns, dynamic rdb.Columns) (string, error)
	// ParamDataType 参数值对应的 SQL 类型，无法识别时返回 ErrUnsupportedType
	ParamDataType(value any) (string, error)
}

var grammars sync.Map

// Register 注册方言，重复注册同名方言返回错误
func Register(g Grammar) error {
	if g == nil || g.Name() == "" {
		return errors.WithMessage(rdb.ErrPrecondition, "grammar must have a name")
	}
	if _, loaded := grammars.LoadOrStore(g.Name(), g); loaded {
		return errors.Errorf("grammar %s already registered", g.Name())
	}
	return nil
}

// MustRegister 注册失败时 panic
func MustRegister(g Grammar) {
	if err := Register(g); err != nil {
		panic(err)
	}
}

// Get 按名称获取方言
func Get(name string) (Grammar, error) {
	if v, ok := grammars.Load(name); ok {
		return v.(Grammar), nil
	}
	return nil, errors.WithMessagef(rdb.ErrPrecondition, "unknown grammar %q, available %v", name, Names())
}

// MustGet 方言不存在时 panic
func MustGet(name string) Grammar {
	g, err := Get(name)
	if err != nil {
		panic(err)
	}
	return g
}

// Names 已注册的方言名称，按字典序
func Names() []string {
	var names []string
	grammars.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

func init() {
	MustRegister(Phoenix())
	MustRegister(Redshift())
}
