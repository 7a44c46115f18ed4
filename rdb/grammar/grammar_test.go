package grammar

import (
	"bytes"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/rooster/log/logger"
	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
	"github.com/sebdah/goldie/v2"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	eventTable = rdb.MustNewTableMetadata("event", []string{"tid", "uid", "ts"}, rdb.WithMutable())
	userTable  = rdb.MustNewTableMetadata("users", []string{"id"}, rdb.WithProjection("id", "name", "status"))

	eventDynamicTypes = rdb.ColumnTypes{{Name: "browser", Type: "VARCHAR"}, {Name: "score", Type: "BIGINT"}}
	eventColumns      = rdb.Columns{{Name: "tid", Value: 1}, {Name: "uid", Value: "u1"}, {Name: "ts", Value: int64(100)}, {Name: "msg", Value: "hi"}}
	eventDynamic      = rdb.Columns{{Name: "browser", Value: "chrome"}, {Name: "score", Value: int64(3)}}

	statusCondition = query.Or(query.Eq("status", "Active"), query.Eq("status", "Suspended"))
)

func TestGrammarGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	quiet := NewRedshift(logger.Discard())

	tests := []struct {
		name string
		sql  func() (string, error)
	}{
		{"phoenix_count", func() (string, error) {
			return Phoenix().Count(eventTable)
		}},
		{"phoenix_delete_by_ids", func() (string, error) {
			return Phoenix().DeleteByIDs(eventTable, 2)
		}},
		{"phoenix_select_by_id", func() (string, error) {
			return Phoenix().SelectByID(eventTable, query.Sort{query.Desc("ts")}, 1, 1, eventDynamicTypes, nil)
		}},
		{"phoenix_select_all_unbounded", func() (string, error) {
			return Phoenix().SelectByID(eventTable, nil, query.NoLimit, 0, nil, nil)
		}},
		{"phoenix_select_by_condition", func() (string, error) {
			return Phoenix().SelectByCondition(userTable, query.Sort{query.Desc("id")}, 2, []*query.Condition{statusCondition}, nil, nil)
		}},
		{"phoenix_save", func() (string, error) {
			return Phoenix().Save(eventTable, eventColumns, eventDynamic)
		}},
		{"redshift_count", func() (string, error) {
			return quiet.Count(userTable)
		}},
		{"redshift_delete_by_ids", func() (string, error) {
			return quiet.DeleteByIDs(eventTable, 1)
		}},
		{"redshift_select_by_id", func() (string, error) {
			return quiet.SelectByID(eventTable, query.Sort{query.Desc("ts")}, 1, 1, eventDynamicTypes, nil)
		}},
		{"redshift_select_all_unbounded", func() (string, error) {
			return quiet.SelectByID(eventTable, nil, query.NoLimit, 0, nil, nil)
		}},
		{"redshift_select_by_condition", func() (string, error) {
			return quiet.SelectByCondition(userTable, query.Sort{query.Desc("id")}, 2, []*query.Condition{statusCondition}, nil, []string{"id", "email"})
		}},
		{"redshift_save", func() (string, error) {
			return quiet.Save(eventTable, eventColumns, eventDynamic)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := tt.sql()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			g.Assert(t, tt.name, []byte(sql))
		})
	}
}

func TestRegistry(t *testing.T) {
	Convey("测试方言注册表", t, func() {
		So(Names(), ShouldResemble, []string{"phoenix", "redshift"})
		So(MustGet("phoenix"), ShouldEqual, Phoenix())
		So(MustGet("redshift"), ShouldEqual, Redshift())

		_, err := Get("impala")
		So(errors.Is(err, rdb.ErrPrecondition), ShouldBeTrue)
		So(func() { MustGet("impala") }, ShouldPanic)

		So(Register(Phoenix()), ShouldNotBeNil)
		So(errors.Is(Register(nil), rdb.ErrPrecondition), ShouldBeTrue)
	})
}

func TestGrammarPreconditions(t *testing.T) {
	Convey("测试参数校验", t, func() {
		for _, g := range []Grammar{Phoenix(), NewRedshift(logger.Discard())} {
			Convey(g.Name(), func() {
				_, err := g.Count(nil)
				So(errors.Is(err, rdb.ErrPrecondition), ShouldBeTrue)

				_, err = g.DeleteByIDs(eventTable, 0)
				So(errors.Is(err, rdb.ErrPrecondition), ShouldBeTrue)

				for _, limit := range []int{0, -2, query.MaxLimit + 1} {
					_, err = g.SelectByID(eventTable, nil, limit, 1, nil, nil)
					So(errors.Is(err, rdb.ErrOutOfRange), ShouldBeTrue)
					_, err = g.SelectByCondition(eventTable, nil, limit, nil, nil, nil)
					So(errors.Is(err, rdb.ErrOutOfRange), ShouldBeTrue)
				}

				_, err = g.SelectByID(eventTable, query.Sort{{Column: "ts", Direction: "SIDEWAYS"}}, 1, 1, nil, nil)
				So(errors.Is(err, rdb.ErrPrecondition), ShouldBeTrue)

				_, err = g.SelectByCondition(eventTable, nil, 10, []*query.Condition{query.Eq("", 1)}, nil, nil)
				So(errors.Is(err, rdb.ErrInvalidCondition), ShouldBeTrue)

				_, err = g.SelectByCondition(eventTable, nil, 10, []*query.Condition{nil}, nil, nil)
				So(errors.Is(err, rdb.ErrInvalidCondition), ShouldBeTrue)

				_, err = g.Save(eventTable, nil, eventDynamic)
				So(errors.Is(err, rdb.ErrMapping), ShouldBeTrue)

				_, err = g.Save(eventTable, rdb.Columns{{Name: "tid", Value: 1}}, rdb.Columns{{Name: "tid", Value: 2}})
				So(errors.Is(err, rdb.ErrMapping), ShouldBeTrue)

				_, err = g.Save(nil, eventColumns, nil)
				So(errors.Is(err, rdb.ErrPrecondition), ShouldBeTrue)
			})
		}
	})
}

func TestPlaceholderOrder(t *testing.T) {
	Convey("占位符数量等于参数数量", t, func() {
		for _, g := range []Grammar{Phoenix(), NewRedshift(logger.Discard())} {
			sql, err := g.Save(eventTable, eventColumns, eventDynamic)
			So(err, ShouldBeNil)
			So(strings.Count(sql, "?"), ShouldEqual, len(eventColumns)+len(eventDynamic))

			for n := 1; n <= 5; n++ {
				sql, err = g.DeleteByIDs(eventTable, n)
				So(err, ShouldBeNil)
				So(strings.Count(sql, "?"), ShouldEqual, n*eventTable.IDArity())
				So(strings.Count(sql, " OR "), ShouldEqual, n-1)

				sql, err = g.SelectByID(eventTable, nil, query.MaxLimit, n, nil, nil)
				So(err, ShouldBeNil)
				So(strings.Count(sql, "?"), ShouldEqual, n*eventTable.IDArity())
			}

			q := query.NewBuilder().Where(statusCondition).OrderBy(query.Desc("id")).Limit(2).MustBuild()
			sql, err = g.SelectByCondition(userTable, q.Sort(), q.Limit(), q.Conditions(), nil, q.Projection())
			So(err, ShouldBeNil)
			So(strings.Count(sql, " WHERE "), ShouldEqual, 1)
			So(strings.Count(sql, " ORDER BY "), ShouldEqual, 1)
			So(sql, ShouldEndWith, " LIMIT 2")
			So(strings.Count(sql, "?"), ShouldEqual, len(q.Params()))
			So(q.Params(), ShouldResemble, []any{"Active", "Suspended"})
		}
	})
}

func TestPhoenixDeclaredDynamicType(t *testing.T) {
	Convey("Save 使用声明的动态列类型", t, func() {
		types := rdb.ColumnTypes{{Name: "clicks", Type: "INTEGER"}}
		table := rdb.MustNewTableMetadata("event", []string{"id"})

		save, err := Phoenix().Save(table, rdb.Columns{{Name: "id", Value: 1}}, rdb.Columns{{Name: "clicks", Value: 7, Type: "INTEGER"}})
		So(err, ShouldBeNil)
		So(save, ShouldEqual, "UPSERT INTO event (id, clicks INTEGER) VALUES (?, ?)")

		sel, err := Phoenix().SelectByID(table, nil, 1, 1, types, nil)
		So(err, ShouldBeNil)
		So(sel, ShouldEqual, "SELECT * FROM event(clicks INTEGER) WHERE (id = ?) LIMIT 1")

		Convey("没有声明时按值推断", func() {
			save, err := Phoenix().Save(table, rdb.Columns{{Name: "id", Value: 1}}, rdb.Columns{{Name: "clicks", Value: 7}})
			So(err, ShouldBeNil)
			So(save, ShouldEqual, "UPSERT INTO event (id, clicks BIGINT) VALUES (?, ?)")
		})

		Convey("Redshift 不写类型", func() {
			save, err := NewRedshift(logger.Discard()).Save(table, rdb.Columns{{Name: "id", Value: 1}}, rdb.Columns{{Name: "clicks", Value: 7, Type: "INTEGER"}})
			So(err, ShouldBeNil)
			So(save, ShouldEqual, "INSERT INTO event (id, clicks) VALUES (?, ?)")
		})
	})
}

func TestPhoenixParamDataType(t *testing.T) {
	Convey("测试 Phoenix 参数类型", t, func() {
		s := "x"
		cases := map[string]any{
			"TINYINT":           int8(1),
			"SMALLINT":          int16(1),
			"INTEGER":           int32(1),
			"BIGINT":            int64(1),
			"UNSIGNED_TINYINT":  uint8(1),
			"UNSIGNED_SMALLINT": uint16(1),
			"UNSIGNED_INT":      uint32(1),
			"UNSIGNED_LONG":     uint64(1),
			"FLOAT":             float32(1),
			"DOUBLE":            1.5,
			"DECIMAL":           big.NewRat(1, 3),
			"BOOLEAN":           true,
			"DATE":              rdb.NewDate(2024, time.January, 1),
			"TIMESTAMP":         time.Now(),
			"VARCHAR":           &s,
			"VARBINARY":         []byte("x"),
			"INTEGER ARRAY":     []int32{1, 2},
			"VARCHAR ARRAY":     []uuid.UUID{uuid.New()},
			"VARBINARY ARRAY":   [][]byte{[]byte("x")},
		}
		for want, value := range cases {
			got, err := Phoenix().ParamDataType(value)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
		So(func() string { v, _ := Phoenix().ParamDataType(42); return v }(), ShouldEqual, "BIGINT")

		for _, value := range []any{nil, (*string)(nil), struct{}{}, map[string]int{}, [][]int{{1}}, []any{1}} {
			_, err := Phoenix().ParamDataType(value)
			So(errors.Is(err, rdb.ErrUnsupportedType), ShouldBeTrue)
		}

		_, err := Phoenix().Save(eventTable, eventColumns, rdb.Columns{{Name: "meta", Value: map[string]int{}}})
		So(errors.Is(err, rdb.ErrUnsupportedType), ShouldBeTrue)
	})
}

func TestRedshiftParamDataType(t *testing.T) {
	Convey("测试 Redshift 参数类型", t, func() {
		g := Redshift()
		cases := map[string]any{
			"SMALLINT":         int16(1),
			"INTEGER":          int32(1),
			"BIGINT":           int64(1),
			"REAL":             float32(1),
			"DOUBLE PRECISION": 1.5,
			"DECIMAL":          big.NewFloat(1.5),
			"BOOLEAN":          false,
			"DATE":             rdb.NewDate(2024, time.January, 1),
			"TIMESTAMP":        time.Now(),
			"VARCHAR":          "x",
		}
		for want, value := range cases {
			got, err := g.ParamDataType(value)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		for _, value := range []any{nil, []byte("x"), []int{1}, uint64(1)} {
			_, err := g.ParamDataType(value)
			So(errors.Is(err, rdb.ErrUnsupportedType), ShouldBeTrue)
		}
	})
}

func TestRedshiftIgnoresDynamicColumns(t *testing.T) {
	Convey("Redshift 查询忽略动态列并记录告警", t, func() {
		var buf bytes.Buffer
		g := NewRedshift(logger.NewSLog(slog.NewTextHandler(&buf, nil)))

		sql, err := g.SelectByCondition(eventTable, nil, 10, []*query.Condition{query.Eq("tid", 1)}, eventDynamicTypes, nil)
		So(err, ShouldBeNil)
		So(sql, ShouldEqual, "SELECT * FROM event WHERE (tid = ?) LIMIT 10")
		So(buf.String(), ShouldContainSubstring, "level=WARN")
		So(buf.String(), ShouldContainSubstring, "table=event")

		buf.Reset()
		_, err = g.SelectByID(eventTable, nil, 10, 1, nil, nil)
		So(err, ShouldBeNil)
		So(buf.Len(), ShouldEqual, 0)
	})
}
