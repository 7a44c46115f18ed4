package database

import (
	"context"
	"testing"

	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGorm(t *testing.T) {
	Convey("测试 GORM 执行器", t, func() {
		g, err := NewGormWithOptions(&GormOptions{Driver: "sqlite", DSN: ":memory:"})
		So(err, ShouldBeNil)
		defer g.Close()

		ctx := context.Background()
		_, err = g.Execute(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, status TEXT)", nil)
		So(err, ShouldBeNil)

		counts, err := g.ExecuteBatch(ctx, "INSERT INTO users (id, name, status) VALUES (?, ?, ?)", [][]any{
			{1, "alice", "Active"},
			{2, "bob", "Suspended"},
			{3, "carol", "Closed"},
		})
		So(err, ShouldBeNil)
		So(counts, ShouldResemble, []int64{1, 1, 1})

		Convey("查询", func() {
			rows, err := collect(g, "SELECT id, name FROM users WHERE ((status = ?) OR (status = ?)) ORDER BY id DESC LIMIT 2", "Active", "Suspended")
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[0]["name"], ShouldEqual, "bob")
			So(rows[1]["name"], ShouldEqual, "alice")
		})

		Convey("事务提交", func() {
			err := WithTx(ctx, g, func(tx Transaction) error {
				n, err := tx.Execute(ctx, "DELETE FROM users WHERE (id = ?)", []any{3})
				So(n, ShouldEqual, 1)
				return err
			})
			So(err, ShouldBeNil)

			rows, err := collect(g, "SELECT COUNT(*) AS n FROM users")
			So(err, ShouldBeNil)
			So(rows[0]["n"], ShouldEqual, int64(2))
		})

		Convey("事务回滚", func() {
			err := WithTx(ctx, g, func(tx Transaction) error {
				if _, err := tx.ExecuteBatch(ctx, "DELETE FROM users WHERE (id = ?)", [][]any{{1}, {2}}); err != nil {
					return err
				}
				rows, err := collect(tx, "SELECT COUNT(*) AS n FROM users")
				So(err, ShouldBeNil)
				So(rows[0]["n"], ShouldEqual, int64(1))
				return errors.New("abort")
			})
			So(err, ShouldNotBeNil)

			rows, err := collect(g, "SELECT COUNT(*) AS n FROM users")
			So(err, ShouldBeNil)
			So(rows[0]["n"], ShouldEqual, int64(3))
		})

		Convey("执行错误", func() {
			_, err := g.Execute(ctx, "INSERT INTO users (id) VALUES (?)", []any{1})
			So(errors.Is(err, rdb.ErrExecution), ShouldBeTrue)

			err = g.Query(ctx, "SELECT * FROM missing", nil, func(rdb.Row) error { return nil })
			So(errors.Is(err, rdb.ErrExecution), ShouldBeTrue)
		})
	})

	Convey("不支持的驱动", t, func() {
		_, err := NewGormWithOptions(&GormOptions{Driver: "oracle", DSN: "x"})
		So(err, ShouldNotBeNil)
		_, err = NewGormWithOptions(nil)
		So(err, ShouldNotBeNil)
		_, err = NewGormWithOptions(&GormOptions{Driver: "sqlite"})
		So(err, ShouldNotBeNil)
	})
}
