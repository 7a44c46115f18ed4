package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatlonely/rooster/rdb/database"
	"github.com/hatlonely/rooster/rdb/repository"
	. "github.com/smartystreets/goconvey/convey"
)

const yamlConfig = `
repository:
  grammar: redshift
  table:
    name: event
    primaryKey: [tid, uid, ts]
    mutable: true
    tenantScope: 0
    projection: [tid, msg]
database:
  type: sql
  sql:
    driver: postgres
    host: redshift.local
    port: 5439
    database: analytics
    connMaxLifetime: 30s
  observable:
    enableMetrics: false
    enableLogging: true
`

const jsonConfig = `{
  // 分析库
  "repository": {
    "grammar": "redshift",
    "table": {
      "name": "event",
      "primaryKey": ["tid", "uid", "ts"],
      "mutable": true,
      "tenantScope": 0,
      "projection": ["tid", "msg"], /* 尾随逗号 */
    },
  },
  "database": {
    "type": "sql",
    "sql": {
      "driver": "postgres",
      "host": "redshift.local",
      "port": 5439,
      "database": "analytics",
      "connMaxLifetime": "30s"
    },
    "observable": {
      "enableMetrics": false,
      "enableLogging": true
    }
  }
}`

const tomlConfig = `
[repository]
grammar = "redshift"

[repository.table]
name = "event"
primaryKey = ["tid", "uid", "ts"]
mutable = true
tenantScope = 0
projection = ["tid", "msg"]

[database]
type = "sql"

[database.sql]
driver = "postgres"
host = "redshift.local"
port = "5439"
database = "analytics"
connMaxLifetime = "30s"

[database.observable]
enableMetrics = false
enableLogging = true
`

const iniConfig = `
[repository]
grammar = redshift

[repository.table]
name = event
primaryKey = tid,uid,ts
mutable = true
tenantScope = 0
projection = tid,msg

[database]
type = sql

[database.sql]
driver = postgres
host = redshift.local
port = 5439
database = analytics
connMaxLifetime = 30s

[database.observable]
enableMetrics = false
enableLogging = true
`

func TestConfigFormats(t *testing.T) {
	for _, tc := range []struct {
		format string
		data   string
	}{
		{"yaml", yamlConfig},
		{"json", jsonConfig},
		{"toml", tomlConfig},
		{"ini", iniConfig},
	} {
		Convey("测试 "+tc.format+" 格式配置", t, func() {
			c, err := NewConfigFromBytes([]byte(tc.data), tc.format)
			So(err, ShouldBeNil)

			Convey("绑定仓库配置", func() {
				var options repository.Options
				So(c.Sub("repository").ConvertTo(&options), ShouldBeNil)
				So(options.Grammar, ShouldEqual, "redshift")
				So(options.Table.Name, ShouldEqual, "event")
				So(options.Table.PrimaryKey, ShouldResemble, []string{"tid", "uid", "ts"})
				So(options.Table.Mutable, ShouldBeTrue)
				So(options.Table.Readonly, ShouldBeFalse)
				So(options.Table.TenantScope, ShouldNotBeNil)
				So(*options.Table.TenantScope, ShouldEqual, 0)
				So(options.Table.Projection, ShouldResemble, []string{"tid", "msg"})
			})

			Convey("绑定数据库配置并设置默认值", func() {
				var options database.Options
				So(c.Sub("database").ConvertTo(&options), ShouldBeNil)
				So(options.Type, ShouldEqual, "sql")
				So(options.SQL.Driver, ShouldEqual, "postgres")
				So(options.SQL.Host, ShouldEqual, "redshift.local")
				So(options.SQL.Port, ShouldEqual, "5439")
				So(options.SQL.Database, ShouldEqual, "analytics")
				So(options.SQL.ConnMaxLifetime, ShouldEqual, 30*time.Second)
				So(options.SQL.SSLMode, ShouldEqual, "disable")
				So(options.SQL.MaxConns, ShouldEqual, 10)
				So(options.Observable, ShouldNotBeNil)
				So(options.Observable.EnableMetrics, ShouldBeFalse)
				So(options.Observable.EnableLogging, ShouldBeTrue)
				So(options.Observable.Name, ShouldEqual, "rdb")
			})

			Convey("多级 key", func() {
				var name string
				So(c.Sub("repository.table.name").ConvertTo(&name), ShouldBeNil)
				So(name, ShouldEqual, "event")

				var pk string
				So(c.Sub("repository").Sub("table").Sub("primaryKey[1]").ConvertTo(&pk), ShouldBeNil)
				So(pk, ShouldEqual, "uid")
			})
		})
	}
}

func TestConfigConvertTo(t *testing.T) {
	Convey("测试 ConvertTo", t, func() {
		Convey("缺省的配置项使用默认值，未配置的指针保持 nil", func() {
			c, err := NewConfigFromBytes([]byte("sql:\n  database: app\n"), "yaml")
			So(err, ShouldBeNil)

			var options database.Options
			So(c.ConvertTo(&options), ShouldBeNil)
			So(options.Type, ShouldEqual, "sql")
			So(options.SQL.Driver, ShouldEqual, "mysql")
			So(options.SQL.Host, ShouldEqual, "localhost")
			So(options.SQL.Charset, ShouldEqual, "utf8mb4")
			So(options.SQL.Database, ShouldEqual, "app")
			So(options.Gorm.Driver, ShouldEqual, "mysql")
			So(options.Observable, ShouldBeNil)
		})

		Convey("不存在的 key 只得到默认值", func() {
			c, err := NewConfigFromBytes([]byte("a: 1\n"), "yaml")
			So(err, ShouldBeNil)

			var options repository.Options
			err = c.Sub("repository").ConvertTo(&options)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "validate repository failed")
			So(options.Grammar, ShouldEqual, "phoenix")
		})

		Convey("校验失败", func() {
			c, err := NewConfigFromBytes([]byte("type: mongo\n"), "yaml")
			So(err, ShouldBeNil)

			var options database.Options
			err = c.ConvertTo(&options)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Type")
		})

		Convey("类型不匹配", func() {
			c, err := NewConfigFromBytes([]byte("sql:\n  maxConns: many\n"), "yaml")
			So(err, ShouldBeNil)

			var options database.Options
			err = c.ConvertTo(&options)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "sql.maxConns")
		})

		Convey("目标必须是指针", func() {
			c, err := NewConfigFromBytes([]byte("a: 1\n"), "yaml")
			So(err, ShouldBeNil)
			So(c.ConvertTo(database.Options{}), ShouldNotBeNil)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("测试 Load", t, func() {
		dir := t.TempDir()

		Convey("按扩展名选择解码器", func() {
			filename := filepath.Join(dir, "rooster.yml")
			So(os.WriteFile(filename, []byte(yamlConfig), 0644), ShouldBeNil)

			var options struct {
				Repository repository.Options `cfg:"repository"`
			}
			So(Load(filename, &options), ShouldBeNil)
			So(options.Repository.Table.Name, ShouldEqual, "event")
		})

		Convey("文件不存在", func() {
			var options repository.Options
			So(Load(filepath.Join(dir, "missing.yaml"), &options), ShouldNotBeNil)
		})

		Convey("不支持的格式", func() {
			filename := filepath.Join(dir, "rooster.xml")
			So(os.WriteFile(filename, []byte("<a/>"), 0644), ShouldBeNil)

			var options repository.Options
			err := Load(filename, &options)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unsupported config format")
		})

		Convey("格式错误", func() {
			filename := filepath.Join(dir, "rooster.json")
			So(os.WriteFile(filename, []byte("{"), 0644), ShouldBeNil)

			var options repository.Options
			So(Load(filename, &options), ShouldNotBeNil)
		})
	})
}
