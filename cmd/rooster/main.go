// rooster 查看表定义生成的 SQL，或者直接对配置的数据库执行只读操作
//
//	rooster compile --config repo.yaml --op select --ids 2
//	rooster count --config repo.yaml
//	rooster find --config repo.yaml --where status=active --limit 10
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
