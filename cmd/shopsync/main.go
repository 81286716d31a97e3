// shopsync 把店铺 API 的数据同步到本地缓存，并提供用于联调的模拟服务。
//
//	shopsync sync --force
//	shopsync watch --interval 2m
//	shopsync serve-mock --addr :8088
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
