package main

// @title           Backend API
// @version         1.0
// @description     队列消费 Worker 的 HTTP 接口：健康检查与指标
// @BasePath        /

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
