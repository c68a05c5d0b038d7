package utils

import "log"

// SafeGo 在新 goroutine 中执行 fn，panic 只记录日志，name 用于定位任务
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[SafeGo] %s: panic recovered: %v", name, r)
			}
		}()
		fn()
	}()
}
