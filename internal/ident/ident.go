package ident

import (
	"sync/atomic"
	"time"

	"github.com/jxskiss/base62"
)

var counter uint64

// New 生成一个按时间可排序的短ID，如 "T4qLx0demP3"。
// 同一纳秒内的并发调用靠单调计数器区分。
func New(prefix string) string {
	n := time.Now().UnixNano() + int64(atomic.AddUint64(&counter, 1))
	return prefix + string(base62.FormatInt(n))
}
