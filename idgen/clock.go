package idgen

import "time"

// Clock 生成器使用的时间源
type Clock interface {
	// NowMilli 返回当前 Unix 毫秒时间戳
	NowMilli() int64
	// Sleep 时钟小幅回拨时的有界等待
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) NowMilli() int64 { return time.Now().UnixMilli() }

func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock 返回基于系统时间的 Clock
func SystemClock() Clock {
	return systemClock{}
}
