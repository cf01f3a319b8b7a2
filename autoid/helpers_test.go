package autoid

import (
	"strconv"
	"sync/atomic"
)

// seqSource 按顺序返回 base+1, base+2, ...
type seqSource struct {
	base int64
	n    atomic.Int64
}

func (s *seqSource) NextID() int64 {
	return s.base + s.n.Add(1)
}

func (s *seqSource) NextIDString() string {
	return strconv.FormatInt(s.NextID(), 10)
}

func (s *seqSource) calls() int64 {
	return s.n.Load()
}
