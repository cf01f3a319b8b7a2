package idgen

import (
	"sync/atomic"

	"github.com/ceyewan/autoid/xerrors"
)

// IDSource 生成 ID 的最小能力，Generator、Component、Holder 均实现此接口
type IDSource interface {
	NextID() int64
	NextIDString() string
}

// Holder 应用启动时初始化一次、之后只读的 ID 来源
//
// 零值可用。初始化前调用 NextID/NextIDString 会 panic(ErrNotInitialized)，
// 以便尽早暴露装配顺序错误。
type Holder struct {
	src atomic.Pointer[sourceBox]
}

type sourceBox struct {
	src IDSource
}

// NewHolder 创建未初始化的 Holder
func NewHolder() *Holder {
	return &Holder{}
}

// Init 绑定 ID 来源，只有第一次调用生效
func (h *Holder) Init(src IDSource) error {
	if src == nil {
		return xerrors.Wrap(ErrInvalidInput, "id source is nil")
	}
	if !h.src.CompareAndSwap(nil, &sourceBox{src: src}) {
		return ErrAlreadyInitialized
	}
	return nil
}

// Initialized 返回是否已初始化
func (h *Holder) Initialized() bool {
	return h.src.Load() != nil
}

// NextID 见 Generator.NextID
func (h *Holder) NextID() int64 {
	return h.source().NextID()
}

// NextIDString 见 Generator.NextIDString
func (h *Holder) NextIDString() string {
	return h.source().NextIDString()
}

func (h *Holder) source() IDSource {
	box := h.src.Load()
	if box == nil {
		panic(ErrNotInitialized)
	}
	return box.src
}
