package idgen

import "github.com/ceyewan/autoid/xerrors"

var (
	// ErrInvalidInput 无效的输入（节点越界、配置错误等）
	ErrInvalidInput = xerrors.New("idgen: invalid input")

	// ErrConnectorNil 所选协调器缺少对应的连接器
	ErrConnectorNil = xerrors.New("idgen: connector is nil")

	// ErrNoAvailableSlot 128 个节点槽位均已被占用
	ErrNoAvailableSlot = xerrors.New("idgen: no available node slot")

	// ErrNotInitialized Holder 尚未初始化
	ErrNotInitialized = xerrors.New("idgen: holder not initialized")

	// ErrAlreadyInitialized Holder 已经初始化过
	ErrAlreadyInitialized = xerrors.New("idgen: holder already initialized")

	// ErrLeaseLost 节点槽位租约丢失（过期或被他人占用）
	ErrLeaseLost = xerrors.New("idgen: node lease lost")
)
