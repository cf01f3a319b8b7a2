package autoid

import "github.com/ceyewan/autoid/xerrors"

// ErrInvalidInput 参数错误，如 nil 的 IDSource、非指针模型或不完整的分表规则
var ErrInvalidInput = xerrors.ErrInvalidInput
