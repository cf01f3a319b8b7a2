package config

import "github.com/ceyewan/autoid/xerrors"

// ErrValidationFailed 配置为空或验证失败
var ErrValidationFailed = xerrors.New("config: validation failed")

// IsInvalidInput 检查错误是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput) || xerrors.Is(err, ErrValidationFailed)
}
