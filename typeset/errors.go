package typeset

import "errors"

var (
	// ErrIllegalContent 表示字符不在 run 所声明编码的合法范围内。
	ErrIllegalContent = errors.New("illegal content")
	// ErrInvalidArgument 表示参数取值非法（旋转角度、跨行/跨列数等）。
	ErrInvalidArgument = errors.New("invalid argument")
)
