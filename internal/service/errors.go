package service

import (
	"errors"
)

const (
	BadRequest      = 400
	TooManyRequests = 429
)

var (
	ErrParamInvalid     = errors.New("参数错误")
	ErrConversationBusy = errors.New("会话正在处理中，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:     BadRequest,
	ErrConversationBusy: TooManyRequests,
}
