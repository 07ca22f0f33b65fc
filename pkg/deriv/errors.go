package deriv

import (
	"fmt"

	"github.com/pkg/errors"
)

// 错误分类：传输失败由重连逻辑处理，只有在请求挂起时才会以
// ErrConnectionClosed 的形式传播给调用方
var (
	// ErrNotConnected 连接未建立时发起需要连接的操作
	ErrNotConnected = errors.New("连接未建立")

	// ErrNotAuthorized 未授权时发起需要账户上下文的操作
	ErrNotAuthorized = errors.New("未授权")

	// ErrConnectionClosed 请求挂起期间连接被关闭或失败
	ErrConnectionClosed = errors.New("连接已关闭")

	// ErrRequestTimeout 关联请求在超时时间内没有收到响应
	ErrRequestTimeout = errors.New("请求超时")
)

// APIError 服务器返回的错误负载（code + message），作为类型化错误值
// 返回给调用方，而不是吞掉或抛出
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("服务器错误 [%s]: %s", e.Code, e.Message)
}
