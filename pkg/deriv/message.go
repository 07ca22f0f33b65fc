package deriv

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Message 入站帧的通用信封
// 服务器把结果负载嵌套在与请求同名的顶层字段下（例如 {"authorize": {...}}），
// 流式推送则带 msg_type 和 subscription.id
type Message struct {
	MsgType      string            `json:"msg_type"`
	ReqID        *int64            `json:"req_id"`
	Error        *APIError         `json:"error"`
	Subscription *SubscriptionInfo `json:"subscription"`
	EchoReq      json.RawMessage   `json:"echo_req"`

	// 关联响应负载
	Authorize     *AccountInfo      `json:"authorize"`
	Proposal      *Proposal         `json:"proposal"`
	Buy           *Contract         `json:"buy"`
	Sell          *SaleConfirmation `json:"sell"`
	ActiveSymbols []Symbol          `json:"active_symbols"`
	History       *TickHistory      `json:"history"`
	Candles       []Candle          `json:"candles"`
	Forget        json.RawMessage   `json:"forget"`
	Ping          string            `json:"ping"`

	// 流式负载（也可能和首次订阅确认一起出现）
	Tick                 *Tick         `json:"tick"`
	OHLC                 *Candle       `json:"ohlc"`
	Balance              *Balance      `json:"balance"`
	Portfolio            *Portfolio    `json:"portfolio"`
	ProposalOpenContract *OpenContract `json:"proposal_open_contract"`
}

// SubscriptionInfo 服务器分配的订阅 ID
type SubscriptionInfo struct {
	ID string `json:"id"`
}

// parseMessage 解码入站帧
// 格式错误的帧返回错误，由调用方记录并丢弃，不影响连接状态
func parseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(err, "解码入站帧失败")
	}
	return &msg, nil
}
