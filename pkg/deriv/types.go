// Package deriv 提供 Deriv 交易 API 的 WebSocket 客户端实现
// 单条长连接上多路复用请求/响应（req_id 关联）和流式订阅（行情、账户、合约），
// 支持断线自动重连、重新授权和订阅恢复
package deriv

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// 默认端点（app_id 通过查询参数传递）
	defaultEndpoint = "wss://ws.derivws.com/websockets/v3"
	defaultAppID    = "1089"

	// 超时设置
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second // 关联请求超时（行情远程调用的延迟预期）
	defaultWriteTimeout   = 10 * time.Second
	defaultReadTimeout    = 60 * time.Second

	// 心跳设置
	defaultPingInterval = 30 * time.Second

	// 重连设置
	defaultReconnectBaseDelay    = 1 * time.Second
	defaultMaxReconnectDelay     = 30 * time.Second
	defaultMaxReconnectAttempts  = 5
	goroutineHandoverWaitTimeout = 2 * time.Second
)

// ConnectionState 表示连接状态
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected" // 未连接（初始状态或显式断开后）
	StateConnecting   ConnectionState = "connecting"   // 正在建立连接
	StateConnected    ConnectionState = "connected"    // 连接已建立，未授权
	StateAuthorized   ConnectionState = "authorized"   // 已授权，可进行账户操作
	StateError        ConnectionState = "error"        // 连接失败或重连已放弃
)

// Config 是客户端配置
type Config struct {
	// 连接设置
	Endpoint string // WebSocket 端点 URL
	AppID    string // 应用 ID（查询参数）

	// 超时设置
	ConnectTimeout time.Duration // 连接（握手）超时
	RequestTimeout time.Duration // 关联请求默认超时
	WriteTimeout   time.Duration // 单次写超时
	ReadTimeout    time.Duration // 入站静默上限，超过则视为传输失败（须大于 PingInterval）

	// 心跳设置
	PingInterval time.Duration // Ping 间隔

	// 重连设置
	ReconnectEnabled     bool          // 是否启用自动重连
	ReconnectBaseDelay   time.Duration // 退避基础延迟
	MaxReconnectDelay    time.Duration // 退避延迟上限
	MaxReconnectAttempts int           // 最大重连尝试次数

	// 连接缓冲区设置
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Endpoint:             defaultEndpoint,
		AppID:                defaultAppID,
		ConnectTimeout:       defaultConnectTimeout,
		RequestTimeout:       defaultRequestTimeout,
		WriteTimeout:         defaultWriteTimeout,
		ReadTimeout:          defaultReadTimeout,
		PingInterval:         defaultPingInterval,
		ReconnectEnabled:     true,
		ReconnectBaseDelay:   defaultReconnectBaseDelay,
		MaxReconnectDelay:    defaultMaxReconnectDelay,
		MaxReconnectAttempts: defaultMaxReconnectAttempts,
		ReadBufferSize:       4096,
		WriteBufferSize:      4096,
	}
}

// AccountInfo 授权成功后返回的账户信息
type AccountInfo struct {
	LoginID   string          `json:"loginid"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Email     string          `json:"email"`
	Fullname  string          `json:"fullname"`
	Country   string          `json:"country"`
	IsVirtual int             `json:"is_virtual"`
	Scopes    []string        `json:"scopes"`
}

// Tick 单个报价
type Tick struct {
	Symbol  string          `json:"symbol"`
	Quote   decimal.Decimal `json:"quote"`
	Ask     decimal.Decimal `json:"ask"`
	Bid     decimal.Decimal `json:"bid"`
	Epoch   int64           `json:"epoch"`
	PipSize int             `json:"pip_size"`
	ID      string          `json:"id"`
}

// Candle OHLC K 线
type Candle struct {
	Symbol      string          `json:"symbol"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Epoch       int64           `json:"epoch"`
	OpenTime    int64           `json:"open_time"`
	Granularity int             `json:"granularity"`
}

// Balance 账户余额
type Balance struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
	LoginID  string          `json:"loginid"`
}

// Portfolio 持仓列表
type Portfolio struct {
	Contracts []PortfolioContract `json:"contracts"`
}

// PortfolioContract 持仓中的单个合约
type PortfolioContract struct {
	ContractID    int64           `json:"contract_id"`
	ContractType  string          `json:"contract_type"`
	Currency      string          `json:"currency"`
	Symbol        string          `json:"symbol"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	Payout        decimal.Decimal `json:"payout"`
	Longcode      string          `json:"longcode"`
	Shortcode     string          `json:"shortcode"`
	DateStart     int64           `json:"date_start"`
	ExpiryTime    int64           `json:"expiry_time"`
	PurchaseTime  int64           `json:"purchase_time"`
	TransactionID int64           `json:"transaction_id"`
}

// OpenContract 持仓合约的实时状态（proposal_open_contract 流）
type OpenContract struct {
	ContractID   int64           `json:"contract_id"`
	ContractType string          `json:"contract_type"`
	Symbol       string          `json:"underlying"`
	Profit       decimal.Decimal `json:"profit"`
	CurrentSpot  decimal.Decimal `json:"current_spot"`
	EntrySpot    decimal.Decimal `json:"entry_spot"`
	BuyPrice     decimal.Decimal `json:"buy_price"`
	Payout       decimal.Decimal `json:"payout"`
	Status       string          `json:"status"`
	IsSold       int             `json:"is_sold"`
	IsExpired    int             `json:"is_expired"`
	DateExpiry   int64           `json:"date_expiry"`
}

// Proposal 服务器报价（买入前必须先取得报价）
type Proposal struct {
	ID           string          `json:"id"`
	AskPrice     decimal.Decimal `json:"ask_price"`
	Payout       decimal.Decimal `json:"payout"`
	Spot         decimal.Decimal `json:"spot"`
	SpotTime     int64           `json:"spot_time"`
	DateStart    int64           `json:"date_start"`
	Longcode     string          `json:"longcode"`
	DisplayValue string          `json:"display_value"`
}

// Contract 买入成功后返回的合约
type Contract struct {
	ContractID    int64           `json:"contract_id"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Payout        decimal.Decimal `json:"payout"`
	Longcode      string          `json:"longcode"`
	Shortcode     string          `json:"shortcode"`
	PurchaseTime  int64           `json:"purchase_time"`
	StartTime     int64           `json:"start_time"`
	TransactionID int64           `json:"transaction_id"`
}

// SaleConfirmation 卖出成功后返回的确认信息
type SaleConfirmation struct {
	ContractID    int64           `json:"contract_id"`
	SoldFor       decimal.Decimal `json:"sold_for"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceID   int64           `json:"reference_id"`
	TransactionID int64           `json:"transaction_id"`
}

// Symbol 可交易的交易品种（active_symbols）
type Symbol struct {
	Symbol             string          `json:"symbol"`
	DisplayName        string          `json:"display_name"`
	Market             string          `json:"market"`
	MarketDisplayName  string          `json:"market_display_name"`
	Submarket          string          `json:"submarket"`
	Pip                decimal.Decimal `json:"pip"`
	ExchangeIsOpen     int             `json:"exchange_is_open"`
	IsTradingSuspended int             `json:"is_trading_suspended"`
}

// TickHistory 历史报价（ticks_history，style=ticks）
type TickHistory struct {
	Prices []decimal.Decimal `json:"prices"`
	Times  []int64           `json:"times"`
}

// ProposalParams 报价/买入参数
type ProposalParams struct {
	ContractType string          // 合约类型，例如 "CALL"、"PUT"
	Currency     string          // 结算货币
	Amount       decimal.Decimal // 投入金额
	Symbol       string          // 交易品种
	Duration     int             // 持续时长
	DurationUnit string          // 时长单位，例如 "m"、"t"
	Basis        string          // 计价基准，默认 "stake"
}
