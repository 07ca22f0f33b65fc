package deriv

import "github.com/shopspring/decimal"

// 出站请求是一组封闭的类型化变体，每个已知操作对应一个结构体，
// 字段名即协议字段名。所有关联请求统一携带 req_id（包括 ping）

// request 可被赋予请求 ID 的出站请求
type request interface {
	setReqID(id int64)
}

type authorizeRequest struct {
	Authorize string `json:"authorize"`
	ReqID     int64  `json:"req_id"`
}

func (r *authorizeRequest) setReqID(id int64) { r.ReqID = id }

type ticksRequest struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
	ReqID     int64  `json:"req_id"`
}

func (r *ticksRequest) setReqID(id int64) { r.ReqID = id }

// ticksHistoryRequest 历史报价/K 线请求；Subscribe=1 且 Style=candles 时
// 订阅实时 OHLC 流
type ticksHistoryRequest struct {
	TicksHistory string `json:"ticks_history"`
	End          string `json:"end"`
	Count        int    `json:"count"`
	Style        string `json:"style"`
	Granularity  int    `json:"granularity,omitempty"`
	Subscribe    int    `json:"subscribe,omitempty"`
	ReqID        int64  `json:"req_id"`
}

func (r *ticksHistoryRequest) setReqID(id int64) { r.ReqID = id }

type portfolioRequest struct {
	Portfolio int   `json:"portfolio"`
	Subscribe int   `json:"subscribe,omitempty"`
	ReqID     int64 `json:"req_id"`
}

func (r *portfolioRequest) setReqID(id int64) { r.ReqID = id }

type balanceRequest struct {
	Balance   int   `json:"balance"`
	Subscribe int   `json:"subscribe,omitempty"`
	ReqID     int64 `json:"req_id"`
}

func (r *balanceRequest) setReqID(id int64) { r.ReqID = id }

type openContractsRequest struct {
	ProposalOpenContract int   `json:"proposal_open_contract"`
	Subscribe            int   `json:"subscribe,omitempty"`
	ReqID                int64 `json:"req_id"`
}

func (r *openContractsRequest) setReqID(id int64) { r.ReqID = id }

type proposalRequest struct {
	Proposal     int             `json:"proposal"`
	Amount       decimal.Decimal `json:"amount"`
	Basis        string          `json:"basis"`
	ContractType string          `json:"contract_type"`
	Currency     string          `json:"currency"`
	Duration     int             `json:"duration"`
	DurationUnit string          `json:"duration_unit"`
	Symbol       string          `json:"symbol"`
	ReqID        int64           `json:"req_id"`
}

func (r *proposalRequest) setReqID(id int64) { r.ReqID = id }

// buyRequest 按报价 ID 买入，Price 为报价的 ask_price（买入上限价）
type buyRequest struct {
	Buy   string          `json:"buy"`
	Price decimal.Decimal `json:"price"`
	ReqID int64           `json:"req_id"`
}

func (r *buyRequest) setReqID(id int64) { r.ReqID = id }

type sellRequest struct {
	Sell  int64           `json:"sell"`
	Price decimal.Decimal `json:"price"`
	ReqID int64           `json:"req_id"`
}

func (r *sellRequest) setReqID(id int64) { r.ReqID = id }

// forgetRequest 按服务器订阅 ID 取消订阅
type forgetRequest struct {
	Forget string `json:"forget"`
	ReqID  int64  `json:"req_id"`
}

func (r *forgetRequest) setReqID(id int64) { r.ReqID = id }

type pingRequest struct {
	Ping  int   `json:"ping"`
	ReqID int64 `json:"req_id"`
}

func (r *pingRequest) setReqID(id int64) { r.ReqID = id }

type activeSymbolsRequest struct {
	ActiveSymbols string `json:"active_symbols"`
	ProductType   string `json:"product_type"`
	ReqID         int64  `json:"req_id"`
}

func (r *activeSymbolsRequest) setReqID(id int64) { r.ReqID = id }
