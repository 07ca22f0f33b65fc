package deriv

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_Authorize(t *testing.T) {
	raw := `{
		"msg_type": "authorize",
		"req_id": 1,
		"authorize": {
			"loginid": "CR90001234",
			"currency": "USD",
			"balance": 10000.55,
			"email": "trader@example.com",
			"fullname": "Test Trader",
			"country": "de",
			"is_virtual": 1,
			"scopes": ["read", "trade"]
		}
	}`

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, msg.ReqID)
	assert.EqualValues(t, 1, *msg.ReqID)

	require.NotNil(t, msg.Authorize)
	assert.Equal(t, "CR90001234", msg.Authorize.LoginID)
	assert.Equal(t, "USD", msg.Authorize.Currency)
	assert.True(t, msg.Authorize.Balance.Equal(decimal.NewFromFloat(10000.55)))
	assert.Equal(t, []string{"read", "trade"}, msg.Authorize.Scopes)
	assert.Nil(t, msg.Error)
}

func TestParseMessage_TickWithSubscription(t *testing.T) {
	raw := `{
		"msg_type": "tick",
		"req_id": 7,
		"subscription": {"id": "sub-tick-eurusd"},
		"tick": {
			"symbol": "frxEURUSD",
			"quote": 1.08765,
			"ask": 1.08770,
			"bid": 1.08760,
			"epoch": 1756710000,
			"pip_size": 5,
			"id": "sub-tick-eurusd"
		}
	}`

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, msg.Subscription)
	assert.Equal(t, "sub-tick-eurusd", msg.Subscription.ID)

	require.NotNil(t, msg.Tick)
	assert.Equal(t, "frxEURUSD", msg.Tick.Symbol)
	assert.True(t, msg.Tick.Quote.Equal(decimal.NewFromFloat(1.08765)))
	assert.EqualValues(t, 1756710000, msg.Tick.Epoch)
	assert.Equal(t, 5, msg.Tick.PipSize)
}

func TestParseMessage_ServerError(t *testing.T) {
	raw := `{
		"msg_type": "buy",
		"req_id": 3,
		"error": {"code": "InvalidToken", "message": "The token is invalid."}
	}`

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "InvalidToken", msg.Error.Code)
	assert.Equal(t, "The token is invalid.", msg.Error.Message)
	assert.Contains(t, msg.Error.Error(), "InvalidToken")
}

func TestParseMessage_Malformed(t *testing.T) {
	cases := []string{
		`这不是 JSON`,
		`{"msg_type": `,
		`{"req_id": "不是数字"}`,
	}
	for _, raw := range cases {
		_, err := parseMessage([]byte(raw))
		assert.Error(t, err, "格式错误的帧应该返回解码错误: %q", raw)
	}
}

func TestParseMessage_BuyResult(t *testing.T) {
	raw := `{
		"msg_type": "buy",
		"req_id": 12,
		"buy": {
			"contract_id": 987654321,
			"buy_price": 10.25,
			"balance_after": 989.75,
			"payout": 19.50,
			"longcode": "Win payout if ...",
			"shortcode": "CALL_FRXEURUSD_...",
			"purchase_time": 1756710100,
			"start_time": 1756710101,
			"transaction_id": 555000111
		}
	}`

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, msg.Buy)
	assert.EqualValues(t, 987654321, msg.Buy.ContractID)
	assert.True(t, msg.Buy.BuyPrice.Equal(decimal.NewFromFloat(10.25)))
	assert.True(t, msg.Buy.BalanceAfter.Equal(decimal.NewFromFloat(989.75)))
	assert.EqualValues(t, 555000111, msg.Buy.TransactionID)
}

func TestRequestEncoding(t *testing.T) {
	req := &proposalRequest{
		Proposal:     1,
		Amount:       decimal.NewFromFloat(10.5),
		Basis:        "stake",
		ContractType: "CALL",
		Currency:     "USD",
		Duration:     5,
		DurationUnit: "m",
		Symbol:       "frxEURUSD",
	}
	req.setReqID(42)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, 42, decoded["req_id"])
	assert.Equal(t, "CALL", decoded["contract_type"])
	assert.Equal(t, "m", decoded["duration_unit"])
	assert.Equal(t, "10.5", decoded["amount"], "金额应该以 decimal 字符串编码")
}

func TestRequestEncoding_OmitEmptySubscribe(t *testing.T) {
	// 一次性快照请求不应该携带 subscribe 字段
	req := &balanceRequest{Balance: 1}
	req.setReqID(9)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	_, hasSubscribe := decoded["subscribe"]
	assert.False(t, hasSubscribe)
}
