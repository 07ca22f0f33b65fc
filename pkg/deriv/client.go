package deriv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ghostbot/derivbot/pkg/cache"
	"github.com/ghostbot/derivbot/pkg/ratelimit"
	"github.com/ghostbot/derivbot/pkg/syncgroup"
)

var clientLog = logrus.WithField("component", "deriv_client")

// Client 是 Deriv WebSocket 客户端
// 单个逻辑连接的所有权归客户端：传输句柄、挂起请求映射和订阅映射
// 只由客户端内部变更，外部通过同步的公开方法访问，可多协程并发调用
type Client struct {
	config *Config

	// 连接管理
	conn       *websocket.Conn
	connCancel context.CancelFunc
	connMu     sync.Mutex
	writeMu    sync.Mutex

	// 连接状态
	state   ConnectionState
	stateMu sync.RWMutex

	// 授权信息（重连后重新授权使用）
	token   string
	account *AccountInfo
	authMu  sync.RWMutex

	// 请求关联与订阅管理
	corr *correlator
	subs *registry

	// 出站限流与查询缓存
	limits  *ratelimit.Manager
	quotes  *cache.Cache[string, *Tick]
	symbols *cache.Cache[string, []Symbol]

	// 重连管理
	reconnectC chan struct{} // 信号驱动的重连 channel
	closeC     chan struct{} // 关闭信号 channel（每次 Connect 重建）
	closeMu    sync.Mutex

	// Goroutine 管理
	sg     *syncgroup.SyncGroup // 长期运行的 goroutine（reconnector）
	connSg *syncgroup.SyncGroup // 连接相关的 goroutine（readLoop、pingLoop）

	// 会话标识（日志用）
	sessionID string

	// 事件广播
	stateHandlers     *handlerList[ConnectionState]
	tickHandlers      *handlerList[*Tick]
	candleHandlers    *handlerList[*Candle]
	balanceHandlers   *handlerList[*Balance]
	portfolioHandlers *handlerList[*Portfolio]
	contractHandlers  *handlerList[*OpenContract]
}

// NewClient 创建新的客户端（不建立连接）
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		config:            config,
		state:             StateDisconnected,
		corr:              newCorrelator(),
		subs:              newRegistry(),
		limits:            ratelimit.NewManager(),
		quotes:            cache.New[string, *Tick](5 * time.Minute),
		symbols:           cache.New[string, []Symbol](5 * time.Minute),
		reconnectC:        make(chan struct{}, 1),
		closeC:            make(chan struct{}),
		sg:                syncgroup.New(),
		connSg:            syncgroup.New(),
		stateHandlers:     newHandlerList[ConnectionState](),
		tickHandlers:      newHandlerList[*Tick](),
		candleHandlers:    newHandlerList[*Candle](),
		balanceHandlers:   newHandlerList[*Balance](),
		portfolioHandlers: newHandlerList[*Portfolio](),
		contractHandlers:  newHandlerList[*OpenContract](),
	}
}

// ---- 事件注册 ----

// OnStateChange 注册连接状态变化回调
func (c *Client) OnStateChange(fn StateHandler) { c.stateHandlers.add(fn) }

// OnTick 注册报价更新回调
func (c *Client) OnTick(fn TickHandler) { c.tickHandlers.add(fn) }

// OnCandle 注册 K 线更新回调
func (c *Client) OnCandle(fn CandleHandler) { c.candleHandlers.add(fn) }

// OnBalance 注册余额更新回调
func (c *Client) OnBalance(fn BalanceHandler) { c.balanceHandlers.add(fn) }

// OnPortfolio 注册持仓更新回调
func (c *Client) OnPortfolio(fn PortfolioHandler) { c.portfolioHandlers.add(fn) }

// OnContract 注册合约状态更新回调
func (c *Client) OnContract(fn ContractHandler) { c.contractHandlers.add(fn) }

// ---- 状态访问 ----

// State 返回当前连接状态
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected 连接是否已建立（包括已授权）
func (c *Client) IsConnected() bool {
	s := c.State()
	return s == StateConnected || s == StateAuthorized
}

// IsAuthorized 是否已授权
func (c *Client) IsAuthorized() bool {
	return c.State() == StateAuthorized
}

// Account 返回授权后的账户信息（未授权时为 nil）
func (c *Client) Account() *AccountInfo {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.account
}

// SubscriptionCount 返回活跃订阅数量
func (c *Client) SubscriptionCount() int {
	return c.subs.count()
}

// LastTick 返回品种最近一次收到的报价（无缓存时返回 false）
func (c *Client) LastTick(symbol string) (*Tick, bool) {
	return c.quotes.Get(symbol)
}

func (c *Client) setState(s ConnectionState) {
	c.stateMu.Lock()
	if c.state == s {
		c.stateMu.Unlock()
		return
	}
	old := c.state
	c.state = s
	c.stateMu.Unlock()

	clientLog.Debugf("连接状态变化: %s -> %s", old, s)
	c.stateHandlers.emit(s)
}

// ---- 连接生命周期 ----

// Connect 建立连接
// 幂等：已有连接时先拆除旧连接再重新建立
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	hasConn := c.conn != nil
	c.connMu.Unlock()
	if hasConn {
		clientLog.Warnf("Connect 时已有连接，先拆除旧连接")
		c.teardown()
	}

	// 重建关闭信号（Disconnect 后允许再次 Connect）
	c.closeMu.Lock()
	select {
	case <-c.closeC:
		c.closeC = make(chan struct{})
	default:
	}
	closeC := c.closeC
	c.closeMu.Unlock()

	c.sessionID = uuid.NewString()
	c.setState(StateConnecting)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateError)
		return errors.Wrap(err, "连接失败")
	}

	if !c.startConn(ctx, conn, closeC) {
		// 并发的 Disconnect 抢先发出了关闭信号
		return ErrConnectionClosed
	}

	// 重连器随逻辑连接启动，一直运行到 Disconnect
	c.sg.Add(func() {
		c.reconnector(ctx, closeC)
	})
	c.sg.Run()

	c.setState(StateConnected)
	clientLog.WithField("session", shortID(c.sessionID)).Infof("✅ 已连接到 %s", c.config.Endpoint)
	return nil
}

// Disconnect 显式断开连接
// 取消重连和心跳任务，以正常关闭码关闭传输，所有挂起请求以
// ErrConnectionClosed 失败，清空订阅和授权信息
// 从任意状态调用都是安全的
func (c *Client) Disconnect() {
	c.teardown()

	c.subs.clear()
	c.quotes.Clear()
	c.authMu.Lock()
	c.token = ""
	c.account = nil
	c.authMu.Unlock()

	c.setState(StateDisconnected)
	clientLog.Infof("已断开连接")
}

// teardown 拆除当前连接：发出关闭信号、关闭传输、排空挂起请求、等待 goroutine 退出
func (c *Client) teardown() {
	c.closeMu.Lock()
	select {
	case <-c.closeC:
	default:
		close(c.closeC)
	}
	c.closeMu.Unlock()

	c.connMu.Lock()
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.corr.failAll(ErrConnectionClosed)

	// 等待 goroutine 完成（带超时，避免无限等待）
	waitWithTimeout(c.connSg.WaitAndClear, 5*time.Second, "连接相关 goroutine")
	waitWithTimeout(c.sg.WaitAndClear, 5*time.Second, "重连器 goroutine")
}

// dial 建立 WebSocket 连接（握手受 ConnectTimeout 约束）
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u := fmt.Sprintf("%s?app_id=%s", c.config.Endpoint, c.config.AppID)

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.ConnectTimeout,
		ReadBufferSize:   c.config.ReadBufferSize,
		WriteBufferSize:  c.config.WriteBufferSize,
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, u, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// startConn 原子替换连接并启动读取和心跳 goroutine
// 关闭信号已发出时放弃新连接并返回 false：显式断开总是优先于进行中的重连
func (c *Client) startConn(ctx context.Context, conn *websocket.Conn, closeC chan struct{}) bool {
	select {
	case <-closeC:
		_ = conn.Close()
		return false
	default:
	}

	c.connMu.Lock()
	if c.connCancel != nil {
		c.connCancel()
	}
	// 被替换的旧连接在这里关闭，被取消的 readLoop 不会再碰它
	if c.conn != nil && c.conn != conn {
		_ = c.conn.Close()
	}
	connCtx, connCancel := context.WithCancel(ctx)
	c.conn = conn
	c.connCancel = connCancel
	c.connMu.Unlock()

	// 等待旧连接的 goroutine 退出，避免两套 readLoop/pingLoop 同时运行
	waitWithTimeout(c.connSg.WaitAndClear, goroutineHandoverWaitTimeout, "旧连接 goroutine")

	c.connSg.Add(func() {
		c.readLoop(connCtx, conn, connCancel, closeC)
	})
	c.connSg.Add(func() {
		c.pingLoop(connCtx, conn, connCancel, closeC)
	})
	c.connSg.Run()
	return true
}

// readLoop 单一入站处理路径：帧按传输交付顺序处理，保证请求/响应和事件的顺序
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, closeC chan struct{}) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-closeC:
			_ = conn.Close()
			return
		default:
		}

		// 读取 deadline 是存活上限：心跳响应保证活跃连接周期性产生入站帧，
		// 超过 ReadTimeout 没有任何帧说明连接已不可用（读错误是粘性的，
		// deadline 过期后不能继续读，必须走传输失败路径）
		if err := conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
			clientLog.Errorf("设置读取超时失败: %v", err)
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-closeC:
				return
			case <-ctx.Done():
				return
			default:
			}

			// 正常关闭（1000）：显式断开，不重连
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				clientLog.Infof("连接正常关闭")
				c.corr.failAll(ErrConnectionClosed)
				c.setState(StateDisconnected)
				return
			}

			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				clientLog.Warnf("读取超时: %v 内没有任何入站数据，触发重连", c.config.ReadTimeout)
			} else {
				clientLog.Warnf("读取错误: %v，触发重连", err)
			}
			_ = conn.Close()
			c.corr.failAll(ErrConnectionClosed)
			c.setState(StateError)
			c.requestReconnect()
			return
		}

		c.handleFrame(data)
	}
}

// pingLoop 心跳循环，定期发送关联的 ping 请求
// ping 发送失败视为传输失败，触发重连
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, closeC chan struct{}) {
	defer cancel()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closeC:
			return
		case <-ticker.C:
			req := &pingRequest{Ping: 1}
			req.setReqID(c.corr.nextID())
			if err := c.writeRequest(conn, req); err != nil {
				clientLog.Warnf("发送 ping 失败: %v，触发重连", err)
				_ = conn.Close()
				c.corr.failAll(ErrConnectionClosed)
				c.setState(StateError)
				c.requestReconnect()
				return
			}
		}
	}
}

// handleFrame 处理单个入站帧
// 格式错误的帧记录后丢弃，不影响连接状态和其他挂起请求
func (c *Client) handleFrame(data []byte) {
	msg, err := parseMessage(data)
	if err != nil {
		preview := data
		if len(preview) > 200 {
			preview = preview[:200]
		}
		clientLog.Debugf("丢弃格式错误的入站帧: %v, msg=%q", err, string(preview))
		return
	}

	// 带 req_id 的帧先尝试匹配挂起请求（重复/迟到的响应是无操作）
	if msg.ReqID != nil {
		c.corr.resolve(*msg.ReqID, msg)
	}

	// 流式负载广播给订阅者（首次订阅确认可能同时携带首条数据）
	c.dispatch(msg)
}

// dispatch 按负载类型广播流式事件
// 账户类负载只在携带 subscription.id 时广播：一次性快照（balance、portfolio
// 查询）的响应只交付给关联的调用方，不混入订阅者的事件流
func (c *Client) dispatch(msg *Message) {
	switch {
	case msg.Tick != nil:
		c.quotes.Set(msg.Tick.Symbol, msg.Tick)
		c.tickHandlers.emit(msg.Tick)
	case msg.OHLC != nil:
		c.candleHandlers.emit(msg.OHLC)
	case msg.Balance != nil:
		if msg.Subscription != nil {
			c.balanceHandlers.emit(msg.Balance)
		}
	case msg.Portfolio != nil:
		if msg.Subscription != nil {
			c.portfolioHandlers.emit(msg.Portfolio)
		}
	case msg.ProposalOpenContract != nil:
		if msg.Subscription != nil {
			c.contractHandlers.emit(msg.ProposalOpenContract)
		}
	}
}

// ---- 重连 ----

// requestReconnect 发出重连信号（channel 已满时忽略，重连已在进行中）
func (c *Client) requestReconnect() {
	if !c.config.ReconnectEnabled {
		return
	}
	select {
	case c.reconnectC <- struct{}{}:
	default:
	}
}

// reconnector 重连器 goroutine（信号驱动）
func (c *Client) reconnector(ctx context.Context, closeC chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-closeC:
			return
		case <-c.reconnectC:
		}
		c.runReconnect(ctx, closeC)
	}
}

// runReconnect 执行一轮重连：指数退避，最多 MaxReconnectAttempts 次
// 全部失败后停在 error 状态，等待调用方重新 Connect
func (c *Client) runReconnect(ctx context.Context, closeC chan struct{}) {
	for attempt := 1; attempt <= c.config.MaxReconnectAttempts; attempt++ {
		delay := backoffDelay(c.config.ReconnectBaseDelay, c.config.MaxReconnectDelay, attempt)
		clientLog.Warnf("🔄 %v 后重连 (尝试 %d/%d)...", delay, attempt, c.config.MaxReconnectAttempts)

		select {
		case <-ctx.Done():
			return
		case <-closeC:
			return
		case <-time.After(delay):
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			clientLog.Warnf("重连失败: %v", err)
			c.setState(StateError)
			continue
		}

		if !c.startConn(ctx, conn, closeC) {
			// 拨号期间收到显式断开，放弃这条连接，不触碰状态
			return
		}
		c.setState(StateConnected)
		clientLog.Infof("✅ 重连成功 (尝试 %d)", attempt)

		c.restoreSession(ctx)
		return
	}

	clientLog.Errorf("❌ 达到最大重连次数 (%d)，放弃自动重连", c.config.MaxReconnectAttempts)
	c.setState(StateError)
}

// restoreSession 重连成功后恢复会话：先重新授权（如果之前持有 token），再恢复订阅
func (c *Client) restoreSession(ctx context.Context) {
	c.authMu.RLock()
	token := c.token
	c.authMu.RUnlock()

	if token != "" {
		if _, err := c.Authorize(ctx, token); err != nil {
			clientLog.Warnf("重新授权失败: %v", err)
		}
	}

	c.replaySubscriptions(ctx)
}

// replaySubscriptions 按固定顺序恢复所有订阅：
// portfolio、balance、open_contracts、ticks、candles
// 旧的服务器订阅 ID 在新连接上无意义，重新订阅后绑定新 ID
// 账户流只在重新授权成功后恢复；跳过的订阅保留在登记表中，下次重连再试
func (c *Client) replaySubscriptions(ctx context.Context) {
	subs := c.subs.snapshot()
	if len(subs) == 0 {
		return
	}

	authorized := c.IsAuthorized()

	clientLog.Infof("📡 恢复 %d 个订阅", len(subs))
	for _, sub := range subs {
		if sub.Kind.accountStream() && !authorized {
			clientLog.Warnf("未重新授权，跳过账户流订阅恢复: %s", sub.Key)
			continue
		}
		c.subs.bind(sub.Key, "")
		if err := c.issueSubscribe(ctx, sub); err != nil {
			clientLog.Warnf("恢复订阅失败: key=%s err=%v", sub.Key, err)
		}
	}
}

// ---- 请求发送 ----

// writeRequest 序列化并写入单个请求（写操作串行化）
func (c *Client) writeRequest(conn *websocket.Conn, req request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return conn.WriteJSON(req)
}

// sendAndAwait 发送关联请求并等待响应
// 分配新的 req_id、注册挂起请求、发送，然后挂起调用方直到：
// 响应到达、超时（RequestTimeout）、调用方取消或连接关闭
// 服务器错误负载以 *APIError 返回
func (c *Client) sendAndAwait(ctx context.Context, req request) (*Message, error) {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	// 发送前等待该类别的限流配额
	if err := c.limits.Wait(ctx, categoryFor(req)); err != nil {
		return nil, err
	}

	id := c.corr.nextID()
	req.setReqID(id)
	ch := c.corr.register(id)

	if err := c.writeRequest(conn, req); err != nil {
		c.corr.remove(id)
		return nil, errors.Wrap(err, "发送请求失败")
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.msg.Error != nil {
			return nil, res.msg.Error
		}
		return res.msg, nil
	case <-timer.C:
		c.corr.remove(id)
		return nil, ErrRequestTimeout
	case <-ctx.Done():
		// 调用方取消：移除挂起请求防止泄漏，服务器端处理不受影响
		c.corr.remove(id)
		return nil, ctx.Err()
	}
}

// ---- 授权 ----

// Authorize 发送授权请求
// 成功后保留 token 供重连时重新授权；失败时保持 connected 状态，不内部重试
func (c *Client) Authorize(ctx context.Context, token string) (*AccountInfo, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	resp, err := c.sendAndAwait(ctx, &authorizeRequest{Authorize: token})
	if err != nil {
		return nil, err
	}
	if resp.Authorize == nil {
		return nil, errors.New("授权响应缺少账户信息")
	}

	c.authMu.Lock()
	c.token = token
	c.account = resp.Authorize
	c.authMu.Unlock()

	c.setState(StateAuthorized)
	clientLog.Infof("✅ 授权成功: loginid=%s currency=%s", resp.Authorize.LoginID, resp.Authorize.Currency)
	return resp.Authorize, nil
}

// ---- 订阅 ----

// issueSubscribe 按订阅类型发出订阅请求并绑定服务器分配的订阅 ID
func (c *Client) issueSubscribe(ctx context.Context, sub Subscription) error {
	var req request
	switch sub.Kind {
	case KindTick:
		req = &ticksRequest{Ticks: sub.Symbol, Subscribe: 1}
	case KindCandle:
		req = &ticksHistoryRequest{
			TicksHistory: sub.Symbol,
			End:          "latest",
			Count:        1,
			Style:        "candles",
			Granularity:  sub.Granularity,
			Subscribe:    1,
		}
	case KindPortfolio:
		req = &portfolioRequest{Portfolio: 1, Subscribe: 1}
	case KindBalance:
		req = &balanceRequest{Balance: 1, Subscribe: 1}
	case KindOpenContract:
		req = &openContractsRequest{ProposalOpenContract: 1, Subscribe: 1}
	default:
		return errors.Errorf("未知的订阅类型: %s", sub.Kind)
	}

	resp, err := c.sendAndAwait(ctx, req)
	if err != nil {
		return err
	}
	if resp.Subscription != nil {
		c.subs.bind(sub.Key, resp.Subscription.ID)
	}
	return nil
}

// SubscribeTicks 订阅品种的实时报价
// 已订阅的品种是无操作
func (c *Client) SubscribeTicks(ctx context.Context, symbols ...string) error {
	for _, symbol := range symbols {
		sub := &Subscription{Key: tickKey(symbol), Kind: KindTick, Symbol: symbol}
		if !c.subs.add(sub) {
			continue
		}
		if err := c.issueSubscribe(ctx, *sub); err != nil {
			c.subs.remove(sub.Key)
			return errors.Wrapf(err, "订阅报价失败: %s", symbol)
		}
		clientLog.Infof("📡 已订阅报价: %s", symbol)
	}
	return nil
}

// SubscribeCandles 订阅品种的实时 K 线（granularity 为秒，0 时默认 60）
func (c *Client) SubscribeCandles(ctx context.Context, symbol string, granularity int) error {
	if granularity <= 0 {
		granularity = 60
	}
	sub := &Subscription{Key: candleKey(symbol), Kind: KindCandle, Symbol: symbol, Granularity: granularity}
	if !c.subs.add(sub) {
		return nil
	}
	if err := c.issueSubscribe(ctx, *sub); err != nil {
		c.subs.remove(sub.Key)
		return errors.Wrapf(err, "订阅 K 线失败: %s", symbol)
	}
	clientLog.Infof("📡 已订阅 K 线: %s (granularity=%ds)", symbol, granularity)
	return nil
}

// SubscribePortfolio 订阅持仓更新
// 需要账户上下文：未授权时是无操作（不发送任何帧）
func (c *Client) SubscribePortfolio(ctx context.Context) error {
	return c.subscribeAccountStream(ctx, &Subscription{Key: portfolioKey, Kind: KindPortfolio})
}

// SubscribeBalance 订阅余额更新
// 需要账户上下文：未授权时是无操作（不发送任何帧）
func (c *Client) SubscribeBalance(ctx context.Context) error {
	return c.subscribeAccountStream(ctx, &Subscription{Key: balanceKey, Kind: KindBalance})
}

// SubscribeOpenContracts 订阅持仓合约的实时状态
// 需要账户上下文：未授权时是无操作（不发送任何帧）
func (c *Client) SubscribeOpenContracts(ctx context.Context) error {
	return c.subscribeAccountStream(ctx, &Subscription{Key: openContractKey, Kind: KindOpenContract})
}

func (c *Client) subscribeAccountStream(ctx context.Context, sub *Subscription) error {
	if !c.IsAuthorized() {
		clientLog.Debugf("未授权，忽略 %s 订阅", sub.Kind)
		return nil
	}
	if !c.subs.add(sub) {
		return nil
	}
	if err := c.issueSubscribe(ctx, *sub); err != nil {
		c.subs.remove(sub.Key)
		return errors.Wrapf(err, "订阅 %s 失败", sub.Kind)
	}
	clientLog.Infof("📡 已订阅 %s", sub.Kind)
	return nil
}

// UnsubscribeTicks 取消品种的报价订阅
func (c *Client) UnsubscribeTicks(ctx context.Context, symbol string) error {
	return c.unsubscribe(ctx, tickKey(symbol))
}

// UnsubscribeCandles 取消品种的 K 线订阅
func (c *Client) UnsubscribeCandles(ctx context.Context, symbol string) error {
	return c.unsubscribe(ctx, candleKey(symbol))
}

// unsubscribe 取消订阅
// 本地状态总是先清除：服务器确认丢失时本地不会卡住
func (c *Client) unsubscribe(ctx context.Context, key string) error {
	sub := c.subs.remove(key)
	if sub == nil {
		return nil
	}
	if sub.ServerID == "" || !c.IsConnected() {
		return nil
	}

	if _, err := c.sendAndAwait(ctx, &forgetRequest{Forget: sub.ServerID}); err != nil {
		clientLog.Warnf("取消订阅请求失败（本地状态已清除）: key=%s err=%v", key, err)
		return err
	}
	clientLog.Infof("已取消订阅: %s", key)
	return nil
}

// ---- 交易 ----

// Buy 买入合约：先取得服务器报价，再按报价 ID 和 ask_price 买入
// 未授权时立即失败，不发起网络请求
func (c *Client) Buy(ctx context.Context, params ProposalParams) (*Contract, error) {
	if !c.IsAuthorized() {
		return nil, ErrNotAuthorized
	}
	if params.Basis == "" {
		params.Basis = "stake"
	}

	propResp, err := c.sendAndAwait(ctx, &proposalRequest{
		Proposal:     1,
		Amount:       params.Amount,
		Basis:        params.Basis,
		ContractType: params.ContractType,
		Currency:     params.Currency,
		Duration:     params.Duration,
		DurationUnit: params.DurationUnit,
		Symbol:       params.Symbol,
	})
	if err != nil {
		return nil, errors.Wrap(err, "获取报价失败")
	}
	if propResp.Proposal == nil {
		return nil, errors.New("报价响应缺少 proposal 负载")
	}

	buyResp, err := c.sendAndAwait(ctx, &buyRequest{
		Buy:   propResp.Proposal.ID,
		Price: propResp.Proposal.AskPrice,
	})
	if err != nil {
		return nil, errors.Wrap(err, "买入失败")
	}
	if buyResp.Buy == nil {
		return nil, errors.New("买入响应缺少 buy 负载")
	}

	clientLog.Infof("✅ 买入成功: contract_id=%d buy_price=%s payout=%s",
		buyResp.Buy.ContractID, buyResp.Buy.BuyPrice, buyResp.Buy.Payout)
	return buyResp.Buy, nil
}

// Sell 卖出合约（price 为可接受的最低卖出价，0 表示按市价）
// 未授权时立即失败，不发起网络请求
func (c *Client) Sell(ctx context.Context, contractID int64, price decimal.Decimal) (*SaleConfirmation, error) {
	if !c.IsAuthorized() {
		return nil, ErrNotAuthorized
	}

	resp, err := c.sendAndAwait(ctx, &sellRequest{Sell: contractID, Price: price})
	if err != nil {
		return nil, errors.Wrap(err, "卖出失败")
	}
	if resp.Sell == nil {
		return nil, errors.New("卖出响应缺少 sell 负载")
	}

	clientLog.Infof("✅ 卖出成功: contract_id=%d sold_for=%s", resp.Sell.ContractID, resp.Sell.SoldFor)
	return resp.Sell, nil
}

// ---- 一次性查询 ----

// ActiveSymbols 查询可交易的品种列表
// 品种列表变化很慢，结果短期缓存，减少重复查询
func (c *Client) ActiveSymbols(ctx context.Context) ([]Symbol, error) {
	if cached, ok := c.symbols.Get("active_symbols"); ok {
		return cached, nil
	}

	resp, err := c.sendAndAwait(ctx, &activeSymbolsRequest{ActiveSymbols: "brief", ProductType: "basic"})
	if err != nil {
		return nil, err
	}
	c.symbols.Set("active_symbols", resp.ActiveSymbols)
	return resp.ActiveSymbols, nil
}

// TicksHistory 查询品种的历史报价
func (c *Client) TicksHistory(ctx context.Context, symbol string, count int) (*TickHistory, error) {
	if count <= 0 {
		count = 1000
	}
	resp, err := c.sendAndAwait(ctx, &ticksHistoryRequest{
		TicksHistory: symbol,
		End:          "latest",
		Count:        count,
		Style:        "ticks",
	})
	if err != nil {
		return nil, err
	}
	if resp.History == nil {
		return nil, errors.New("历史报价响应缺少 history 负载")
	}
	return resp.History, nil
}

// Portfolio 查询当前持仓快照（非订阅）
func (c *Client) Portfolio(ctx context.Context) (*Portfolio, error) {
	if !c.IsAuthorized() {
		return nil, ErrNotAuthorized
	}
	resp, err := c.sendAndAwait(ctx, &portfolioRequest{Portfolio: 1})
	if err != nil {
		return nil, err
	}
	if resp.Portfolio == nil {
		return nil, errors.New("持仓响应缺少 portfolio 负载")
	}
	return resp.Portfolio, nil
}

// Balance 查询当前余额快照（非订阅）
func (c *Client) Balance(ctx context.Context) (*Balance, error) {
	if !c.IsAuthorized() {
		return nil, ErrNotAuthorized
	}
	resp, err := c.sendAndAwait(ctx, &balanceRequest{Balance: 1})
	if err != nil {
		return nil, err
	}
	if resp.Balance == nil {
		return nil, errors.New("余额响应缺少 balance 负载")
	}
	return resp.Balance, nil
}

// ---- 辅助函数 ----

// categoryFor 返回请求的限流类别
func categoryFor(req request) string {
	switch r := req.(type) {
	case *proposalRequest, *buyRequest, *sellRequest:
		return ratelimit.CategoryTrade
	case *ticksRequest:
		return ratelimit.CategorySubscribe
	case *ticksHistoryRequest:
		if r.Subscribe == 1 {
			return ratelimit.CategorySubscribe
		}
	case *portfolioRequest:
		if r.Subscribe == 1 {
			return ratelimit.CategorySubscribe
		}
	case *balanceRequest:
		if r.Subscribe == 1 {
			return ratelimit.CategorySubscribe
		}
	case *openContractsRequest:
		if r.Subscribe == 1 {
			return ratelimit.CategorySubscribe
		}
	}
	return ratelimit.CategoryGeneral
}

// backoffDelay 第 n 次尝试（1 起）的退避延迟：min(base * 2^n, limit)
func backoffDelay(base, limit time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << uint(attempt)
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// waitWithTimeout 带超时等待（超时后记录并继续，不阻塞关闭流程）
func waitWithTimeout(wait func(), timeout time.Duration, what string) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		clientLog.Warnf("等待%s完成超时（%v），继续执行", what, timeout)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
