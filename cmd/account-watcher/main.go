package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ghostbot/derivbot/pkg/config"
	"github.com/ghostbot/derivbot/pkg/deriv"
	"github.com/ghostbot/derivbot/pkg/logger"
	"github.com/ghostbot/derivbot/pkg/shutdown"
)

func main() {
	_ = godotenv.Load()

	config.SetConfigPath("config.yaml")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Deriv.APIToken == "" {
		log.Fatalf("缺少 API token（设置环境变量 DERIV_API_TOKEN 或配置文件 deriv.api_token）")
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("🚀 Deriv 账户监控程序\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("端点: %s\n", cfg.Deriv.Endpoint)
	fmt.Printf("App ID: %s\n", cfg.Deriv.AppID)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	clientCfg := deriv.DefaultConfig()
	clientCfg.Endpoint = cfg.Deriv.Endpoint
	clientCfg.AppID = cfg.Deriv.AppID

	client := deriv.NewClient(clientCfg)

	client.OnStateChange(func(state deriv.ConnectionState) {
		logger.Infof("连接状态: %s", state)
	})
	client.OnBalance(func(balance *deriv.Balance) {
		fmt.Printf("[%s] 💰 余额更新: %s %s\n",
			time.Now().Format("15:04:05"), balance.Balance, balance.Currency)
	})
	client.OnPortfolio(func(portfolio *deriv.Portfolio) {
		fmt.Printf("[%s] 📋 持仓更新: %d 个合约\n",
			time.Now().Format("15:04:05"), len(portfolio.Contracts))
		for _, contract := range portfolio.Contracts {
			fmt.Printf("    contract_id=%d %s %s 买入价=%s\n",
				contract.ContractID, contract.Symbol, contract.ContractType, contract.BuyPrice)
		}
	})
	client.OnContract(func(contract *deriv.OpenContract) {
		fmt.Printf("[%s] 📈 合约 %d: 盈亏=%s 现价=%s 状态=%s\n",
			time.Now().Format("15:04:05"),
			contract.ContractID, contract.Profit, contract.CurrentSpot, contract.Status)
	})

	ctx := context.Background()

	fmt.Printf("正在连接 Deriv WebSocket...\n")
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("连接失败: %v", err)
	}

	account, err := client.Authorize(ctx, cfg.Deriv.APIToken)
	if err != nil {
		log.Fatalf("授权失败: %v", err)
	}
	fmt.Printf("✅ 授权成功: %s (%s)\n", account.LoginID, account.Currency)
	fmt.Printf("当前余额: %s %s\n\n", account.Balance, account.Currency)

	if err := client.SubscribeBalance(ctx); err != nil {
		log.Fatalf("订阅余额失败: %v", err)
	}
	if err := client.SubscribePortfolio(ctx); err != nil {
		log.Fatalf("订阅持仓失败: %v", err)
	}
	if err := client.SubscribeOpenContracts(ctx); err != nil {
		log.Fatalf("订阅合约状态失败: %v", err)
	}

	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("开始监控账户变化（Ctrl+C 退出）...\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	sm := shutdown.NewManager()
	sm.OnShutdown(func(ctx context.Context) {
		client.Disconnect()
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Printf("\n正在关闭...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sm.Shutdown(shutdownCtx)
}
