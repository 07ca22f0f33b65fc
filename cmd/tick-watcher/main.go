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
	// 加载 .env（缺失时忽略，环境变量可能已经设置）
	_ = godotenv.Load()

	config.SetConfigPath("config.yaml")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
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

	// 显示启动信息
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("🚀 Deriv 实时报价监控程序\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("端点: %s\n", cfg.Deriv.Endpoint)
	fmt.Printf("App ID: %s\n", cfg.Deriv.AppID)
	fmt.Printf("品种: %v\n", cfg.Deriv.Symbols)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	clientCfg := deriv.DefaultConfig()
	clientCfg.Endpoint = cfg.Deriv.Endpoint
	clientCfg.AppID = cfg.Deriv.AppID

	client := deriv.NewClient(clientCfg)

	client.OnStateChange(func(state deriv.ConnectionState) {
		logger.Infof("连接状态: %s", state)
	})
	client.OnTick(func(tick *deriv.Tick) {
		printTick(tick)
	})

	ctx := context.Background()

	fmt.Printf("正在连接 Deriv WebSocket...\n")
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("连接失败: %v", err)
	}
	fmt.Printf("✅ 连接成功\n\n")

	if err := client.SubscribeTicks(ctx, cfg.Deriv.Symbols...); err != nil {
		log.Fatalf("订阅报价失败: %v", err)
	}

	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("开始监控实时报价（Ctrl+C 退出）...\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	// 优雅关闭
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

// printTick 打印单条报价（涨绿跌红）
func printTick(tick *deriv.Tick) {
	var colorReset = "\033[0m"
	var colorBold = "\033[1m"

	fmt.Printf("[%s] %s%s%s 报价: %s\n",
		time.Unix(tick.Epoch, 0).Format("15:04:05"),
		colorBold,
		tick.Symbol,
		colorReset,
		tick.Quote,
	)
}
