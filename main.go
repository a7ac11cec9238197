package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lt-one/mindora-quote/cache"
	"github.com/lt-one/mindora-quote/config"
	"github.com/lt-one/mindora-quote/logger"
	"github.com/lt-one/mindora-quote/market"
	"github.com/lt-one/mindora-quote/market/providers"
)

func main() {
	// 兼容从子目录启动
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join("..", "config.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("config %s not usable (%v), falling back to defaults", configPath, err)
		cfg = config.Default()
	}

	zlog, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	engine, err := market.NewEngine(
		cfg.EngineOptions(),
		cache.New(),
		zlog,
		providers.NewEastmoneyProvider(timeout),
		providers.NewSinaProvider(timeout),
	)
	if err != nil {
		zlog.Fatal("Failed to build engine", zap.Error(err))
	}

	// 配置热更新：文件变化时整体替换引擎参数
	stopWatch, err := config.Watch(configPath,
		func(next *config.Config) {
			engine.UpdateOptions(next.EngineOptions())
		},
		func(err error) {
			zlog.Warn("config reload failed", zap.Error(err))
		})
	if err != nil {
		zlog.Warn("config watcher disabled", zap.Error(err))
	} else {
		defer stopWatch()
	}

	interval := time.Duration(cfg.Refresh.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refreshLoop(ctx, engine, cfg, zlog, interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down")
}

// refreshLoop 周期性拉取大盘概览与热门股指标，作为引擎的常驻消费者
func refreshLoop(ctx context.Context, engine *market.Engine, cfg *config.Config, zlog *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh(ctx, engine, cfg, zlog)
	for {
		select {
		case <-ticker.C:
			refresh(ctx, engine, cfg, zlog)
		case <-ctx.Done():
			return
		}
	}
}

func refresh(ctx context.Context, engine *market.Engine, cfg *config.Config, zlog *zap.Logger) {
	start := time.Now()
	overview := engine.GetMarketOverview(ctx)
	for _, idx := range overview.Indices {
		zlog.Info("index",
			zap.String("symbol", idx.Symbol),
			zap.String("name", idx.Name),
			zap.Float64("point", idx.Price),
			zap.Float64("change_pct", idx.ChangePercent))
	}
	zlog.Info("hot stocks refreshed",
		zap.Int("count", len(overview.HotStocks)),
		zap.Duration("elapsed", time.Since(start)))

	for _, symbol := range cfg.HotStocks {
		klines, err := engine.GetKLine(ctx, symbol, market.PeriodDaily, cfg.Kline.Count)
		if err != nil {
			zlog.Warn("kline unavailable", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if len(klines) == 0 {
			continue
		}
		sma := market.CalculateSMA(klines, 20)
		rsi := market.CalculateRSI(klines, market.RSIDefaultPeriod)
		_, _, hist := market.CalculateMACD(klines, 0, 0, 0)
		vol := market.CalculateVolatility(klines, cfg.Volatility.Window)

		last := len(klines) - 1
		fields := []zap.Field{
			zap.String("symbol", symbol),
			zap.Float64("close", klines[last].Close),
			zap.Float64("macd_hist", hist[last]),
			zap.Float64("volatility", vol[last]),
		}
		if !market.IsSentinel(sma[last]) {
			fields = append(fields, zap.Float64("sma20", sma[last]))
		}
		if len(rsi) > 0 {
			fields = append(fields, zap.Float64("rsi14", rsi[len(rsi)-1]))
		}
		zlog.Info("indicators", fields...)
	}
}
