package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"limitbook.com/internal/book"
	"limitbook.com/internal/config"
	"limitbook.com/internal/engine"
	"limitbook.com/internal/ws"
	pkgconfig "limitbook.com/pkg/config"
	"limitbook.com/pkg/logger"
)

func main() {
	// 1. 加载配置（没有配置文件就按默认值跑）
	cfg := config.Default()
	if _, err := pkgconfig.LoadAndWatch("bookd", &cfg); err != nil {
		log.Printf("[bookd] config not loaded, using defaults: %v", err)
	}

	// 2. 初始化日志
	logger.Init(cfg.Name, cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 组装核心：book -> engine -> sink(bridge) -> hub
	bk := book.New()
	eng := engine.New(bk, engine.Config{
		QueueSize: cfg.Engine.QueueSize,
		SelfCheck: cfg.Engine.SelfCheck,
	}, logger.Log)

	conv, err := ws.NewConverter(cfg.Market.TickSize, cfg.Market.QtyStep)
	if err != nil {
		logger.Fatal(ctx, "bad market config", zap.Error(err))
	}
	hub := ws.NewHub()
	if err := eng.InstallSink(ws.NewBridge(hub, ws.NewCodec(conv))); err != nil {
		logger.Fatal(ctx, "install sink", zap.Error(err))
	}
	if err := eng.Start(); err != nil {
		logger.Fatal(ctx, "engine start", zap.Error(err))
	}

	// 4. 接入层
	srv := ws.NewServer(ctx, eng, hub, conv, ws.Options{
		SendBuf:    cfg.WS.SendBuf,
		PongWait:   cfg.WS.PongWait,
		PingPeriod: cfg.WS.PingPeriod,
		WriteWait:  cfg.WS.WriteWait,
		ReadLimit:  cfg.WS.ReadLimit,
		MsgRate:    cfg.WS.MsgRate,
		MsgBurst:   cfg.WS.MsgBurst,
		ConnRate:   cfg.WS.ConnRate,
		ConnBurst:  cfg.WS.ConnBurst,
	}, logger.Log)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Router(cfg.UIFile),
		// 只限 header：ReadTimeout/WriteTimeout 会砍长连接
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server error", zap.Error(err))
	}

	// 5. 先停接入再停引擎：Shutdown 之后不再接受新连接，但已升级的
	//    WebSocket 连接不会被它关掉，仍可能继续投命令；Stop 之后这些
	//    命令拿到 ErrEngineStopped。队列里剩下的命令清完 worker 才退。
	eng.Stop()
	logger.Info(ctx, "bookd stopped")
}
