package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statesync/server"
)

// statesync 入口：绑定 UDP 端口运行权威状态主循环，可选启动管理 HTTP 接口
func main() {
	cfg := server.DefaultConfig()
	var strict bool
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "udp listen address, e.g. :5000")
	flag.StringVar(&cfg.Transport, "transport", cfg.Transport, "udp transport: udp | gnet")
	flag.IntVar(&cfg.BufferSize, "buf", cfg.BufferSize, "receive buffer per datagram (bytes)")
	flag.DurationVar(&cfg.PlayerTTL, "ttl", cfg.PlayerTTL, "evict players silent for longer than this (0 disables)")
	flag.DurationVar(&cfg.SweepInterval, "sweep", cfg.SweepInterval, "expiry sweep interval (0 derives ttl/2, at least 100ms)")
	flag.BoolVar(&strict, "strict", false, "reject player updates for ids that never connected")
	flag.StringVar(&cfg.AdminAddr, "admin", "", "admin http address, e.g. :8080 (empty disables)")
	flag.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path (empty logs to console only)")
	flag.Parse()
	cfg.AutoRegister = !strict

	if err := server.InitLogger(cfg.LogFile); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	srv, err := server.New(cfg)
	if err != nil {
		server.Log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = &http.Server{Addr: cfg.AdminAddr, Handler: srv.AdminHandler()}
		go func() {
			server.Log.Infof("admin listening on %s", cfg.AdminAddr)
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				server.Log.Errorf("admin listen: %v", err)
			}
		}()
	}

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		server.Log.Info("Shutting down...")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil {
			server.Log.Fatalf("server: %v", err)
		}
	}

	if admin != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		_ = admin.Shutdown(shutdownCtx)
		done()
	}
}
