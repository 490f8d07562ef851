package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"werewolf/internal/ai"
	"werewolf/internal/config"
	"werewolf/internal/game"
	"werewolf/internal/server"
	serverstore "werewolf/internal/server/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("讀取設定失敗: %v", err)
	}

	addr := flag.String("addr", cfg.Addr, "HTTP 服務監聽位址")
	webDir := flag.String("web", cfg.WebDir, "前端靜態資源目錄")
	dataDir := flag.String("data", cfg.DataDir, "資料存放目錄")
	seed := flag.Int64("seed", cfg.Seed, "亂數種子，0 表示每局隨機")
	strict := flag.Bool("strict", cfg.Strict, "違反狀態約定時中止對局")
	spectator := flag.Bool("spectator", cfg.Spectator, "全部座位由 AI 操作")
	timeout := flag.Duration("timeout", cfg.DecisionTimeout, "每次決策的時限")
	pause := flag.Duration("pause", 10*time.Second, "兩局之間的間隔")
	botDelay := flag.Duration("bot-delay", server.DefaultBotDelay, "腳本玩家的思考時間")
	logLevel := flag.String("log-level", cfg.LogLevel, "日誌等級")
	flag.Parse()

	cfg.Seed, cfg.Strict, cfg.Spectator, cfg.DecisionTimeout = *seed, *strict, *spectator, *timeout
	log := config.NewLogger(os.Stderr, *logLevel)

	setup, err := cfg.Setup(log)
	if err != nil {
		log.Fatal().Err(err).Msg("開局設定錯誤")
	}

	store, err := serverstore.New(filepath.Join(*dataDir, "werewolf.db"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化資料庫失敗")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("關閉資料庫時發生錯誤")
		}
	}()

	aiCfg := cfg.AIProviderConfig()
	var provider ai.Provider
	if aiCfg.Enabled() {
		if provider, err = ai.NewProvider(aiCfg); err != nil {
			log.Fatal().Err(err).Msg("初始化語言模型失敗")
		}
	}

	table := server.NewTable(server.NewHub(), server.TableOptions{
		Setup:   setup,
		Timeout: cfg.DecisionTimeout,
		NewAI:   server.NewAIFactory(provider, server.AIOptions{Config: aiCfg, Delay: *botDelay, Logger: log}),
		Observer: func(g *game.Game) game.Observer {
			return store.Recorder(g.ID, log)
		},
		OnClaim: func(gameID string, playerID int, userID int64) {
			if err := store.RecordSeatClaim(gameID, playerID, userID); err != nil {
				log.Warn().Err(err).Msg("記錄座位接管失敗")
			}
		},
		Logger: log,
	})

	mux := http.NewServeMux()
	(&api{store: store, table: table, log: log}).routes(mux, *webDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := table.Serve(ctx, *pause); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("牌桌停止")
		}
	}()
	go pruneSessions(ctx, store, log)

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Str("table", table.ID()).Msg("《狼人殺》伺服器啟動")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("HTTP 服務啟動失敗")
	}
}

func pruneSessions(ctx context.Context, store *serverstore.Store, log zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PruneSessions()
			if err != nil {
				log.Warn().Err(err).Msg("清理會話失敗")
				continue
			}
			log.Debug().Int64("removed", n).Msg("已清理過期會話")
		}
	}
}
