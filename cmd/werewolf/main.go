package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"werewolf/internal/actor"
	"werewolf/internal/ai"
	"werewolf/internal/config"
	"werewolf/internal/game"
	serverstore "werewolf/internal/server/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("讀取設定失敗: %v", err)
	}

	players := flag.Int("players", cfg.Players, "玩家人數")
	roles := flag.String("roles", cfg.Roles, "身份配置，例如 werewolf=3,seer=1,witch=1,hunter=1,villager=3")
	seed := flag.Int64("seed", cfg.Seed, "亂數種子，0 表示隨機")
	strict := flag.Bool("strict", cfg.Strict, "違反狀態約定時中止對局")
	spectator := flag.Bool("spectator", cfg.Spectator, "觀戰模式：全部座位由 AI 操作")
	timeout := flag.Duration("timeout", cfg.DecisionTimeout, "每次決策的時限")
	exportPath := flag.String("export", "", "對局結束後將行動紀錄寫入此 JSON 檔")
	dbPath := flag.String("db", "", "將對局寫入此 SQLite 資料庫")
	logLevel := flag.String("log-level", cfg.LogLevel, "日誌等級")
	flag.Parse()

	cfg.Players, cfg.Roles, cfg.Seed = *players, *roles, *seed
	cfg.Strict, cfg.Spectator, cfg.DecisionTimeout = *strict, *spectator, *timeout
	log := config.NewLogger(os.Stderr, *logLevel)

	setup, err := cfg.Setup(log)
	if err != nil {
		config.Exitf("開局設定錯誤: %v", err)
	}
	g, err := game.NewGame(setup)
	if err != nil {
		config.Exitf("建立對局失敗: %v", err)
	}

	aiCfg := cfg.AIProviderConfig()
	var provider ai.Provider
	if aiCfg.Enabled() {
		if provider, err = ai.NewProvider(aiCfg); err != nil {
			config.Exitf("初始化語言模型失敗: %v", err)
		}
	}

	fmt.Printf("《狼人殺》%d 人局，身份配置：%s\n", g.Registry().Len(), g.Summary().Distribution)

	seats := game.Seats{}
	for _, p := range g.Players() {
		switch {
		case g.ExternalID != nil && *g.ExternalID == p.ID:
			seats[p.ID] = actor.NewConsole(os.Stdin, os.Stdout)
			snap, _ := g.BuildPrivateSnapshot(p.ID)
			fmt.Printf("你是 %s（編號 %d），身份是%s。\n", snap.Name, snap.PlayerID, snap.Role.Label())
			if len(snap.Teammates) > 0 {
				fmt.Printf("你的狼人隊友：%v\n", snap.Teammates)
			}
		case provider != nil:
			seats[p.ID] = actor.NewLLM(provider, aiCfg, log)
		default:
			seats[p.ID] = actor.NewBot(g.Seed*31 + int64(p.ID))
		}
	}

	observers := game.MultiObserver{&printer{out: os.Stdout, g: g}}
	var store *serverstore.Store
	if *dbPath != "" {
		if store, err = serverstore.New(*dbPath, log); err != nil {
			config.Exitf("開啟資料庫失敗: %v", err)
		}
		observers = append(observers, store.Recorder(g.ID, log))
	}
	g.SetObserver(observers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := game.NewEngine(g, seats, game.EngineOptions{Timeout: cfg.DecisionTimeout, Logger: &log})
	_, runErr := engine.Run(ctx)
	if runErr != nil {
		var violation *game.InvariantViolation
		if errors.As(runErr, &violation) {
			log.Error().Err(runErr).Msg("狀態約定被違反，對局中止")
		} else {
			log.Warn().Err(runErr).Msg("對局中斷")
		}
	}

	reveal(os.Stdout, g)
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("關閉資料庫失敗")
	}

	if *exportPath != "" {
		if err := exportHistory(*exportPath, g); err != nil {
			log.Error().Err(err).Msg("匯出行動紀錄失敗")
		} else {
			log.Info().Str("path", *exportPath).Msg("已匯出行動紀錄")
		}
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func exportHistory(path string, g *game.Game) error {
	data, err := json.MarshalIndent(g.ExportHistory(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
