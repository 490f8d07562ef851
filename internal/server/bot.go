package server

import (
	"time"

	"github.com/rs/zerolog"

	"werewolf/internal/actor"
	"werewolf/internal/ai"
	"werewolf/internal/game"
)

// DefaultBotDelay 讓觀戰者看得清每一步
const DefaultBotDelay = 1200 * time.Millisecond

// AIFactory 為非遠端座位建立決策來源
type AIFactory func(playerID int, seed int64) game.Actor

type AIOptions struct {
	Config ai.Config
	// Delay 為腳本玩家的思考時間
	Delay  time.Duration
	Logger zerolog.Logger
}

// NewAIFactory 有語言模型時使用 LLM 座位，否則使用腳本玩家
func NewAIFactory(provider ai.Provider, opts AIOptions) AIFactory {
	return func(playerID int, seed int64) game.Actor {
		if provider != nil {
			return actor.NewLLM(provider, opts.Config, opts.Logger)
		}
		bot := actor.NewBot(seed*31 + int64(playerID))
		bot.Delay = opts.Delay
		return bot
	}
}
