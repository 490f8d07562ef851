package game

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EngineOptions 為引擎的可選設定
type EngineOptions struct {
	// Fallback 接手沒有指定座位的玩家；為 nil 時直接隨機決定
	Fallback Actor
	// Timeout 為單次決策的等待上限，0 表示使用預設值，負值表示不限時
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Engine 依序推進 黑夜 → 白天 → 投票 → 黑夜 直到分出勝負
//
// 引擎只在單一 goroutine 執行；每個階段先收集所有決策，再一次套用結算。
type Engine struct {
	game    *Game
	decider *Decider
	log     zerolog.Logger
	started bool
}

// NewEngine 建立引擎
func NewEngine(g *Game, seats Seats, opts EngineOptions) *Engine {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultDecisionTimeout
	}
	return &Engine{
		game:    g,
		decider: NewDecider(g, seats, opts.Fallback, timeout, logger),
		log:     logger.With().Str("component", "engine").Str("game", g.ID).Logger(),
	}
}

// Game 回傳引擎推進的遊戲
func (e *Engine) Game() *Game {
	return e.game
}

// Run 推進遊戲直到分出勝負
//
// ctx 取消時回傳 ctx.Err()，狀態停在最後一個完整套用的結算步驟。
func (e *Engine) Run(ctx context.Context) (Camp, error) {
	for {
		if w := e.game.CheckWinner(); w != nil {
			return *w, nil
		}
		if err := e.Step(ctx); err != nil {
			return 0, err
		}
	}
}

// Step 執行目前階段並切換到下一階段
func (e *Engine) Step(ctx context.Context) error {
	g := e.game
	if g.GameOver {
		return ErrGameOver
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.started {
		e.started = true
		e.log.Info().Int("players", g.registry.Len()).Str("distribution", g.Summary().Distribution).Msg("遊戲開始")
		g.observer.Observe(Event{Kind: EventGameStarted, Round: g.Round, Phase: g.Phase, Game: g})
		g.enterPhase(g.Phase)
	}

	switch g.Phase {
	case PhaseNight:
		if err := e.runNight(ctx); err != nil {
			return err
		}
		if g.CheckWinner() != nil {
			return nil
		}
		g.enterPhase(PhaseDay)
	case PhaseDay:
		if err := e.runDay(ctx); err != nil {
			return err
		}
		g.enterPhase(PhaseVote)
	case PhaseVote:
		if err := e.runVote(ctx); err != nil {
			return err
		}
		if g.CheckWinner() != nil {
			return nil
		}
		g.Round++
		g.enterPhase(PhaseNight)
	}
	return nil
}

func (e *Engine) runNight(ctx context.Context) error {
	g := e.game
	e.log.Info().Int("round", g.Round).Msg("天黑請閉眼")

	kill, err := e.decider.WerewolfKill(ctx)
	if err != nil {
		return err
	}
	check, err := e.decider.SeerCheck(ctx)
	if err != nil {
		return err
	}
	save, poison, err := e.decider.WitchAction(ctx, kill)
	if err != nil {
		return err
	}

	outcome, err := g.ResolveNight(NightActions{
		WerewolfKill: kill,
		SeerCheck:    check,
		WitchSave:    save,
		WitchPoison:  poison,
	})
	if err != nil {
		return err
	}
	if outcome.Peaceful() {
		e.log.Info().Int("round", g.Round).Msg("昨晚是平安夜")
	} else {
		e.log.Info().Int("round", g.Round).Ints("deaths", outcome.Deaths).Msg("昨晚有玩家死亡")
	}
	return nil
}

// runDay 依編號順序收集存活玩家的發言；發言只供展示，不影響結算
func (e *Engine) runDay(ctx context.Context) error {
	g := e.game
	for _, p := range g.registry.Alive() {
		text, err := e.decider.Speech(ctx, p)
		if err != nil {
			return err
		}
		g.addSpeech(p.ID, text)
	}
	return nil
}

func (e *Engine) runVote(ctx context.Context) error {
	g := e.game
	votes := make(map[int]int, len(g.registry.alive))
	for _, voter := range g.registry.Alive() {
		target, ok, err := e.decider.Vote(ctx, voter)
		if err != nil {
			return err
		}
		if ok {
			votes[voter.ID] = target
		}
	}
	outcome, err := g.ResolveVote(ctx, votes, e.decider.HunterShot)
	if err != nil {
		return err
	}
	ev := e.log.Info().Int("round", g.Round).Ints("leaders", outcome.Leaders).Int("votes", outcome.MaxVotes)
	if outcome.Eliminated != nil {
		ev = ev.Int("eliminated", *outcome.Eliminated)
	}
	if outcome.HunterShot != nil {
		ev = ev.Int("hunter_shot", *outcome.HunterShot)
	}
	ev.Msg("投票結束")
	return nil
}
