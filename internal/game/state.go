package game

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Game 表示整場遊戲的狀態
//
// 狀態只由各結算步驟修改，不會回滾；History 只會追加。
type Game struct {
	ID          string
	Round       int
	Phase       Phase
	Night       NightActions
	VotedPlayer *int
	GameOver    bool
	Winner      *Camp
	Seed        int64
	ExternalID  *int

	registry    *Registry
	history     []ActionRecord
	seerResults map[int]SeerVerdict
	speeches    []Speech
	// lastDeaths 為最近一夜的死亡名單，供白天的視角使用
	lastDeaths  []int

	rng      *rand.Rand
	clock    func() time.Time
	strict   bool
	log      zerolog.Logger
	observer Observer
}

// Registry 回傳玩家名冊
func (g *Game) Registry() *Registry {
	return g.registry
}

// Players 回傳全部玩家
func (g *Game) Players() []*Player {
	return g.registry.Players()
}

// Player 根據編號取得玩家
func (g *Game) Player(id int) (*Player, error) {
	return g.registry.Lookup(id)
}

// AlivePlayers 回傳仍在場的玩家
func (g *Game) AlivePlayers() []*Player {
	return g.registry.Alive()
}

// AliveIDs 回傳存活玩家的編號
func (g *Game) AliveIDs() []int {
	return g.registry.AliveIDs()
}

// DeadIDs 回傳已死亡玩家的編號
func (g *Game) DeadIDs() []int {
	return g.registry.DeadIDs()
}

// Strict 回傳是否以除錯模式處理約定違反
func (g *Game) Strict() bool {
	return g.strict
}

// Rand 回傳遊戲共用的亂數來源；僅限引擎的單一執行緒使用
func (g *Game) Rand() *rand.Rand {
	return g.rng
}

// SetObserver 設定事件觀察者
func (g *Game) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	g.observer = o
}

// History 返回行動紀錄的副本
func (g *Game) History() []ActionRecord {
	out := make([]ActionRecord, len(g.history))
	copy(out, g.history)
	return out
}

// SeerResults 返回預言家查驗結果的副本
func (g *Game) SeerResults() map[int]SeerVerdict {
	out := make(map[int]SeerVerdict, len(g.seerResults))
	for id, v := range g.seerResults {
		out[id] = v
	}
	return out
}

// Speeches 返回發言紀錄的副本
func (g *Game) Speeches() []Speech {
	out := make([]Speech, len(g.speeches))
	copy(out, g.speeches)
	return out
}

func (g *Game) record(action ActionType, actorID int, target *int) ActionRecord {
	rec := ActionRecord{
		Type:      action,
		ActorID:   actorID,
		Phase:     g.Phase,
		Round:     g.Round,
		Timestamp: g.clock(),
	}
	if target != nil {
		rec.TargetID = intPtr(*target)
	}
	g.history = append(g.history, rec)
	g.observer.Observe(Event{Kind: EventAction, Round: g.Round, Phase: g.Phase, Record: &rec})
	return rec
}

func (g *Game) addSpeech(playerID int, text string) Speech {
	s := Speech{Round: g.Round, PlayerID: playerID, Text: text, Timestamp: g.clock()}
	g.speeches = append(g.speeches, s)
	g.observer.Observe(Event{Kind: EventSpeech, Round: g.Round, Phase: g.Phase, Speech: &s})
	return s
}

// killPlayer 使玩家死亡並追加一筆 Kill 紀錄；已死亡時不做任何事
func (g *Game) killPlayer(id int) (bool, error) {
	killed, err := g.registry.kill(id)
	if err != nil || !killed {
		return false, err
	}
	g.record(ActionKill, SystemActor, &id)
	g.log.Info().Int("player", id).Str("phase", g.Phase.String()).Int("round", g.Round).Msg("玩家死亡")
	return true, nil
}

// handleViolation 在除錯模式回傳錯誤，正式模式記錄後略過
func (g *Game) handleViolation(v *InvariantViolation) error {
	if g.strict {
		return v
	}
	g.log.Warn().Err(v).Msg("略過違反約定的操作")
	return nil
}

// enterPhase 切換階段；進入黑夜時清空夜晚行動
func (g *Game) enterPhase(p Phase) {
	g.Phase = p
	if p == PhaseNight {
		g.Night = NightActions{}
	}
	g.observer.Observe(Event{Kind: EventPhaseStarted, Round: g.Round, Phase: p})
}

// Summary 為對局摘要
type Summary struct {
	Round         int    `json:"round"`
	Phase         Phase  `json:"phase"`
	TotalPlayers  int    `json:"totalPlayers"`
	AliveCount    int    `json:"aliveCount"`
	AliveWerewolf int    `json:"aliveWerewolves"`
	AliveGood     int    `json:"aliveGood"`
	DeadCount     int    `json:"deadCount"`
	Distribution  string `json:"distribution"`
	GameOver      bool   `json:"gameOver"`
	Winner        *Camp  `json:"winner,omitempty"`
}

// Summary 回傳目前的對局摘要
func (g *Game) Summary() Summary {
	wolves, good := g.registry.CountAlive()
	dist := Distribution{}
	for _, p := range g.registry.players {
		dist[p.role]++
	}
	return Summary{
		Round:         g.Round,
		Phase:         g.Phase,
		TotalPlayers:  g.registry.Len(),
		AliveCount:    wolves + good,
		AliveWerewolf: wolves,
		AliveGood:     good,
		DeadCount:     len(g.registry.dead),
		Distribution:  dist.String(),
		GameOver:      g.GameOver,
		Winner:        g.Winner,
	}
}

// HistoryEntry 為匯出的行動紀錄格式
type HistoryEntry struct {
	Round     int        `json:"round"`
	Phase     Phase      `json:"phase"`
	Action    ActionType `json:"action"`
	ActorID   int        `json:"actorId"`
	TargetID  *int       `json:"targetId"`
	Timestamp time.Time  `json:"timestamp"`
}

// ExportHistory 依追加順序匯出完整行動紀錄
func (g *Game) ExportHistory() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(g.history))
	for _, rec := range g.history {
		entry := HistoryEntry{
			Round:     rec.Round,
			Phase:     rec.Phase,
			Action:    rec.Type,
			ActorID:   rec.ActorID,
			Timestamp: rec.Timestamp,
		}
		if rec.TargetID != nil {
			entry.TargetID = intPtr(*rec.TargetID)
		}
		out = append(out, entry)
	}
	return out
}
