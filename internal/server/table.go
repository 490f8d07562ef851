package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"werewolf/internal/game"
)

const (
	TableStatusWaiting  = "waiting"
	TableStatusRunning  = "running"
	TableStatusFinished = "finished"
)

var (
	ErrNoSeat           = errors.New("目前沒有可接管的座位")
	ErrSeatTaken        = errors.New("座位已被其他玩家接管")
	ErrNotSeated        = errors.New("你沒有接管座位")
	ErrPromptExpired    = errors.New("提示已過期")
	ErrSeatVacant       = errors.New("遠端座位無人連線")
	ErrSeatDisconnected = errors.New("遠端座位已斷線")
)

// TableOptions 為牌桌設定
type TableOptions struct {
	// Setup 為每局的基本設定；Seed 不為 0 時每局依序遞增
	Setup    game.Setup
	Timeout  time.Duration
	NewAI    AIFactory
	// Observer 額外接收每局事件，例如稽核紀錄
	Observer func(g *game.Game) game.Observer
	// OnClaim 在帳號接管遠端座位後呼叫，不持有牌桌鎖
	OnClaim func(gameID string, playerID int, userID int64)
	Logger  zerolog.Logger
}

// remoteSeat 記錄由網頁玩家操作的座位
type remoteSeat struct {
	playerID int
	token    string
	userID   int64
	client   *Client
}

// Table 管理唯一一張牌桌：引擎在呼叫 Play 的 goroutine 上執行，
// mu 只保護連線與座位的登記，不觸碰遊戲狀態。
type Table struct {
	id   string
	hub  *Hub
	opts TableOptions
	log  zerolog.Logger

	mu       sync.Mutex
	status   string
	gameID   string
	played   int
	seat     *remoteSeat
	pending  map[string]chan DecisionPayload
	seats    []SeatPublicSnapshot
	snapshot *game.PublicSnapshot
	private  *game.PrivatePlayerSnapshot
}

func NewTable(hub *Hub, opts TableOptions) *Table {
	if opts.NewAI == nil {
		opts.NewAI = NewAIFactory(nil, AIOptions{})
	}
	id := uuid.NewString()
	return &Table{
		id:      id,
		hub:     hub,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "table").Str("table", id).Logger(),
		status:  TableStatusWaiting,
		pending: make(map[string]chan DecisionPayload),
	}
}

func (t *Table) ID() string {
	return t.id
}

func (t *Table) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// GameID 回傳目前或最近一局的編號
func (t *Table) GameID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gameID
}

// Serve 反覆開局直到 ctx 結束；每局之間等待 pause
func (t *Table) Serve(ctx context.Context, pause time.Duration) error {
	for {
		if _, err := t.Play(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.log.Error().Err(err).Msg("對局異常結束")
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Play 開一局並執行到分出勝負
func (t *Table) Play(ctx context.Context) (game.Camp, error) {
	setup := t.opts.Setup
	t.mu.Lock()
	if setup.Seed != 0 {
		setup.Seed += int64(t.played)
	}
	t.played++
	t.mu.Unlock()
	if setup.Logger == nil {
		setup.Logger = &t.opts.Logger
	}

	g, err := game.NewGame(setup)
	if err != nil {
		return 0, err
	}

	seats := game.Seats{}
	views := make([]SeatPublicSnapshot, 0, g.Registry().Len())
	var seat *remoteSeat
	for _, p := range g.Players() {
		remote := g.ExternalID != nil && *g.ExternalID == p.ID
		if remote {
			seats[p.ID] = &Remote{table: t, playerID: p.ID}
			seat = &remoteSeat{playerID: p.ID, token: uuid.NewString()}
		} else {
			seats[p.ID] = t.opts.NewAI(p.ID, g.Seed)
		}
		views = append(views, SeatPublicSnapshot{PlayerID: p.ID, Name: p.Name, Remote: remote})
	}

	t.mu.Lock()
	t.status = TableStatusRunning
	t.gameID = g.ID
	t.seat = seat
	t.seats = views
	t.snapshot = nil
	t.private = nil
	t.mu.Unlock()

	observers := game.MultiObserver{t.observer(g)}
	if t.opts.Observer != nil {
		observers = append(observers, t.opts.Observer(g))
	}
	g.SetObserver(observers)

	logger := t.log
	engine := game.NewEngine(g, seats, game.EngineOptions{Timeout: t.opts.Timeout, Logger: &logger})
	winner, err := engine.Run(ctx)

	t.mu.Lock()
	t.status = TableStatusFinished
	t.closePendingLocked()
	t.seat = nil
	t.mu.Unlock()

	if err != nil {
		return 0, err
	}
	t.hub.Broadcast(ServerMessage{Type: "game_over", Payload: GameOverPayload{
		GameID: g.ID,
		Winner: winner,
		Roles:  g.RevealRoles(),
	}})
	return winner, nil
}

// observer 在引擎 goroutine 上把事件轉成廣播；快照也在此建立
func (t *Table) observer(g *game.Game) game.Observer {
	return game.ObserverFunc(func(ev game.Event) {
		payload := EventPayload{
			Kind:   ev.Kind,
			Round:  ev.Round,
			Phase:  ev.Phase,
			Record: ev.Record,
			Speech: ev.Speech,
			Winner: ev.Winner,
		}
		if ev.Night != nil {
			payload.Deaths = ev.Night.Deaths
		}
		if ev.Vote != nil {
			payload.Votes = ev.Vote.Votes
		}
		t.hub.Broadcast(ServerMessage{Type: "event", Payload: payload})

		switch ev.Kind {
		case game.EventAction, game.EventSpeech:
			return
		}
		snap := g.BuildPublicSnapshot()
		var private *game.PrivatePlayerSnapshot
		if g.ExternalID != nil {
			if p, err := g.BuildPrivateSnapshot(*g.ExternalID); err == nil {
				private = &p
			}
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		t.snapshot = &snap
		t.private = private
		t.broadcastStateLocked()
		t.sendPrivateLocked()
	})
}

func (t *Table) broadcastStateLocked() {
	seats := make([]SeatPublicSnapshot, len(t.seats))
	copy(seats, t.seats)
	if t.seat != nil {
		for i := range seats {
			if seats[i].PlayerID == t.seat.playerID {
				seats[i].Connected = t.seat.client != nil
			}
		}
	}
	t.hub.Broadcast(ServerMessage{Type: "public_state", Payload: PublicStatePayload{
		TableID:  t.id,
		Status:   t.status,
		Seats:    seats,
		Snapshot: t.snapshot,
	}})
}

func (t *Table) sendPrivateLocked() {
	if t.seat == nil || t.seat.client == nil || t.private == nil {
		return
	}
	t.seat.client.sendMessage(ServerMessage{Type: "private_state", Payload: PrivateStatePayload{Snapshot: *t.private}})
}

// ClaimSeat 讓已登入的客戶端接管遠端座位；持有 token 可在斷線後重新接管
func (t *Table) ClaimSeat(c *Client, token string) error {
	gameID, playerID, err := t.claim(c, token)
	if err != nil {
		return err
	}
	if t.opts.OnClaim != nil {
		t.opts.OnClaim(gameID, playerID, c.userID)
	}
	return nil
}

func (t *Table) claim(c *Client, token string) (string, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TableStatusRunning || t.seat == nil {
		return "", 0, ErrNoSeat
	}
	seat := t.seat
	reclaim := token != "" && token == seat.token
	switch {
	case seat.client == c:
	case seat.client != nil && !reclaim:
		return "", 0, ErrSeatTaken
	case seat.userID != 0 && seat.userID != c.userID && !reclaim:
		return "", 0, ErrSeatTaken
	}
	if seat.client != nil && seat.client != c {
		// 同一 token 的新連線取代舊連線
		t.closePendingLocked()
	}

	seat.client = c
	seat.userID = c.userID
	t.log.Info().Int("player", seat.playerID).Int64("user", c.userID).Msg("遠端座位已接管")
	c.sendMessage(ServerMessage{Type: "seat_granted", Payload: SeatGrantedPayload{PlayerID: seat.playerID, Token: seat.token}})
	t.sendPrivateLocked()
	t.broadcastStateLocked()
	return t.gameID, seat.playerID, nil
}

// ReleaseSeat 放棄座位；之後的決策由引擎代為隨機選擇
func (t *Table) ReleaseSeat(c *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked(c)
}

func (t *Table) onClientLeft(c *Client) {
	t.ReleaseSeat(c)
}

func (t *Table) releaseLocked(c *Client) {
	if t.seat == nil || t.seat.client != c {
		return
	}
	t.seat.client = nil
	t.closePendingLocked()
	t.log.Info().Int("player", t.seat.playerID).Msg("遠端座位離線")
	t.broadcastStateLocked()
}

// closePendingLocked 讓所有等待中的提示以斷線結束
func (t *Table) closePendingLocked() {
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
}

// prompt 將提示送給座位的連線並登記回覆通道
func (t *Table) prompt(playerID int, p PromptPayload) (chan DecisionPayload, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seat == nil || t.seat.playerID != playerID {
		return nil, fmt.Errorf("玩家 %d 不是遠端座位", playerID)
	}
	if t.seat.client == nil {
		return nil, ErrSeatVacant
	}
	ch := make(chan DecisionPayload, 1)
	t.pending[p.RequestID] = ch
	t.seat.client.sendMessage(ServerMessage{Type: "prompt", Payload: p})
	return ch, nil
}

func (t *Table) cancelPrompt(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, requestID)
}

// Deliver 將客戶端的回覆交給等待中的決策
func (t *Table) Deliver(c *Client, d DecisionPayload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seat == nil || t.seat.client != c {
		return ErrNotSeated
	}
	ch, ok := t.pending[d.RequestID]
	if !ok {
		return ErrPromptExpired
	}
	delete(t.pending, d.RequestID)
	ch <- d
	return nil
}
