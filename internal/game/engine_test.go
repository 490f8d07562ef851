package game

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubActor 回傳固定規則的決策，用於可重現的引擎測試
type stubActor struct {
	witch WitchAction
	// block 為 true 時忽略 ctx 並永遠不回傳
	block  bool
	target *int
	err    error
	speech string
}

func (s stubActor) pick(v View) (int, error) {
	if s.block {
		select {}
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.target != nil {
		return *s.target, nil
	}
	return v.Candidates[0], nil
}

func (s stubActor) ChooseWerewolfKill(_ context.Context, v View) (*int, error) {
	id, err := s.pick(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s stubActor) ChooseSeerCheck(_ context.Context, v View) (int, error) { return s.pick(v) }
func (s stubActor) ChooseVote(_ context.Context, v View) (int, error)      { return s.pick(v) }
func (s stubActor) ChooseHunterShot(_ context.Context, v View) (int, error) {
	return s.pick(v)
}

func (s stubActor) ChooseWitchAction(_ context.Context, _ View, _ WitchPrompt) (WitchAction, error) {
	if s.err != nil {
		return WitchAction{}, s.err
	}
	return s.witch, nil
}

func (s stubActor) ProduceSpeech(_ context.Context, v View) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.speech, nil
}

func seatsOf(n int, a Actor) Seats {
	seats := Seats{}
	for i := 0; i < n; i++ {
		seats[i] = a
	}
	return seats
}

func TestEngineStepPhases(t *testing.T) {
	g := newTestGame(t, true)
	var kinds []EventKind
	g.SetObserver(ObserverFunc(func(e Event) { kinds = append(kinds, e.Kind) }))
	seats := seatsOf(9, stubActor{witch: WitchAction{Save: true}, speech: "我是好人"})
	e := NewEngine(g, seats, EngineOptions{Timeout: time.Second})
	ctx := context.Background()

	// 第一夜：狼人殺 2，女巫救回
	if err := e.Step(ctx); err != nil {
		t.Fatalf("黑夜錯誤：%v", err)
	}
	if g.Phase != PhaseDay || g.Round != 1 {
		t.Fatalf("黑夜後應進入第 1 回合白天，實際第 %d 回合 %s", g.Round, g.Phase)
	}
	if len(g.DeadIDs()) != 0 {
		t.Fatalf("被救的玩家不應死亡，實際 %v", g.DeadIDs())
	}
	if kinds[0] != EventGameStarted {
		t.Fatalf("第一個事件應為遊戲開始，實際 %s", kinds[0])
	}

	if err := e.Step(ctx); err != nil {
		t.Fatalf("白天錯誤：%v", err)
	}
	if g.Phase != PhaseVote || g.Round != 1 {
		t.Fatalf("白天後應進入投票")
	}
	if n := len(g.Speeches()); n != 9 {
		t.Fatalf("每位存活玩家應發言一次，實際 %d", n)
	}

	// 投票：除了玩家 0 都投 0，玩家 0 投 1
	if err := e.Step(ctx); err != nil {
		t.Fatalf("投票錯誤：%v", err)
	}
	if p, _ := g.Player(0); p.Alive() {
		t.Fatalf("玩家 0 應被放逐")
	}
	if g.Phase != PhaseNight || g.Round != 2 {
		t.Fatalf("投票後應進入第 2 回合黑夜，實際第 %d 回合 %s", g.Round, g.Phase)
	}
	if g.Night != (NightActions{}) {
		t.Fatalf("進入黑夜應清空夜晚行動")
	}
	assertPartition(t, g)
}

func TestEngineRunCompletes(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		g, err := NewGame(Setup{Seed: seed, AllExternal: true, Clock: fixedClock})
		if err != nil {
			t.Fatalf("NewGame 錯誤：%v", err)
		}
		prevRound := g.Round
		g.SetObserver(ObserverFunc(func(ev Event) {
			if ev.Kind != EventPhaseStarted {
				return
			}
			if ev.Round < prevRound {
				t.Fatalf("回合數不應倒退")
			}
			if ev.Round > prevRound && ev.Phase != PhaseNight {
				t.Fatalf("回合只應在進入黑夜時增加")
			}
			prevRound = ev.Round
			assertPartition(t, g)
		}))
		e := NewEngine(g, nil, EngineOptions{})
		winner, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("seed %d: Run 錯誤：%v", seed, err)
		}
		if !g.GameOver || g.Winner == nil || *g.Winner != winner {
			t.Fatalf("seed %d: 遊戲應結束並記錄勝方", seed)
		}
		if Evaluate(g.Players()) == nil || *Evaluate(g.Players()) != winner {
			t.Fatalf("seed %d: 勝方應與最終存活狀態一致", seed)
		}
		kills := 0
		for _, rec := range g.History() {
			if rec.Type == ActionKill {
				kills++
			}
		}
		if kills != len(g.DeadIDs()) {
			t.Fatalf("seed %d: 每次死亡應恰有一筆 Kill 紀錄，%d != %d", seed, kills, len(g.DeadIDs()))
		}
		if err := e.Step(context.Background()); !errors.Is(err, ErrGameOver) {
			t.Fatalf("結束後再推進應回傳 ErrGameOver，實際 %v", err)
		}
	}
}

func TestEngineCancelLeavesStateUntouched(t *testing.T) {
	g := newTestGame(t, true)
	seats := seatsOf(9, stubActor{block: true})
	e := NewEngine(g, seats, EngineOptions{Timeout: -1})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("應回傳 ctx 錯誤，實際 %v", err)
	}
	if len(g.History()) != 0 || len(g.DeadIDs()) != 0 || g.Phase != PhaseNight {
		t.Fatalf("取消時不應套用任何結算")
	}
}

func TestDeciderTimeoutFallsBack(t *testing.T) {
	g := newTestGame(t, false)
	d := NewDecider(g, seatsOf(9, stubActor{block: true}), nil, 10*time.Millisecond, zerolog.Nop())
	voter, _ := g.Player(3)
	target, ok, err := d.Vote(context.Background(), voter)
	if err != nil || !ok {
		t.Fatalf("逾時不應回傳錯誤：%v", err)
	}
	if target == 3 {
		t.Fatalf("替代的投票不可投給自己")
	}
	if p, _ := g.Player(target); !p.Alive() {
		t.Fatalf("替代的投票目標應存活")
	}
}

func TestDeciderInvalidChoiceFallsBack(t *testing.T) {
	g := newTestGame(t, false)
	bad := 42
	d := NewDecider(g, seatsOf(9, stubActor{target: &bad}), nil, time.Second, zerolog.Nop())
	kill, err := d.WerewolfKill(context.Background())
	if err != nil || kill == nil {
		t.Fatalf("無效決策應被替代：%v", err)
	}
	if p, _ := g.Player(*kill); p.IsWerewolf() {
		t.Fatalf("替代的擊殺目標不應為狼人")
	}

	check, err := d.SeerCheck(context.Background())
	if err != nil || check == nil || *check == 4 {
		t.Fatalf("替代的查驗目標不應為預言家自己")
	}

	hunter, _ := g.Player(5)
	g.killPlayer(5)
	shot, err := d.HunterShot(context.Background(), hunter)
	if err != nil || shot == 5 {
		t.Fatalf("替代的開槍目標不應為獵人自己，實際 %d %v", shot, err)
	}
}

func TestDeciderNilKillIsReplaced(t *testing.T) {
	g := newTestGame(t, false)
	d := NewDecider(g, Seats{0: nilKiller{}}, nil, time.Second, zerolog.Nop())
	kill, err := d.WerewolfKill(context.Background())
	if err != nil || kill == nil {
		t.Fatalf("有合法目標時放棄擊殺應被替代，實際 %v %v", kill, err)
	}
}

type nilKiller struct{ stubActor }

func (nilKiller) ChooseWerewolfKill(context.Context, View) (*int, error) { return nil, nil }

func TestDeciderWitchError(t *testing.T) {
	g := newTestGame(t, false)
	d := NewDecider(g, seatsOf(9, stubActor{err: errors.New("斷線")}), nil, time.Second, zerolog.Nop())
	for i := 0; i < 20; i++ {
		save, poison, err := d.WitchAction(context.Background(), intPtr(3))
		if err != nil {
			t.Fatalf("女巫失敗不應回傳錯誤：%v", err)
		}
		if poison != nil {
			t.Fatalf("失敗時不應自動下毒")
		}
		if save != nil && *save != 3 {
			t.Fatalf("替代的解藥只能救當晚被殺的人")
		}
	}
}

func TestDeciderWitchInvalidPoison(t *testing.T) {
	g := newTestGame(t, false)
	d := NewDecider(g, seatsOf(9, stubActor{witch: WitchAction{Poison: intPtr(6)}}), nil, time.Second, zerolog.Nop())
	_, poison, err := d.WitchAction(context.Background(), nil)
	if err != nil || poison == nil {
		t.Fatalf("無效毒藥目標應被替代：%v", err)
	}
	if *poison == 6 {
		t.Fatalf("女巫不可毒自己")
	}

	// 解藥不可用時的救人請求直接略過
	d = NewDecider(g, seatsOf(9, stubActor{witch: WitchAction{Save: true}}), nil, time.Second, zerolog.Nop())
	save, _, err := d.WitchAction(context.Background(), nil)
	if err != nil || save != nil {
		t.Fatalf("沒有擊殺時不可救人，實際 %v %v", save, err)
	}
}

func TestDeciderSpeechFallback(t *testing.T) {
	g := newTestGame(t, false)
	d := NewDecider(g, seatsOf(9, stubActor{}), nil, time.Second, zerolog.Nop())
	p, _ := g.Player(2)
	text, err := d.Speech(context.Background(), p)
	if err != nil || text != fallbackSpeech {
		t.Fatalf("空白發言應改用固定台詞，實際 %q %v", text, err)
	}
}

// cancelOnShot 第一次被要求開槍時取消整局的 ctx
type cancelOnShot struct {
	stubActor
	cancel context.CancelFunc
	shots  *atomic.Int32
}

func (c cancelOnShot) ChooseHunterShot(_ context.Context, v View) (int, error) {
	if c.shots.Add(1) == 1 {
		c.cancel()
		return 0, context.Canceled
	}
	return v.Candidates[0], nil
}

func TestEngineVoteCancelledDuringShotResumes(t *testing.T) {
	g := newTestGame(t, true)
	toVotePhase(g)
	hunter := 5
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	actor := cancelOnShot{stubActor: stubActor{target: &hunter}, cancel: cancel, shots: new(atomic.Int32)}
	e := NewEngine(g, seatsOf(9, actor), EngineOptions{Timeout: time.Second})

	if err := e.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("開槍時取消應回傳取消錯誤，實際 %v", err)
	}
	if g.Phase != PhaseVote || g.Round != 1 {
		t.Fatalf("取消後應停在第 1 回合投票，實際第 %d 回合 %s", g.Round, g.Phase)
	}
	if len(g.DeadIDs()) != 0 || len(g.History()) != 0 || g.VotedPlayer != nil {
		t.Fatalf("取消後投票不應部分套用，死亡 %v，紀錄 %d 筆", g.DeadIDs(), len(g.History()))
	}

	if err := e.Step(context.Background()); err != nil {
		t.Fatalf("重新投票錯誤：%v", err)
	}
	history := g.History()
	want := []ActionType{ActionVote, ActionKill, ActionShoot, ActionKill}
	if len(history) != len(want) {
		t.Fatalf("應只有一次放逐與一次開槍，實際 %+v", history)
	}
	for i, rec := range history {
		if rec.Type != want[i] || rec.Round != 1 {
			t.Fatalf("第 %d 筆紀錄應為第 1 回合的 %s，實際 %+v", i, want[i], rec)
		}
	}
	if *history[0].TargetID != hunter || *history[2].TargetID != 0 {
		t.Fatalf("應放逐獵人並帶走玩家 0，實際 %+v", history)
	}
	if g.Phase != PhaseNight || g.Round != 2 {
		t.Fatalf("投票後應進入第 2 回合黑夜，實際第 %d 回合 %s", g.Round, g.Phase)
	}
	assertPartition(t, g)
}
