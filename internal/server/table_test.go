package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"werewolf/internal/game"
)

type rawMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestTable(setup game.Setup) *Table {
	return NewTable(NewHub(), TableOptions{
		Setup:   setup,
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
	})
}

func newTestClient(t *Table, userID int64) *Client {
	return &Client{hub: t.hub, table: t, userID: userID, send: make(chan []byte, 4096), log: zerolog.Nop()}
}

// nextMessage 等待指定種類的訊息，略過其他訊息
func nextMessage(t *testing.T, c *Client, typ string) json.RawMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				t.Fatalf("等待 %s 時連線已關閉", typ)
			}
			var msg rawMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("訊息解析失敗：%v", err)
			}
			if msg.Type == typ {
				return msg.Payload
			}
		case <-deadline:
			t.Fatalf("逾時未收到 %s", typ)
		}
	}
}

func drain(c *Client) map[string]int {
	counts := map[string]int{}
	for {
		select {
		case data := <-c.send:
			var msg rawMessage
			if json.Unmarshal(data, &msg) == nil {
				counts[msg.Type]++
			}
		default:
			return counts
		}
	}
}

// seatTable 建立一張已有遠端座位的牌桌，不啟動引擎
func seatTable(t *testing.T) (*Table, *Client) {
	t.Helper()
	table := newTestTable(game.Setup{})
	table.status = TableStatusRunning
	table.seat = &remoteSeat{playerID: 3, token: "seat-token"}
	c := newTestClient(table, 42)
	if err := table.ClaimSeat(c, ""); err != nil {
		t.Fatalf("接管座位失敗：%v", err)
	}
	var granted SeatGrantedPayload
	if err := json.Unmarshal(nextMessage(t, c, "seat_granted"), &granted); err != nil {
		t.Fatalf("seat_granted 解析失敗：%v", err)
	}
	if granted.PlayerID != 3 || granted.Token != "seat-token" {
		t.Fatalf("座位資訊不符：%+v", granted)
	}
	return table, c
}

func TestSpectatorTablePlaysToCompletion(t *testing.T) {
	table := newTestTable(game.Setup{
		Players:      9,
		Distribution: game.DefaultDistribution(),
		AllExternal:  true,
		Seed:         5,
	})
	spectator := newTestClient(table, 0)
	table.hub.Register(spectator)

	winner, err := table.Play(context.Background())
	if err != nil {
		t.Fatalf("對局執行失敗：%v", err)
	}
	if table.Status() != TableStatusFinished {
		t.Fatalf("結束後狀態應為 finished，實際 %s", table.Status())
	}

	var over GameOverPayload
	if err := json.Unmarshal(nextMessage(t, spectator, "game_over"), &over); err != nil {
		t.Fatalf("game_over 解析失敗：%v", err)
	}
	if over.GameID != table.GameID() || len(over.Roles) != 9 {
		t.Fatalf("結算資訊不符：%+v", over)
	}
	if winner != game.CampWerewolf && winner != game.CampVillager {
		t.Fatalf("勝方不合法：%v", winner)
	}

	late := newTestClient(table, 0)
	table.hub.Register(late)
	if counts := drain(late); counts["public_state"] != 1 {
		t.Fatalf("新連線應立即收到一次公開狀態，實際 %v", counts)
	}
}

func TestRemoteSeatAnswersPrompt(t *testing.T) {
	table, c := seatTable(t)
	remote := &Remote{table: table, playerID: 3}

	type result struct {
		id  int
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := remote.ChooseVote(context.Background(), game.View{Decision: game.DecisionVote, Candidates: []int{1, 2}})
		done <- result{id, err}
	}()

	var prompt PromptPayload
	if err := json.Unmarshal(nextMessage(t, c, "prompt"), &prompt); err != nil {
		t.Fatalf("prompt 解析失敗：%v", err)
	}
	if prompt.Decision != "vote" || len(prompt.View.Candidates) != 2 {
		t.Fatalf("提示內容不符：%+v", prompt)
	}
	target := 2
	if err := table.Deliver(c, DecisionPayload{RequestID: prompt.RequestID, Target: &target}); err != nil {
		t.Fatalf("回覆失敗：%v", err)
	}
	res := <-done
	if res.err != nil || res.id != 2 {
		t.Fatalf("應取得目標 2，實際 %d %v", res.id, res.err)
	}

	if err := table.Deliver(c, DecisionPayload{RequestID: prompt.RequestID, Target: &target}); !errors.Is(err, ErrPromptExpired) {
		t.Fatalf("重複回覆應回傳 ErrPromptExpired，實際 %v", err)
	}
	other := newTestClient(table, 7)
	if err := table.Deliver(other, DecisionPayload{RequestID: "x"}); !errors.Is(err, ErrNotSeated) {
		t.Fatalf("未接管座位的回覆應被拒絕，實際 %v", err)
	}
}

func TestRemoteSeatDisconnectFailsPending(t *testing.T) {
	table, c := seatTable(t)
	remote := &Remote{table: table, playerID: 3}

	done := make(chan error, 1)
	go func() {
		_, err := remote.ProduceSpeech(context.Background(), game.View{Decision: game.DecisionSpeech})
		done <- err
	}()
	nextMessage(t, c, "prompt")
	c.close()

	if err := <-done; !errors.Is(err, ErrSeatDisconnected) {
		t.Fatalf("斷線應回傳 ErrSeatDisconnected，實際 %v", err)
	}
	if _, err := remote.ChooseSeerCheck(context.Background(), game.View{}); !errors.Is(err, ErrSeatVacant) {
		t.Fatalf("無人連線應回傳 ErrSeatVacant，實際 %v", err)
	}
}

func TestRemoteSeatHonoursDeadline(t *testing.T) {
	table, c := seatTable(t)
	remote := &Remote{table: table, playerID: 3}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := remote.ChooseWitchAction(ctx, game.View{Decision: game.DecisionWitch}, game.WitchPrompt{CanPoison: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("逾時應回傳 DeadlineExceeded，實際 %v", err)
	}
	var prompt PromptPayload
	if err := json.Unmarshal(nextMessage(t, c, "prompt"), &prompt); err != nil {
		t.Fatalf("prompt 解析失敗：%v", err)
	}
	if prompt.Witch == nil || !prompt.Witch.CanPoison || prompt.Deadline == 0 {
		t.Fatalf("女巫提示應附帶藥水資訊與期限：%+v", prompt)
	}
	if err := table.Deliver(c, DecisionPayload{RequestID: prompt.RequestID}); !errors.Is(err, ErrPromptExpired) {
		t.Fatalf("逾時後的回覆應已過期，實際 %v", err)
	}
}

func TestClaimSeatRules(t *testing.T) {
	table := newTestTable(game.Setup{})
	c := newTestClient(table, 1)
	if err := table.ClaimSeat(c, ""); !errors.Is(err, ErrNoSeat) {
		t.Fatalf("未開局時應回傳 ErrNoSeat，實際 %v", err)
	}

	table, owner := seatTable(t)
	intruder := newTestClient(table, 99)
	if err := table.ClaimSeat(intruder, ""); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("他人接管中應回傳 ErrSeatTaken，實際 %v", err)
	}

	owner.close()
	if err := table.ClaimSeat(intruder, ""); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("座位屬於其他帳號時應回傳 ErrSeatTaken，實際 %v", err)
	}
	if err := table.ClaimSeat(intruder, "seat-token"); err != nil {
		t.Fatalf("持有 token 應可接管，實際 %v", err)
	}
}

func TestRemoteSeatInLiveGame(t *testing.T) {
	var table *Table
	var c *Client
	table = NewTable(NewHub(), TableOptions{
		Setup: game.Setup{
			Players:      9,
			Distribution: game.DefaultDistribution(),
			Seed:         21,
		},
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
		// 開局時立即接管遠端座位
		Observer: func(*game.Game) game.Observer {
			return game.ObserverFunc(func(ev game.Event) {
				if ev.Kind == game.EventGameStarted {
					if err := table.ClaimSeat(c, ""); err != nil {
						t.Errorf("接管座位失敗：%v", err)
					}
				}
			})
		},
	})
	c = newTestClient(table, 8)

	granted := make(chan int, 1)
	go func() {
		n := 0
		for data := range c.send {
			var msg rawMessage
			if json.Unmarshal(data, &msg) != nil {
				continue
			}
			switch msg.Type {
			case "seat_granted":
				n++
			case "prompt":
				var p PromptPayload
				if json.Unmarshal(msg.Payload, &p) != nil {
					continue
				}
				d := DecisionPayload{RequestID: p.RequestID, Text: "我是好人"}
				if len(p.View.Candidates) > 0 {
					target := p.View.Candidates[0]
					d.Target = &target
				}
				_ = table.Deliver(c, d)
			}
		}
		granted <- n
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := table.Play(ctx); err != nil {
		t.Fatalf("對局執行失敗：%v", err)
	}
	if table.Status() != TableStatusFinished {
		t.Fatalf("結束後狀態應為 finished")
	}
	c.close()
	if n := <-granted; n != 1 {
		t.Fatalf("應收到一次 seat_granted，實際 %d", n)
	}
}
