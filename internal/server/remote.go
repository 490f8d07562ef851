package server

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"werewolf/internal/game"
)

var errNoTarget = errors.New("回覆缺少目標")

// Remote 透過 WebSocket 讓登入的玩家操作一個座位
//
// 座位無人連線或斷線時回傳錯誤，引擎會以隨機合法選擇代替。
type Remote struct {
	table    *Table
	playerID int
}

func (r *Remote) ask(ctx context.Context, v game.View, witch *game.WitchPrompt) (DecisionPayload, error) {
	p := PromptPayload{
		RequestID: uuid.NewString(),
		Decision:  v.Decision.String(),
		View:      v,
		Witch:     witch,
	}
	if deadline, ok := ctx.Deadline(); ok {
		p.Deadline = deadline.UnixMilli()
	}
	ch, err := r.table.prompt(r.playerID, p)
	if err != nil {
		return DecisionPayload{}, err
	}
	defer r.table.cancelPrompt(p.RequestID)

	select {
	case <-ctx.Done():
		return DecisionPayload{}, ctx.Err()
	case d, ok := <-ch:
		if !ok {
			return DecisionPayload{}, ErrSeatDisconnected
		}
		return d, nil
	}
}

func (r *Remote) askTarget(ctx context.Context, v game.View) (int, error) {
	d, err := r.ask(ctx, v, nil)
	if err != nil {
		return 0, err
	}
	if d.Target == nil {
		return 0, errNoTarget
	}
	return *d.Target, nil
}

func (r *Remote) ChooseWerewolfKill(ctx context.Context, v game.View) (*int, error) {
	d, err := r.ask(ctx, v, nil)
	if err != nil {
		return nil, err
	}
	return d.Target, nil
}

func (r *Remote) ChooseSeerCheck(ctx context.Context, v game.View) (int, error) {
	return r.askTarget(ctx, v)
}

func (r *Remote) ChooseVote(ctx context.Context, v game.View) (int, error) {
	return r.askTarget(ctx, v)
}

func (r *Remote) ChooseHunterShot(ctx context.Context, v game.View) (int, error) {
	return r.askTarget(ctx, v)
}

func (r *Remote) ChooseWitchAction(ctx context.Context, v game.View, p game.WitchPrompt) (game.WitchAction, error) {
	d, err := r.ask(ctx, v, &p)
	if err != nil {
		return game.WitchAction{}, err
	}
	return game.WitchAction{Save: d.Save, Poison: d.Poison}, nil
}

func (r *Remote) ProduceSpeech(ctx context.Context, v game.View) (string, error) {
	d, err := r.ask(ctx, v, nil)
	if err != nil {
		return "", err
	}
	return d.Text, nil
}
