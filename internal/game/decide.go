package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDecisionTimeout 為單次決策的等待上限
const DefaultDecisionTimeout = 30 * time.Second

const fallbackSpeech = "我沒有什麼要補充的，先聽聽大家的看法。"

// Decider 負責向座位索取決策，並保證每次都得到合法結果
//
// 失敗、逾時或不合法的決策以遊戲亂數源均勻選出的合法目標替代，
// 只有上層 ctx 結束時才回傳錯誤。
type Decider struct {
	game     *Game
	seats    Seats
	fallback Actor
	timeout  time.Duration
	log      zerolog.Logger
}

// NewDecider 建立決策守門員；fallback 為 nil 時，缺少座位的玩家直接隨機決定
func NewDecider(g *Game, seats Seats, fallback Actor, timeout time.Duration, logger zerolog.Logger) *Decider {
	if seats == nil {
		seats = Seats{}
	}
	return &Decider{
		game:     g,
		seats:    seats,
		fallback: fallback,
		timeout:  timeout,
		log:      logger.With().Str("component", "decide").Logger(),
	}
}

func (d *Decider) actorFor(id int) Actor {
	if a, ok := d.seats[id]; ok && a != nil {
		return a
	}
	return d.fallback
}

// call 在逾時限制內執行一次決策；actor 未遵守 ctx 時也不會卡住引擎
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- result{zero, fmt.Errorf("決策來源發生 panic: %v", r)}
			}
		}()
		v, err := fn(cctx)
		ch <- result{v, err}
	}()

	var zero T
	select {
	case r := <-ch:
		if r.err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, ErrDecisionTimeout
		}
		return r.val, r.err
	case <-cctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, ErrDecisionTimeout
	}
}

func (d *Decider) randomOf(candidates []int) int {
	return candidates[d.game.rng.Intn(len(candidates))]
}

func (d *Decider) substitute(kind DecisionKind, playerID int, err error) {
	d.log.Warn().
		Err(&ActorError{Decision: kind, PlayerID: playerID, Err: err}).
		Str("decision", kind.String()).
		Int("player", playerID).
		Msg("以隨機合法選擇替代")
}

// chooseTarget 處理只需要單一目標的決策
func (d *Decider) chooseTarget(ctx context.Context, kind DecisionKind, p *Player, candidates []int,
	ask func(Actor, context.Context, View) (int, error)) (int, error) {
	actor := d.actorFor(p.ID)
	if actor == nil {
		return d.randomOf(candidates), nil
	}
	view := d.game.ViewFor(p.ID, kind, candidates)
	choice, err := call(ctx, d.timeout, func(c context.Context) (int, error) {
		return ask(actor, c, view)
	})
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if err == nil && containsID(candidates, choice) {
		return choice, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: 目標 %d 不在候選名單", ErrInvalidChoice, choice)
	}
	d.substitute(kind, p.ID, err)
	return d.randomOf(candidates), nil
}

// WerewolfKill 由第一位存活狼人的座位決定擊殺目標；沒有合法目標時回傳 nil
func (d *Decider) WerewolfKill(ctx context.Context) (*int, error) {
	wolf := d.game.registry.FirstAlive(RoleWerewolf)
	if wolf == nil {
		return nil, nil
	}
	candidates := d.game.AbilityTargets(wolf)
	if len(candidates) == 0 {
		return nil, nil
	}
	target, err := d.chooseTarget(ctx, DecisionKill, wolf, candidates, func(a Actor, c context.Context, v View) (int, error) {
		choice, err := a.ChooseWerewolfKill(c, v)
		if err != nil {
			return 0, err
		}
		if choice == nil {
			return 0, fmt.Errorf("%w: 狼人放棄擊殺", ErrInvalidChoice)
		}
		return *choice, nil
	})
	if err != nil {
		return nil, err
	}
	return intPtr(target), nil
}

// SeerCheck 由存活預言家決定查驗目標
func (d *Decider) SeerCheck(ctx context.Context) (*int, error) {
	seer := d.game.registry.FirstAlive(RoleSeer)
	if seer == nil {
		return nil, nil
	}
	candidates := d.game.AbilityTargets(seer)
	if len(candidates) == 0 {
		return nil, nil
	}
	target, err := d.chooseTarget(ctx, DecisionCheck, seer, candidates, Actor.ChooseSeerCheck)
	if err != nil {
		return nil, err
	}
	return intPtr(target), nil
}

// WitchAction 詢問女巫是否救人或下毒，回傳合法的 save 與 poison 目標
func (d *Decider) WitchAction(ctx context.Context, kill *int) (save *int, poison *int, err error) {
	witch := d.game.registry.FirstAlive(RoleWitch)
	if witch == nil {
		return nil, nil, nil
	}
	canSave, canPoison := d.game.WitchEligibility(kill)
	poisonCandidates := d.game.AbilityTargets(witch)
	if len(poisonCandidates) == 0 {
		canPoison = false
	}
	if !canSave && !canPoison {
		return nil, nil, nil
	}
	prompt := WitchPrompt{CanSave: canSave, CanPoison: canPoison}
	if kill != nil {
		prompt.Kill = intPtr(*kill)
	}
	if canPoison {
		prompt.PoisonCandidates = poisonCandidates
	}

	actor := d.actorFor(witch.ID)
	var action WitchAction
	if actor == nil {
		err = errors.New("沒有決策來源")
	} else {
		view := d.game.ViewFor(witch.ID, DecisionWitch, prompt.PoisonCandidates)
		action, err = call(ctx, d.timeout, func(c context.Context) (WitchAction, error) {
			return actor.ChooseWitchAction(c, view, prompt)
		})
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
	}

	if err != nil {
		// 失敗時救人改為擲硬幣，毒藥保留
		if actor != nil {
			d.substitute(DecisionWitch, witch.ID, err)
		}
		if canSave && d.game.rng.Intn(2) == 0 {
			save = intPtr(*kill)
		}
		return save, nil, nil
	}

	if action.Save {
		if canSave {
			save = intPtr(*kill)
		} else {
			d.substitute(DecisionWitch, witch.ID, fmt.Errorf("%w: 解藥不可用", ErrInvalidChoice))
		}
	}
	if action.Poison != nil {
		switch {
		case !canPoison:
			d.substitute(DecisionWitch, witch.ID, fmt.Errorf("%w: 毒藥不可用", ErrInvalidChoice))
		case !containsID(poisonCandidates, *action.Poison):
			d.substitute(DecisionWitch, witch.ID, fmt.Errorf("%w: 毒藥目標 %d", ErrInvalidChoice, *action.Poison))
			poison = intPtr(d.randomOf(poisonCandidates))
		default:
			poison = intPtr(*action.Poison)
		}
	}
	return save, poison, nil
}

// Vote 由投票者決定放逐目標
func (d *Decider) Vote(ctx context.Context, voter *Player) (int, bool, error) {
	candidates := othersAlive(d.game.registry, voter)
	if len(candidates) == 0 {
		return 0, false, nil
	}
	target, err := d.chooseTarget(ctx, DecisionVote, voter, candidates, Actor.ChooseVote)
	if err != nil {
		return 0, false, err
	}
	return target, true, nil
}

// HunterShot 讓被放逐的獵人選擇帶走的人；符合 HunterShooter
func (d *Decider) HunterShot(ctx context.Context, hunter *Player) (int, error) {
	candidates := d.game.registry.aliveIDsWhere(func(p *Player) bool { return p.ID != hunter.ID })
	if len(candidates) == 0 {
		return 0, fmt.Errorf("%w: 沒有可開槍的目標", ErrIllegalTarget)
	}
	return d.chooseTarget(ctx, DecisionShot, hunter, candidates, Actor.ChooseHunterShot)
}

// Speech 取得玩家的白天發言；失敗時使用固定台詞
func (d *Decider) Speech(ctx context.Context, speaker *Player) (string, error) {
	actor := d.actorFor(speaker.ID)
	if actor == nil {
		return fallbackSpeech, nil
	}
	view := d.game.ViewFor(speaker.ID, DecisionSpeech, nil)
	text, err := call(ctx, d.timeout, func(c context.Context) (string, error) {
		return actor.ProduceSpeech(c, view)
	})
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err == nil && text == "" {
		err = fmt.Errorf("%w: 空白發言", ErrInvalidChoice)
	}
	if err != nil {
		d.substitute(DecisionSpeech, speaker.ID, err)
		return fallbackSpeech, nil
	}
	return text, nil
}
