package actor

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"werewolf/internal/game"
)

// Bot 為腳本玩家：只使用自己視角內的資訊做簡單推理
type Bot struct {
	// Delay 模擬思考時間，0 表示立即回覆
	Delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBot 以指定種子建立腳本玩家
func NewBot(seed int64) *Bot {
	return &Bot{rng: rand.New(rand.NewSource(seed))}
}

func (b *Bot) intn(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Intn(n)
}

func (b *Bot) pick(ids []int) int {
	return ids[b.intn(len(ids))]
}

func (b *Bot) wait(ctx context.Context) error {
	if b.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ChooseWerewolfKill 優先擊殺白天自稱神職的玩家
func (b *Bot) ChooseWerewolfKill(ctx context.Context, v game.View) (*int, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	if len(v.Candidates) == 0 {
		return nil, nil
	}
	targets := claimedSpecial(v)
	if len(targets) == 0 {
		targets = v.Candidates
	}
	target := b.pick(targets)
	return &target, nil
}

// ChooseSeerCheck 優先查驗尚未查驗過的玩家
func (b *Bot) ChooseSeerCheck(ctx context.Context, v game.View) (int, error) {
	if err := b.wait(ctx); err != nil {
		return 0, err
	}
	unchecked := filter(v.Candidates, func(id int) bool {
		_, seen := v.SeerResults[id]
		return !seen
	})
	if len(unchecked) > 0 {
		return b.pick(unchecked), nil
	}
	return b.pick(v.Candidates), nil
}

// ChooseWitchAction 第一夜必定救人，之後擲硬幣；毒藥只有四分之一機率使用
func (b *Bot) ChooseWitchAction(ctx context.Context, v game.View, p game.WitchPrompt) (game.WitchAction, error) {
	if err := b.wait(ctx); err != nil {
		return game.WitchAction{}, err
	}
	var action game.WitchAction
	if p.CanSave && p.Kill != nil {
		action.Save = v.Round == 1 || b.intn(2) == 0
	}
	if p.CanPoison && len(p.PoisonCandidates) > 0 && b.intn(4) == 0 {
		target := b.pick(p.PoisonCandidates)
		action.Poison = &target
	}
	return action, nil
}

// ChooseVote 預言家投查到的狼人；狼人不投隊友；其他人隨機
func (b *Bot) ChooseVote(ctx context.Context, v game.View) (int, error) {
	if err := b.wait(ctx); err != nil {
		return 0, err
	}
	return b.pick(b.suspects(v)), nil
}

// ChooseHunterShot 與投票使用相同的懷疑名單
func (b *Bot) ChooseHunterShot(ctx context.Context, v game.View) (int, error) {
	if err := b.wait(ctx); err != nil {
		return 0, err
	}
	return b.pick(b.suspects(v)), nil
}

func (b *Bot) suspects(v game.View) []int {
	switch v.SelfRole {
	case game.RoleWerewolf:
		if out := filter(v.Candidates, func(id int) bool { return !contains(v.Teammates, id) }); len(out) > 0 {
			return out
		}
	case game.RoleSeer:
		if out := filter(v.Candidates, func(id int) bool { return v.SeerResults[id] == game.VerdictWerewolf }); len(out) > 0 {
			return out
		}
		if out := filter(v.Candidates, func(id int) bool { return !hasResult(v, id) }); len(out) > 0 {
			return out
		}
	}
	return v.Candidates
}

func (b *Bot) ProduceSpeech(ctx context.Context, v game.View) (string, error) {
	if err := b.wait(ctx); err != nil {
		return "", err
	}
	if v.SelfRole == game.RoleSeer {
		for _, s := range v.Alive {
			if verdict, ok := v.SeerResults[s.ID]; ok && verdict == game.VerdictWerewolf {
				return fmt.Sprintf("我是預言家，%s 是我查到的狼人，請大家投他。", s.Name), nil
			}
		}
	}
	if len(v.NightDeaths) == 0 && v.Round > 1 {
		return "昨晚是平安夜，女巫可能已經用過解藥，大家發言要謹慎。", nil
	}
	lines := fallbackLines[v.SelfRole]
	if len(lines) == 0 {
		return "我需要更多資訊才能判斷。", nil
	}
	return lines[b.intn(len(lines))], nil
}

var fallbackLines = map[game.Role][]string{
	game.RoleWerewolf: {"我需要仔細觀察每個人的發言。", "我是好人，先聽聽後面的人怎麼說。"},
	game.RoleVillager: {"我覺得我們應該從發言中找線索。", "我是平民，沒有什麼資訊。"},
	game.RoleSeer:     {"根據目前的資訊，我們需要謹慎投票。"},
	game.RoleWitch:    {"我會謹慎使用我的藥水。", "昨晚的情況我心裡有數。"},
	game.RoleHunter:   {"我會仔細分析每個人的發言。", "誰投我我就帶走誰。"},
}

// claimedSpecial 找出白天發言中自稱神職的候選人
func claimedSpecial(v game.View) []int {
	var out []int
	for _, s := range v.Speeches {
		if !v.IsCandidate(s.PlayerID) || contains(out, s.PlayerID) {
			continue
		}
		for _, kw := range []string{"預言家", "女巫", "獵人", "查驗"} {
			if strings.Contains(s.Text, "我是"+kw) || (kw == "查驗" && strings.Contains(s.Text, kw)) {
				out = append(out, s.PlayerID)
				break
			}
		}
	}
	return out
}

func hasResult(v game.View, id int) bool {
	_, ok := v.SeerResults[id]
	return ok
}

func filter(ids []int, keep func(int) bool) []int {
	var out []int
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
