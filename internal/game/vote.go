package game

import (
	"context"
	"sort"
)

// HunterShooter 在獵人被放逐後取得開槍目標；回傳錯誤僅代表流程被取消
type HunterShooter func(ctx context.Context, hunter *Player) (int, error)

// VoteOutcome 描述一次投票結算
type VoteOutcome struct {
	Round      int         `json:"round"`
	Votes      map[int]int `json:"votes"`
	Tally      map[int]int `json:"tally"`
	Leaders    []int       `json:"leaders"`
	MaxVotes   int         `json:"maxVotes"`
	Tie        bool        `json:"tie"`
	Eliminated *int        `json:"eliminated,omitempty"`
	HunterShot *int        `json:"hunterShot,omitempty"`
}

// Tally 統計每位目標的得票，回傳最高票數與所有並列最高的目標（已排序）
func Tally(votes map[int]int) (counts map[int]int, leaders []int, top int) {
	counts = make(map[int]int)
	for _, target := range votes {
		counts[target]++
	}
	for target, n := range counts {
		switch {
		case n > top:
			top = n
			leaders = []int{target}
		case n == top:
			leaders = append(leaders, target)
		}
	}
	sort.Ints(leaders)
	return counts, leaders, top
}

// ResolveVote 結算放逐投票
//
// 唯一最高票者被放逐；兩人以上並列最高則本輪無人出局，不以亂數決定。
// 被放逐者若為獵人，向 shooter 取得一個目標並無條件帶走，連鎖深度固定為一。
func (g *Game) ResolveVote(ctx context.Context, votes map[int]int, shooter HunterShooter) (VoteOutcome, error) {
	valid, err := g.validateVotes(votes)
	if err != nil {
		return VoteOutcome{}, err
	}

	counts, leaders, top := Tally(valid)
	outcome := VoteOutcome{
		Round:    g.Round,
		Votes:    valid,
		Tally:    counts,
		Leaders:  leaders,
		MaxVotes: top,
		Tie:      len(leaders) > 1,
	}
	if len(leaders) != 1 {
		g.log.Info().Ints("leaders", leaders).Int("votes", top).Msg("投票平局或無人投票，無人出局")
		g.observer.Observe(Event{Kind: EventVoteResolved, Round: g.Round, Phase: g.Phase, Vote: &outcome})
		return outcome, nil
	}

	eliminatedID := leaders[0]
	eliminated := g.registry.players[eliminatedID]

	// 開槍目標在套用放逐前取得；取消時狀態維持投票前的樣子
	var shot *int
	if eliminated.role.RetaliatesOnVote() && shooter != nil && len(g.registry.alive) > 1 {
		target, err := shooter(ctx, eliminated)
		if err != nil {
			return VoteOutcome{}, err
		}
		ok, err := g.validateHunterShot(eliminated, target)
		if err != nil {
			return VoteOutcome{}, err
		}
		if ok {
			shot = intPtr(target)
		}
	}

	g.record(ActionVote, SystemActor, &eliminatedID)
	if _, err := g.killPlayer(eliminatedID); err != nil {
		return outcome, err
	}
	g.VotedPlayer = intPtr(eliminatedID)
	outcome.Eliminated = intPtr(eliminatedID)

	if shot != nil {
		g.record(ActionShoot, eliminated.ID, shot)
		if _, err := g.killPlayer(*shot); err != nil {
			return outcome, err
		}
		outcome.HunterShot = shot
	}

	g.observer.Observe(Event{Kind: EventVoteResolved, Round: g.Round, Phase: g.Phase, Vote: &outcome})
	return outcome, nil
}

// validateHunterShot 檢查開槍目標；目標若同為獵人也不再連鎖
func (g *Game) validateHunterShot(hunter *Player, target int) (bool, error) {
	if _, err := g.registry.Living(target); err != nil || target == hunter.ID {
		if err == nil {
			err = ErrIllegalTarget
		}
		return false, g.handleViolation(violation("hunter_shoot", err, "獵人 %d 的目標 %d", hunter.ID, target))
	}
	return true, nil
}

func (g *Game) validateVotes(votes map[int]int) (map[int]int, error) {
	valid := make(map[int]int, len(votes))
	voters := make([]int, 0, len(votes))
	for voter := range votes {
		voters = append(voters, voter)
	}
	sort.Ints(voters)
	for _, voter := range voters {
		target := votes[voter]
		var v *InvariantViolation
		if _, err := g.registry.Living(voter); err != nil {
			v = violation("vote", err, "投票者 %d", voter)
		} else if _, err := g.registry.Living(target); err != nil {
			v = violation("vote", err, "投票目標 %d", target)
		} else if voter == target {
			v = violation("vote", ErrIllegalTarget, "玩家 %d 不可投給自己", voter)
		}
		if v != nil {
			if err := g.handleViolation(v); err != nil {
				return nil, err
			}
			continue
		}
		valid[voter] = target
	}
	return valid, nil
}
