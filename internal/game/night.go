package game

// NightOutcome 描述一夜結算的結果
type NightOutcome struct {
	Round    int          `json:"round"`
	Deaths   []int        `json:"deaths"`
	Saved    *int         `json:"saved,omitempty"`
	Poisoned *int         `json:"poisoned,omitempty"`
	Checked  *int         `json:"checked,omitempty"`
	Verdict  *SeerVerdict `json:"-"`
}

// Peaceful 回傳是否為平安夜
func (o NightOutcome) Peaceful() bool {
	return len(o.Deaths) == 0
}

// WitchEligibility 依狼人擊殺結果計算女巫能否用藥；女巫已死亡時皆不可用
func (g *Game) WitchEligibility(kill *int) (canSave bool, canPoison bool) {
	witch := g.registry.FirstAlive(RoleWitch)
	if witch == nil {
		return false, false
	}
	return witch.HasAntidote && kill != nil, witch.HasPoison
}

// ResolveNight 將一夜的行動合併為死亡名單並套用
//
// 解藥只會抵銷相同目標的擊殺；毒藥獨立生效，一夜可能有零到兩人死亡。
// 所有檢查在任何修改之前完成，因此除錯模式下回傳錯誤時狀態不變。
func (g *Game) ResolveNight(in NightActions) (NightOutcome, error) {
	actions, err := g.validateNight(in)
	if err != nil {
		return NightOutcome{}, err
	}
	g.Night = actions
	outcome := NightOutcome{Round: g.Round}

	if actions.SeerCheck != nil {
		seer := g.registry.FirstAlive(RoleSeer)
		target := g.registry.players[*actions.SeerCheck]
		verdict := target.role.Verdict()
		g.seerResults[target.ID] = verdict
		g.record(ActionCheck, seer.ID, actions.SeerCheck)
		outcome.Checked = intPtr(target.ID)
		outcome.Verdict = &verdict
	}

	if witch := g.registry.FirstAlive(RoleWitch); witch != nil {
		if actions.WitchSave != nil {
			witch.HasAntidote = false
			witch.UsedAntidoteRound = intPtr(g.Round)
			g.record(ActionSave, witch.ID, actions.WitchSave)
			outcome.Saved = intPtr(*actions.WitchSave)
		}
		if actions.WitchPoison != nil {
			witch.HasPoison = false
			witch.UsedPoisonRound = intPtr(g.Round)
			g.record(ActionPoison, witch.ID, actions.WitchPoison)
			outcome.Poisoned = intPtr(*actions.WitchPoison)
		}
	}

	deathSet := make([]int, 0, 2)
	if actions.WerewolfKill != nil && !sameTarget(actions.WerewolfKill, actions.WitchSave) {
		deathSet = append(deathSet, *actions.WerewolfKill)
	}
	if actions.WitchPoison != nil {
		deathSet = append(deathSet, *actions.WitchPoison)
	}
	for _, id := range deathSet {
		killed, err := g.killPlayer(id)
		if err != nil {
			// 已驗證過的目標不應失敗
			if verr := g.handleViolation(violation("night", err, "")); verr != nil {
				return outcome, verr
			}
			continue
		}
		if killed {
			outcome.Deaths = append(outcome.Deaths, id)
		}
	}

	g.lastDeaths = append([]int(nil), outcome.Deaths...)
	g.observer.Observe(Event{Kind: EventNightResolved, Round: g.Round, Phase: g.Phase, Night: &outcome})
	return outcome, nil
}

// validateNight 檢查夜晚行動；正式模式下會丟棄違規的欄位
func (g *Game) validateNight(in NightActions) (NightActions, error) {
	out := NightActions{}
	var violations []*InvariantViolation

	if in.WerewolfKill != nil {
		if v := g.checkWerewolfKill(*in.WerewolfKill); v != nil {
			violations = append(violations, v)
		} else {
			out.WerewolfKill = intPtr(*in.WerewolfKill)
		}
	}

	if in.SeerCheck != nil {
		if v := g.checkSeerCheck(*in.SeerCheck); v != nil {
			violations = append(violations, v)
		} else {
			out.SeerCheck = intPtr(*in.SeerCheck)
		}
	}

	canSave, canPoison := g.WitchEligibility(out.WerewolfKill)
	if in.WitchSave != nil {
		switch {
		case !sameTarget(in.WitchSave, in.WerewolfKill) || out.WerewolfKill == nil:
			violations = append(violations, violation("witch_save", ErrSaveMismatch, "解藥目標 %d", *in.WitchSave))
		case !canSave:
			violations = append(violations, violation("witch_save", ErrPotionUsed, "解藥"))
		default:
			out.WitchSave = intPtr(*in.WitchSave)
		}
	}

	if in.WitchPoison != nil {
		if !canPoison {
			violations = append(violations, violation("witch_poison", ErrPotionUsed, "毒藥"))
		} else if _, err := g.registry.Living(*in.WitchPoison); err != nil {
			violations = append(violations, violation("witch_poison", err, ""))
		} else {
			out.WitchPoison = intPtr(*in.WitchPoison)
		}
	}

	if in.HunterShoot != nil {
		violations = append(violations, violation("hunter_shoot", ErrIllegalTarget, "獵人僅在被投票放逐時開槍"))
	}

	for _, v := range violations {
		if err := g.handleViolation(v); err != nil {
			return NightActions{}, err
		}
	}
	return out, nil
}

func (g *Game) checkWerewolfKill(target int) *InvariantViolation {
	if g.registry.FirstAlive(RoleWerewolf) == nil {
		return violation("werewolf_kill", ErrIllegalTarget, "沒有存活的狼人")
	}
	p, err := g.registry.Living(target)
	if err != nil {
		return violation("werewolf_kill", err, "")
	}
	if p.IsWerewolf() {
		return violation("werewolf_kill", ErrIllegalTarget, "狼人不可擊殺隊友 %d", target)
	}
	return nil
}

func (g *Game) checkSeerCheck(target int) *InvariantViolation {
	seer := g.registry.FirstAlive(RoleSeer)
	if seer == nil {
		return violation("seer_check", ErrIllegalTarget, "沒有存活的預言家")
	}
	if _, err := g.registry.Living(target); err != nil {
		return violation("seer_check", err, "")
	}
	if target == seer.ID {
		return violation("seer_check", ErrIllegalTarget, "預言家不可查驗自己")
	}
	return nil
}
