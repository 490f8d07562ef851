package game

// roleSpec 描述一種身份的固定規則
type roleSpec struct {
	name    string
	label   string
	camp    Camp
	verdict SeerVerdict

	// ability 為該身份能力的決策種類；村民沒有能力
	ability DecisionKind
	// targets 回傳能力的合法目標
	targets func(r *Registry, self *Player) []int
	// retaliatesOnVote 被投票放逐時可帶走一人；夜晚死亡不觸發
	retaliatesOnVote bool
}

var roleTable = [roleCount]roleSpec{
	RoleWerewolf: {
		name:    "werewolf",
		label:   "狼人",
		camp:    CampWerewolf,
		verdict: VerdictWerewolf,
		ability: DecisionKill,
		targets: func(r *Registry, _ *Player) []int {
			return r.aliveIDsWhere(func(p *Player) bool { return !p.IsWerewolf() })
		},
	},
	RoleVillager: {
		name:    "villager",
		label:   "村民",
		camp:    CampVillager,
		verdict: VerdictGood,
		ability: DecisionNone,
		targets: func(*Registry, *Player) []int { return nil },
	},
	RoleSeer: {
		name:    "seer",
		label:   "預言家",
		camp:    CampVillager,
		verdict: VerdictGood,
		ability: DecisionCheck,
		targets: othersAlive,
	},
	RoleWitch: {
		name:    "witch",
		label:   "女巫",
		camp:    CampVillager,
		verdict: VerdictGood,
		ability: DecisionWitch,
		targets: othersAlive,
	},
	RoleHunter: {
		name:             "hunter",
		label:            "獵人",
		camp:             CampVillager,
		verdict:          VerdictGood,
		ability:          DecisionShot,
		targets:          othersAlive,
		retaliatesOnVote: true,
	},
}

func othersAlive(r *Registry, self *Player) []int {
	return r.aliveIDsWhere(func(p *Player) bool { return self == nil || p.ID != self.ID })
}

// Ability 回傳身份能力的決策種類
func (r Role) Ability() DecisionKind {
	if r < 0 || r >= roleCount {
		return DecisionNone
	}
	return roleTable[r].ability
}

// Verdict 回傳預言家查驗此身份時看到的結果
func (r Role) Verdict() SeerVerdict {
	if r < 0 || r >= roleCount {
		return VerdictGood
	}
	return roleTable[r].verdict
}

// RetaliatesOnVote 回傳被放逐時是否觸發開槍
func (r Role) RetaliatesOnVote() bool {
	if r < 0 || r >= roleCount {
		return false
	}
	return roleTable[r].retaliatesOnVote
}

// AbilityTargets 回傳 self 以自身能力可選擇的目標
func (g *Game) AbilityTargets(self *Player) []int {
	if self == nil || self.role < 0 || self.role >= roleCount {
		return nil
	}
	return roleTable[self.role].targets(g.registry, self)
}
