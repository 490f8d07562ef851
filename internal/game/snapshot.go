package game

import "fmt"

// PublicPlayerSnapshot 用於前端展示公共資訊；身份只在死亡或遊戲結束後公開
type PublicPlayerSnapshot struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
	Role  *Role  `json:"role,omitempty"`
}

// PublicSnapshot 表示外部可見的遊戲狀態摘要
type PublicSnapshot struct {
	GameID   string                 `json:"gameId"`
	Round    int                    `json:"round"`
	Phase    Phase                  `json:"phase"`
	Players  []PublicPlayerSnapshot `json:"players"`
	Speeches []Speech               `json:"speeches"`
	Summary  Summary                `json:"summary"`
}

// PrivatePlayerSnapshot 給指定玩家查看自身詳細資訊
type PrivatePlayerSnapshot struct {
	PlayerID    int                 `json:"playerId"`
	Name        string              `json:"name"`
	Role        Role                `json:"role"`
	Camp        Camp                `json:"camp"`
	Alive       bool                `json:"alive"`
	Teammates   []int               `json:"teammates,omitempty"`
	SeerResults map[int]SeerVerdict `json:"seerResults,omitempty"`
	HasAntidote *bool               `json:"hasAntidote,omitempty"`
	HasPoison   *bool               `json:"hasPoison,omitempty"`
}

// BuildPublicSnapshot 建立對外可觀察的玩家資訊
func (g *Game) BuildPublicSnapshot() PublicSnapshot {
	players := make([]PublicPlayerSnapshot, 0, g.registry.Len())
	for _, p := range g.registry.players {
		snap := PublicPlayerSnapshot{ID: p.ID, Name: p.Name, Alive: p.alive}
		if !p.alive || g.GameOver {
			role := p.role
			snap.Role = &role
		}
		players = append(players, snap)
	}
	return PublicSnapshot{
		GameID:   g.ID,
		Round:    g.Round,
		Phase:    g.Phase,
		Players:  players,
		Speeches: g.roundSpeeches(g.Round),
		Summary:  g.Summary(),
	}
}

// BuildPrivateSnapshot 為指定玩家製作詳細資訊
func (g *Game) BuildPrivateSnapshot(playerID int) (PrivatePlayerSnapshot, error) {
	p, err := g.registry.Lookup(playerID)
	if err != nil {
		return PrivatePlayerSnapshot{}, fmt.Errorf("無法建立玩家 %d 的視角: %w", playerID, err)
	}
	snap := PrivatePlayerSnapshot{
		PlayerID: p.ID,
		Name:     p.Name,
		Role:     p.role,
		Camp:     p.Camp(),
		Alive:    p.alive,
	}
	switch p.role {
	case RoleWerewolf:
		snap.Teammates = g.teammates(p)
	case RoleSeer:
		snap.SeerResults = g.SeerResults()
	case RoleWitch:
		antidote, poison := p.HasAntidote, p.HasPoison
		snap.HasAntidote = &antidote
		snap.HasPoison = &poison
	}
	return snap, nil
}

// ViewFor 建立座位在一次決策時的視角；candidates 為本次決策的合法目標
//
// 黑夜時附上前一個白天的發言，其餘階段附上本回合的發言。
func (g *Game) ViewFor(playerID int, decision DecisionKind, candidates []int) View {
	p := g.registry.players[playerID]
	speechRound := g.Round
	if g.Phase == PhaseNight {
		speechRound--
	}
	v := View{
		Decision:    decision,
		Round:       g.Round,
		Phase:       g.Phase,
		Self:        SeatInfo{ID: p.ID, Name: p.Name, Alive: p.alive},
		SelfRole:    p.role,
		Candidates:  append([]int(nil), candidates...),
		NightDeaths: append([]int(nil), g.lastDeaths...),
		Speeches:    g.roundSpeeches(speechRound),
	}
	for _, other := range g.registry.players {
		seat := SeatInfo{ID: other.ID, Name: other.Name, Alive: other.alive}
		if !other.alive || (p.IsWerewolf() && other.IsWerewolf()) {
			role := other.role
			seat.Role = &role
		}
		if other.alive {
			v.Alive = append(v.Alive, seat)
		} else {
			v.Dead = append(v.Dead, seat)
		}
	}
	switch p.role {
	case RoleWerewolf:
		v.Teammates = g.teammates(p)
	case RoleSeer:
		v.SeerResults = g.SeerResults()
	}
	return v
}

func (g *Game) teammates(wolf *Player) []int {
	var out []int
	for _, other := range g.registry.players {
		if other.ID != wolf.ID && other.IsWerewolf() {
			out = append(out, other.ID)
		}
	}
	return out
}

func (g *Game) roundSpeeches(round int) []Speech {
	var out []Speech
	for _, s := range g.speeches {
		if s.Round == round {
			out = append(out, s)
		}
	}
	return out
}

// RevealRoles 回傳每位玩家的身份，用於遊戲結束時公布
func (g *Game) RevealRoles() map[int]Role {
	out := make(map[int]Role, g.registry.Len())
	for _, p := range g.registry.players {
		out[p.ID] = p.role
	}
	return out
}
