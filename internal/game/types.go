package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// SystemActor 表示由引擎自身套用的行動（死亡、放逐）
const SystemActor = -1

// Role 表示玩家身份
type Role int

const (
	RoleWerewolf Role = iota
	RoleVillager
	RoleSeer
	RoleWitch
	RoleHunter

	roleCount
)

// Roles 依固定順序列出所有身份
func Roles() []Role {
	return []Role{RoleWerewolf, RoleVillager, RoleSeer, RoleWitch, RoleHunter}
}

func (r Role) String() string {
	if r < 0 || r >= roleCount {
		return "unknown"
	}
	return roleTable[r].name
}

// Label 回傳中文名稱
func (r Role) Label() string {
	if r < 0 || r >= roleCount {
		return "未知"
	}
	return roleTable[r].label
}

// Camp 回傳身份所屬陣營
func (r Role) Camp() Camp {
	if r < 0 || r >= roleCount {
		return CampVillager
	}
	return roleTable[r].camp
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// ParseRole 由英文名稱解析身份
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("未知的身份 %q", s)
}

// Camp 表示陣營
type Camp int

const (
	CampWerewolf Camp = iota
	CampVillager
)

func (c Camp) String() string {
	switch c {
	case CampWerewolf:
		return "werewolf"
	case CampVillager:
		return "villager"
	default:
		return "unknown"
	}
}

// Label 回傳中文名稱
func (c Camp) Label() string {
	switch c {
	case CampWerewolf:
		return "狼人陣營"
	case CampVillager:
		return "好人陣營"
	default:
		return "未知陣營"
	}
}

func (c Camp) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Phase 表示遊戲階段
type Phase int

const (
	PhaseNight Phase = iota
	PhaseDay
	PhaseVote
)

func (p Phase) String() string {
	switch p {
	case PhaseNight:
		return "night"
	case PhaseDay:
		return "day"
	case PhaseVote:
		return "vote"
	default:
		return "unknown"
	}
}

// Label 回傳中文名稱
func (p Phase) Label() string {
	switch p {
	case PhaseNight:
		return "黑夜"
	case PhaseDay:
		return "白天"
	case PhaseVote:
		return "投票"
	default:
		return "未知"
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// ParsePhase 由英文名稱解析階段
func ParsePhase(s string) (Phase, error) {
	for _, p := range []Phase{PhaseNight, PhaseDay, PhaseVote} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("未知的階段 %q", s)
}

// ActionType 描述一筆行動紀錄的種類
type ActionType int

const (
	ActionKill ActionType = iota
	ActionCheck
	ActionSave
	ActionPoison
	ActionShoot
	ActionVote
)

func (a ActionType) String() string {
	switch a {
	case ActionKill:
		return "kill"
	case ActionCheck:
		return "check"
	case ActionSave:
		return "save"
	case ActionPoison:
		return "poison"
	case ActionShoot:
		return "shoot"
	case ActionVote:
		return "vote"
	default:
		return "unknown"
	}
}

func (a ActionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// ParseActionType 由英文名稱解析行動種類
func ParseActionType(s string) (ActionType, error) {
	for a := ActionKill; a <= ActionVote; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("未知的行動 %q", s)
}

// SeerVerdict 為預言家查驗結果
type SeerVerdict int

const (
	VerdictGood SeerVerdict = iota
	VerdictWerewolf
)

func (v SeerVerdict) String() string {
	if v == VerdictWerewolf {
		return "werewolf"
	}
	return "good"
}

func (v SeerVerdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// Player 表示一名玩家
type Player struct {
	ID       int
	Name     string
	External bool

	role     Role
	assigned bool
	alive    bool

	// 女巫專用；其他身份不會消耗
	HasAntidote       bool
	HasPoison         bool
	UsedAntidoteRound *int
	UsedPoisonRound   *int
}

func (p *Player) Role() Role {
	return p.role
}

func (p *Player) Alive() bool {
	return p.alive
}

func (p *Player) Camp() Camp {
	return p.role.Camp()
}

func (p *Player) IsWerewolf() bool {
	return p.role == RoleWerewolf
}

func (p *Player) String() string {
	status := "✓"
	if !p.alive {
		status = "✗"
	}
	return fmt.Sprintf("[%d] %s %s - %s", p.ID, p.Name, status, p.role.Label())
}

// ActionRecord 為不可變的行動紀錄
type ActionRecord struct {
	Type      ActionType `json:"action"`
	ActorID   int        `json:"actorId"`
	TargetID  *int       `json:"targetId,omitempty"`
	Phase     Phase      `json:"phase"`
	Round     int        `json:"round"`
	Timestamp time.Time  `json:"timestamp"`
}

// Speech 為白天發言紀錄，僅供展示與稽核
type Speech struct {
	Round     int       `json:"round"`
	PlayerID  int       `json:"playerId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NightActions 為單一夜晚的暫存行動
type NightActions struct {
	WerewolfKill *int
	SeerCheck    *int
	WitchSave    *int
	WitchPoison  *int
	HunterShoot  *int
}

func intPtr(v int) *int {
	return &v
}

func sameTarget(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
