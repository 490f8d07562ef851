package game

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultPlayerCount 為標準九人局
const DefaultPlayerCount = 9

// Distribution 描述每種身份的人數
type Distribution map[Role]int

// DefaultDistribution 回傳三狼、預言家、女巫、獵人、三村民的配置
func DefaultDistribution() Distribution {
	return Distribution{
		RoleWerewolf: 3,
		RoleSeer:     1,
		RoleWitch:    1,
		RoleHunter:   1,
		RoleVillager: 3,
	}
}

// Total 回傳配置總人數
func (d Distribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

func (d Distribution) String() string {
	parts := make([]string, 0, len(d))
	for _, r := range Roles() {
		if n := d[r]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", r, n))
		}
	}
	return strings.Join(parts, ",")
}

// ParseDistribution 解析 "werewolf=3,seer=1" 形式的設定
func ParseDistribution(s string) (Distribution, error) {
	d := Distribution{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, count, ok := strings.Cut(part, "=")
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("身份配置 %q 缺少 '='", part)}
		}
		role, err := ParseRole(strings.TrimSpace(name))
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("身份 %s 的人數 %q 無效", role, count)}
		}
		d[role] += n
	}
	if d.Total() == 0 {
		return nil, &ConfigError{Reason: "身份配置為空"}
	}
	return d, nil
}

// CreatePlayers 建立 n 名編號連續的玩家；若非全員外部控制，隨機挑選一人由外部控制
func CreatePlayers(n int, allExternal bool, rng *rand.Rand) ([]*Player, *int) {
	var externalID *int
	if !allExternal && n > 0 {
		externalID = intPtr(rng.Intn(n))
	}
	players := make([]*Player, n)
	for i := 0; i < n; i++ {
		players[i] = &Player{
			ID:          i,
			Name:        fmt.Sprintf("玩家%d", i),
			External:    allExternal || (externalID != nil && *externalID == i),
			HasAntidote: true,
			HasPoison:   true,
		}
	}
	return players, externalID
}

// AssignRoles 依配置洗牌後按位置分配身份；分配只能進行一次
func AssignRoles(players []*Player, dist Distribution, rng *rand.Rand) ([]*Player, error) {
	if dist.Total() != len(players) {
		return nil, &ConfigError{Reason: fmt.Sprintf("身份總數 %d 與玩家人數 %d 不符", dist.Total(), len(players))}
	}
	deck := buildRoleDeck(dist)
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	if err := AssignFixedRoles(players, deck); err != nil {
		return nil, err
	}
	return players, nil
}

// AssignFixedRoles 依給定順序分配身份，用於重播或腳本化開局
func AssignFixedRoles(players []*Player, roles []Role) error {
	if len(roles) != len(players) {
		return &ConfigError{Reason: fmt.Sprintf("身份數 %d 與玩家人數 %d 不符", len(roles), len(players))}
	}
	for i, p := range players {
		if p.assigned {
			return &ConfigError{Reason: fmt.Sprintf("玩家 %s 已分配身份", p.Name)}
		}
		if roles[i] < 0 || roles[i] >= roleCount {
			return &ConfigError{Reason: fmt.Sprintf("位置 %d 的身份無效", i)}
		}
	}
	for i, p := range players {
		p.role = roles[i]
		p.assigned = true
	}
	return nil
}

func buildRoleDeck(dist Distribution) []Role {
	deck := make([]Role, 0, dist.Total())
	for _, r := range Roles() {
		for i := 0; i < dist[r]; i++ {
			deck = append(deck, r)
		}
	}
	return deck
}

// Setup 為開局參數
type Setup struct {
	Players      int
	Distribution Distribution
	// Roles 非空時依序指定身份，忽略 Distribution 的洗牌
	Roles []Role
	// AllExternal 為 true 時全部玩家由外部控制（觀戰模式）
	AllExternal bool
	Seed        int64
	// Strict 為 true 時狀態約定被違反會中止遊戲；否則記錄後略過
	Strict bool
	Logger *zerolog.Logger
	Clock  func() time.Time
}

// NewGame 建立玩家、分配身份並初始化第一夜
func NewGame(s Setup) (*Game, error) {
	if s.Players == 0 {
		s.Players = DefaultPlayerCount
	}
	if s.Players < 0 {
		return nil, &ConfigError{Reason: "玩家人數必須為正數"}
	}
	if s.Distribution == nil && len(s.Roles) == 0 {
		s.Distribution = DefaultDistribution()
	}
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	logger := zerolog.Nop()
	if s.Logger != nil {
		logger = *s.Logger
	}

	rng := rand.New(rand.NewSource(s.Seed))
	players, externalID := CreatePlayers(s.Players, s.AllExternal, rng)

	var err error
	if len(s.Roles) > 0 {
		err = AssignFixedRoles(players, s.Roles)
	} else {
		_, err = AssignRoles(players, s.Distribution, rng)
	}
	if err != nil {
		return nil, err
	}

	registry, err := NewRegistry(players)
	if err != nil {
		return nil, err
	}

	g := &Game{
		ID:          uuid.NewString(),
		Round:       1,
		Phase:       PhaseNight,
		Seed:        s.Seed,
		ExternalID:  externalID,
		registry:    registry,
		seerResults: make(map[int]SeerVerdict),
		rng:         rng,
		clock:       s.Clock,
		strict:      s.Strict,
		log:         logger.With().Str("component", "game").Logger(),
		observer:    nopObserver{},
	}
	return g, nil
}
