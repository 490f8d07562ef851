package game

import "fmt"

// Registry 持有所有玩家與存活/死亡分區
//
// alive 與 dead 互斥，聯集恆為全部玩家；玩家一旦死亡不會復活。
type Registry struct {
	players []*Player
	alive   []int
	dead    []int
}

// NewRegistry 以已建立的玩家建立名冊，所有玩家皆為存活
func NewRegistry(players []*Player) (*Registry, error) {
	r := &Registry{
		players: make([]*Player, len(players)),
		alive:   make([]int, 0, len(players)),
	}
	for i, p := range players {
		if p == nil || p.ID != i {
			return nil, &ConfigError{Reason: fmt.Sprintf("玩家編號必須自 0 起連續，位置 %d 不符", i)}
		}
		p.alive = true
		r.players[i] = p
		r.alive = append(r.alive, p.ID)
	}
	return r, nil
}

// Len 回傳玩家總數
func (r *Registry) Len() int {
	return len(r.players)
}

// Players 回傳全部玩家（依編號排序）
func (r *Registry) Players() []*Player {
	out := make([]*Player, len(r.players))
	copy(out, r.players)
	return out
}

// Lookup 根據編號取得玩家，不論生死
func (r *Registry) Lookup(id int) (*Player, error) {
	if id < 0 || id >= len(r.players) {
		return nil, fmt.Errorf("%w: 編號 %d", ErrUnknownPlayer, id)
	}
	return r.players[id], nil
}

// Living 根據編號取得存活玩家
func (r *Registry) Living(id int) (*Player, error) {
	p, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !p.alive {
		return nil, fmt.Errorf("%w: %s", ErrDeadPlayer, p.Name)
	}
	return p, nil
}

// Alive 回傳存活玩家
func (r *Registry) Alive() []*Player {
	out := make([]*Player, 0, len(r.alive))
	for _, id := range r.alive {
		out = append(out, r.players[id])
	}
	return out
}

// AliveIDs 回傳存活玩家編號
func (r *Registry) AliveIDs() []int {
	out := make([]int, len(r.alive))
	copy(out, r.alive)
	return out
}

// DeadIDs 回傳死亡玩家編號，依死亡順序
func (r *Registry) DeadIDs() []int {
	out := make([]int, len(r.dead))
	copy(out, r.dead)
	return out
}

// CountAlive 統計存活的狼人與好人數量
func (r *Registry) CountAlive() (werewolves int, good int) {
	for _, id := range r.alive {
		if r.players[id].IsWerewolf() {
			werewolves++
		} else {
			good++
		}
	}
	return
}

// FirstAlive 回傳第一位存活的指定身份玩家
func (r *Registry) FirstAlive(role Role) *Player {
	for _, id := range r.alive {
		if p := r.players[id]; p.role == role {
			return p
		}
	}
	return nil
}

func (r *Registry) aliveIDsWhere(keep func(*Player) bool) []int {
	out := make([]int, 0, len(r.alive))
	for _, id := range r.alive {
		if keep(r.players[id]) {
			out = append(out, id)
		}
	}
	return out
}

// kill 將玩家移入死亡區；已死亡時回傳 false 且不做任何事
func (r *Registry) kill(id int) (bool, error) {
	p, err := r.Lookup(id)
	if err != nil {
		return false, err
	}
	if !p.alive {
		return false, nil
	}
	idx := -1
	for i, aid := range r.alive {
		if aid == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, fmt.Errorf("%w: 玩家 %d 不在存活名單", ErrUnknownPlayer, id)
	}
	p.alive = false
	r.alive = append(r.alive[:idx], r.alive[idx+1:]...)
	r.dead = append(r.dead, id)
	return true, nil
}
