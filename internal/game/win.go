package game

// Evaluate 依存活身份判定勝方，尚未分出勝負時回傳 nil
//
// 沒有狼人存活時好人獲勝；好人數不多於狼人數時狼人獲勝。
func Evaluate(players []*Player) *Camp {
	werewolves, good := 0, 0
	for _, p := range players {
		if !p.alive {
			continue
		}
		if p.IsWerewolf() {
			werewolves++
		} else {
			good++
		}
	}
	return evaluateCounts(werewolves, good)
}

func evaluateCounts(werewolves, good int) *Camp {
	var winner Camp
	switch {
	case werewolves == 0:
		winner = CampVillager
	case good <= werewolves:
		winner = CampWerewolf
	default:
		return nil
	}
	return &winner
}

// CheckWinner 判定勝方並在首次分出勝負時結束遊戲；之後的呼叫回傳相同結果且不再修改狀態
func (g *Game) CheckWinner() *Camp {
	if g.Winner != nil {
		w := *g.Winner
		return &w
	}
	winner := evaluateCounts(g.registry.CountAlive())
	if winner == nil {
		return nil
	}
	g.Winner = winner
	g.GameOver = true
	g.log.Info().Str("winner", winner.String()).Int("round", g.Round).Msg("遊戲結束")
	g.observer.Observe(Event{Kind: EventGameOver, Round: g.Round, Phase: g.Phase, Winner: winner, Game: g})
	w := *winner
	return &w
}
