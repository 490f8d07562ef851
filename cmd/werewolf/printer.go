package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"werewolf/internal/game"
)

// printer 把引擎事件以旁白形式輸出到終端機
type printer struct {
	out io.Writer
	g   *game.Game
}

func (p *printer) name(id int) string {
	if pl, err := p.g.Player(id); err == nil {
		return pl.Name
	}
	return fmt.Sprintf("玩家%d", id)
}

func (p *printer) Observe(ev game.Event) {
	switch ev.Kind {
	case game.EventPhaseStarted:
		fmt.Fprintf(p.out, "\n==== 第 %d 回合・%s ====\n", ev.Round, ev.Phase.Label())
	case game.EventSpeech:
		fmt.Fprintf(p.out, "%s：%s\n", p.name(ev.Speech.PlayerID), ev.Speech.Text)
	case game.EventNightResolved:
		if ev.Night.Peaceful() {
			fmt.Fprintln(p.out, "天亮了，昨晚是平安夜。")
			return
		}
		fmt.Fprintf(p.out, "天亮了，昨晚死亡的是：%s\n", p.names(ev.Night.Deaths))
	case game.EventVoteResolved:
		p.printVote(ev.Vote)
	case game.EventGameOver:
		if ev.Winner != nil {
			fmt.Fprintf(p.out, "\n遊戲結束，%s勝利！\n", ev.Winner.Label())
		}
	}
}

func (p *printer) printVote(v *game.VoteOutcome) {
	voters := make([]int, 0, len(v.Votes))
	for voter := range v.Votes {
		voters = append(voters, voter)
	}
	sort.Ints(voters)
	for _, voter := range voters {
		fmt.Fprintf(p.out, "  %s → %s\n", p.name(voter), p.name(v.Votes[voter]))
	}
	switch {
	case v.Eliminated == nil && v.Tie:
		fmt.Fprintf(p.out, "%s 平票，無人出局。\n", p.names(v.Leaders))
	case v.Eliminated == nil:
		fmt.Fprintln(p.out, "沒有有效票，無人出局。")
	default:
		fmt.Fprintf(p.out, "%s 以 %d 票被放逐。\n", p.name(*v.Eliminated), v.MaxVotes)
	}
	if v.HunterShot != nil {
		fmt.Fprintf(p.out, "獵人開槍帶走了 %s！\n", p.name(*v.HunterShot))
	}
}

func (p *printer) names(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, p.name(id))
	}
	return strings.Join(parts, "、")
}

// reveal 公布所有人的身份
func reveal(out io.Writer, g *game.Game) {
	roles := g.RevealRoles()
	fmt.Fprintln(out, "\n身份公布：")
	for _, pl := range g.Players() {
		status := "存活"
		if !pl.Alive() {
			status = "死亡"
		}
		fmt.Fprintf(out, "  %d. %s（%s）%s\n", pl.ID, pl.Name, roles[pl.ID].Label(), status)
	}
}
