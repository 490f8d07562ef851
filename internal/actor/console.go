package actor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"werewolf/internal/game"
)

// Console 讓終端機前的真人操作一個座位
type Console struct {
	out   io.Writer
	lines chan string
	once  sync.Once
	in    io.Reader
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out, lines: make(chan string)}
}

// start 以單一 goroutine 讀取輸入，逾時的提問不會吃掉下一行
func (c *Console) start() {
	c.once.Do(func() {
		go func() {
			sc := bufio.NewScanner(c.in)
			for sc.Scan() {
				c.lines <- strings.TrimSpace(sc.Text())
			}
			close(c.lines)
		}()
	})
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	c.start()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// readID 重複詢問直到輸入合法編號
func (c *Console) readID(ctx context.Context, v game.View, question string, allowNone bool) (int, bool, error) {
	for {
		fmt.Fprintf(c.out, "%s\n可選：%s\n", question, formatIDs(v, v.Candidates))
		if allowNone {
			fmt.Fprint(c.out, "（直接按 Enter 表示不使用）\n")
		}
		fmt.Fprint(c.out, "> ")
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, false, err
		}
		if line == "" && allowNone {
			return 0, false, nil
		}
		id, err := strconv.Atoi(line)
		if err == nil && v.IsCandidate(id) {
			return id, true, nil
		}
		fmt.Fprintln(c.out, "輸入無效，請重新選擇。")
	}
}

func (c *Console) header(v game.View) {
	fmt.Fprintf(c.out, "\n—— 第 %d 回合 %s ——\n%s", v.Round, v.Phase.Label(), describe(v))
}

func (c *Console) ChooseWerewolfKill(ctx context.Context, v game.View) (*int, error) {
	c.header(v)
	id, _, err := c.readID(ctx, v, "請選擇今晚要擊殺的玩家：", false)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *Console) ChooseSeerCheck(ctx context.Context, v game.View) (int, error) {
	c.header(v)
	id, _, err := c.readID(ctx, v, "請選擇要查驗的玩家：", false)
	return id, err
}

func (c *Console) ChooseWitchAction(ctx context.Context, v game.View, p game.WitchPrompt) (game.WitchAction, error) {
	c.header(v)
	var action game.WitchAction
	if p.CanSave && p.Kill != nil {
		fmt.Fprintf(c.out, "今晚 %s 被擊殺，是否使用解藥？(y/n)\n> ", v.NameOf(*p.Kill))
		line, err := c.readLine(ctx)
		if err != nil {
			return action, err
		}
		action.Save = strings.HasPrefix(strings.ToLower(line), "y")
	}
	if p.CanPoison {
		pv := v
		pv.Candidates = p.PoisonCandidates
		id, ok, err := c.readID(ctx, pv, "是否使用毒藥？", true)
		if err != nil {
			return action, err
		}
		if ok {
			action.Poison = &id
		}
	}
	return action, nil
}

func (c *Console) ChooseVote(ctx context.Context, v game.View) (int, error) {
	c.header(v)
	id, _, err := c.readID(ctx, v, "請投票放逐一名玩家：", false)
	return id, err
}

func (c *Console) ChooseHunterShot(ctx context.Context, v game.View) (int, error) {
	fmt.Fprintln(c.out, "你被放逐了！作為獵人，你可以帶走一名玩家。")
	id, _, err := c.readID(ctx, v, "請選擇開槍目標：", false)
	return id, err
}

func (c *Console) ProduceSpeech(ctx context.Context, v game.View) (string, error) {
	c.header(v)
	fmt.Fprint(c.out, "輪到你發言：\n> ")
	return c.readLine(ctx)
}
