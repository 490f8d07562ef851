package actor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"werewolf/internal/ai"
	"werewolf/internal/game"
)

var errNoID = errors.New("模型回覆中沒有玩家編號")

var idPattern = regexp.MustCompile(`-?\d+`)

// rolePrompts 為各身份的系統提示詞
var rolePrompts = map[game.Role]string{
	game.RoleWerewolf: "你是狼人陣營的成員。目標是隱藏身份、誤導好人並保護狼隊友。絕不暴露身份，也不要攻擊隊友。",
	game.RoleVillager: "你是普通村民，沒有特殊能力。仔細分析每個人的發言與投票，找出狼人。",
	game.RoleSeer:     "你是預言家，每晚可以查驗一名玩家的陣營。善用查驗結果帶領好人投票，但要小心被狼人針對。",
	game.RoleWitch:    "你是女巫，有一瓶解藥和一瓶毒藥，各只能用一次。謹慎判斷何時救人、何時下毒。",
	game.RoleHunter:   "你是獵人，被投票放逐時可以開槍帶走一名玩家。發言時保持威懾力。",
}

const basePrompt = "你正在玩一場高水準的狼人殺。發言要符合身份，長度適中（30 到 80 字），要有說服力。"

// LLM 以語言模型做決策；解析失敗時回傳錯誤，由引擎改用隨機選擇
type LLM struct {
	provider ai.Provider
	cfg      ai.Config
	log      zerolog.Logger
}

func NewLLM(provider ai.Provider, cfg ai.Config, logger zerolog.Logger) *LLM {
	return &LLM{provider: provider, cfg: cfg, log: logger.With().Str("component", "llm").Logger()}
}

func (l *LLM) systemPrompt(role game.Role) string {
	if l.cfg.SystemPrompt != "" {
		return l.cfg.SystemPrompt + "\n" + rolePrompts[role]
	}
	return basePrompt + "\n" + rolePrompts[role]
}

func (l *LLM) ask(ctx context.Context, v game.View, prompt string) (string, error) {
	model := l.cfg.ModelFor(v.SelfRole.String())
	reply, err := l.provider.CompleteWithSystem(ctx, model, l.systemPrompt(v.SelfRole), prompt)
	if err != nil {
		return "", err
	}
	l.log.Debug().Int("player", v.Self.ID).Str("model", model).Str("reply", reply).Msg("模型回覆")
	return reply, nil
}

func (l *LLM) askID(ctx context.Context, v game.View, task string) (int, error) {
	prompt := describe(v) + "\n" + task + "\n可選目標：" + formatIDs(v, v.Candidates) + "\n請只回覆目標玩家的數字編號，不要其他內容。"
	reply, err := l.ask(ctx, v, prompt)
	if err != nil {
		return 0, err
	}
	return ParseID(reply)
}

func (l *LLM) ChooseWerewolfKill(ctx context.Context, v game.View) (*int, error) {
	id, err := l.askID(ctx, v, "作為狼人，選擇今晚要擊殺的目標。優先擊殺神職，絕對不要攻擊隊友。")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (l *LLM) ChooseSeerCheck(ctx context.Context, v game.View) (int, error) {
	return l.askID(ctx, v, "作為預言家，選擇今晚要查驗的玩家。優先查驗發言可疑且尚未查驗的人。")
}

func (l *LLM) ChooseVote(ctx context.Context, v game.View) (int, error) {
	return l.askID(ctx, v, "現在是投票階段，選擇你要放逐的玩家。")
}

func (l *LLM) ChooseHunterShot(ctx context.Context, v game.View) (int, error) {
	return l.askID(ctx, v, "你被放逐了，作為獵人你可以開槍帶走一名玩家。選擇你最懷疑的人。")
}

// ChooseWitchAction 分兩題詢問：是否救人、毒誰（回覆 -1 表示不下毒）
func (l *LLM) ChooseWitchAction(ctx context.Context, v game.View, p game.WitchPrompt) (game.WitchAction, error) {
	var action game.WitchAction
	if p.CanSave && p.Kill != nil {
		prompt := describe(v) + fmt.Sprintf("\n今晚 %s 被狼人擊殺。你要使用解藥救他嗎？請只回覆「是」或「否」。", v.NameOf(*p.Kill))
		reply, err := l.ask(ctx, v, prompt)
		if err != nil {
			return action, err
		}
		action.Save = ParseConsent(reply)
	}
	if p.CanPoison {
		prompt := describe(v) + "\n你要使用毒藥嗎？可選目標：" + formatIDs(v, p.PoisonCandidates) +
			"\n請只回覆目標的數字編號，不使用請回覆 -1。"
		reply, err := l.ask(ctx, v, prompt)
		if err != nil {
			return action, err
		}
		id, err := ParseID(reply)
		if err != nil {
			return action, err
		}
		if id >= 0 {
			action.Poison = &id
		}
	}
	return action, nil
}

// ProduceSpeech 失敗時改用身份的預設台詞
func (l *LLM) ProduceSpeech(ctx context.Context, v game.View) (string, error) {
	prompt := describe(v) + "\n請根據你的身份與目前局勢發表一段有策略的發言（30 到 80 字），只說發言內容。"
	reply, err := l.ask(ctx, v, prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		l.log.Warn().Err(err).Int("player", v.Self.ID).Msg("發言生成失敗，使用預設台詞")
		return fallbackLines[v.SelfRole][0], nil
	}
	return strings.TrimSpace(reply), nil
}

// ParseConsent 判斷回覆是否同意；先檢查否定詞，無法判斷時視為拒絕
func ParseConsent(reply string) bool {
	r := strings.ToLower(strings.TrimSpace(reply))
	r = strings.TrimLeft(r, "「『\"' ")
	for _, neg := range []string{"否", "不", "别", "別", "no", "don't", "do not"} {
		if strings.HasPrefix(r, neg) {
			return false
		}
	}
	for _, neg := range []string{"不是", "不要", "不用", "不救", "不使用", "否"} {
		if strings.Contains(r, neg) {
			return false
		}
	}
	if strings.HasPrefix(r, "y") {
		return true
	}
	for _, yes := range []string{"是", "要", "救", "好", "yes"} {
		if strings.Contains(r, yes) {
			return true
		}
	}
	return false
}

// ParseID 取出回覆中的第一個整數
func ParseID(reply string) (int, error) {
	m := idPattern.FindString(reply)
	if m == "" {
		return 0, fmt.Errorf("%w: %q", errNoID, reply)
	}
	return strconv.Atoi(m)
}

// describe 將視角整理為提示詞
func describe(v game.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "你是 %s（編號 %d），身份是%s。現在是第 %d 回合的%s。\n", v.Self.Name, v.Self.ID, v.SelfRole.Label(), v.Round, v.Phase.Label())
	b.WriteString("存活玩家：")
	for i, s := range v.Alive {
		if i > 0 {
			b.WriteString("、")
		}
		fmt.Fprintf(&b, "%d.%s", s.ID, s.Name)
	}
	b.WriteString("\n")
	if len(v.Dead) > 0 {
		b.WriteString("已死亡：")
		for i, s := range v.Dead {
			if i > 0 {
				b.WriteString("、")
			}
			fmt.Fprintf(&b, "%d.%s", s.ID, s.Name)
			if s.Role != nil {
				fmt.Fprintf(&b, "(%s)", s.Role.Label())
			}
		}
		b.WriteString("\n")
	}
	if len(v.Teammates) > 0 {
		fmt.Fprintf(&b, "你的狼人隊友：%s\n", formatIDs(v, v.Teammates))
	}
	if len(v.SeerResults) > 0 {
		b.WriteString("你的查驗結果：")
		first := true
		for _, s := range append(append([]game.SeatInfo(nil), v.Alive...), v.Dead...) {
			verdict, ok := v.SeerResults[s.ID]
			if !ok {
				continue
			}
			if !first {
				b.WriteString("、")
			}
			first = false
			label := "好人"
			if verdict == game.VerdictWerewolf {
				label = "狼人"
			}
			fmt.Fprintf(&b, "%s是%s", s.Name, label)
		}
		b.WriteString("\n")
	}
	if len(v.NightDeaths) > 0 {
		fmt.Fprintf(&b, "昨晚死亡：%s\n", formatIDs(v, v.NightDeaths))
	}
	for _, s := range v.Speeches {
		fmt.Fprintf(&b, "%s 說：%s\n", v.NameOf(s.PlayerID), s.Text)
	}
	return b.String()
}

func formatIDs(v game.View, ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d.%s", id, v.NameOf(id)))
	}
	return strings.Join(parts, "、")
}
