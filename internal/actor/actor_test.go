package actor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"werewolf/internal/ai"
	"werewolf/internal/game"
)

func testView(role game.Role, candidates []int) game.View {
	v := game.View{
		Round:      1,
		Phase:      game.PhaseDay,
		Self:       game.SeatInfo{ID: 0, Name: "玩家0", Alive: true},
		SelfRole:   role,
		Candidates: candidates,
	}
	for i := 0; i < 5; i++ {
		v.Alive = append(v.Alive, game.SeatInfo{ID: i, Name: "玩家" + string(rune('0'+i)), Alive: true})
	}
	return v
}

func TestBotVoteAvoidsTeammates(t *testing.T) {
	b := NewBot(1)
	v := testView(game.RoleWerewolf, []int{1, 2, 3, 4})
	v.Teammates = []int{1, 2}
	for i := 0; i < 50; i++ {
		id, err := b.ChooseVote(context.Background(), v)
		if err != nil {
			t.Fatalf("投票錯誤：%v", err)
		}
		if id == 1 || id == 2 {
			t.Fatalf("狼人不應投給隊友，實際 %d", id)
		}
	}
}

func TestBotSeerVotesKnownWerewolf(t *testing.T) {
	b := NewBot(2)
	v := testView(game.RoleSeer, []int{1, 2, 3, 4})
	v.SeerResults = map[int]game.SeerVerdict{3: game.VerdictWerewolf, 1: game.VerdictGood}
	for i := 0; i < 20; i++ {
		if id, _ := b.ChooseVote(context.Background(), v); id != 3 {
			t.Fatalf("預言家應投給查到的狼人，實際 %d", id)
		}
	}
	if id, _ := b.ChooseSeerCheck(context.Background(), v); id == 1 || id == 3 {
		t.Fatalf("預言家應優先查驗未查過的玩家，實際 %d", id)
	}
	speech, _ := b.ProduceSpeech(context.Background(), v)
	if !strings.Contains(speech, "玩家3") {
		t.Fatalf("預言家發言應指出狼人，實際 %q", speech)
	}
}

func TestBotWerewolfTargetsClaimedRoles(t *testing.T) {
	b := NewBot(3)
	v := testView(game.RoleWerewolf, []int{2, 3, 4})
	v.Speeches = []game.Speech{{PlayerID: 4, Text: "我是預言家，昨晚查驗了 2 號"}}
	for i := 0; i < 20; i++ {
		target, err := b.ChooseWerewolfKill(context.Background(), v)
		if err != nil || target == nil || *target != 4 {
			t.Fatalf("狼人應優先擊殺自稱預言家的玩家，實際 %v", target)
		}
	}
}

func TestBotWitchSavesFirstNight(t *testing.T) {
	b := NewBot(4)
	v := testView(game.RoleWitch, nil)
	kill := 2
	action, err := b.ChooseWitchAction(context.Background(), v, game.WitchPrompt{Kill: &kill, CanSave: true})
	if err != nil || !action.Save {
		t.Fatalf("第一夜應救人，實際 %+v %v", action, err)
	}
}

func TestBotDelayRespectsContext(t *testing.T) {
	b := NewBot(5)
	b.Delay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.ChooseVote(ctx, testView(game.RoleVillager, []int{1})); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ctx 到期應回傳錯誤，實際 %v", err)
	}
}

// fakeProvider 依序回傳預設的回覆
type fakeProvider struct {
	replies []string
	err     error
	prompts []string
	models  []string
}

func (f *fakeProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, model, "", prompt)
}

func (f *fakeProvider) CompleteWithSystem(_ context.Context, model, _ string, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

var _ ai.Provider = (*fakeProvider)(nil)

func TestParseID(t *testing.T) {
	cases := map[string]int{"3": 3, "我選擇 7 號": 7, "-1": -1, "玩家12，理由是…": 12}
	for reply, want := range cases {
		got, err := ParseID(reply)
		if err != nil || got != want {
			t.Fatalf("%q 應解析為 %d，實際 %d %v", reply, want, got, err)
		}
	}
	if _, err := ParseID("我不知道"); !errors.Is(err, errNoID) {
		t.Fatalf("沒有數字應回傳 errNoID，實際 %v", err)
	}
}

func TestLLMUsesRoleModel(t *testing.T) {
	fp := &fakeProvider{replies: []string{"我選 3"}}
	cfg := ai.Config{DefaultModel: "base", RoleModels: map[string]string{"werewolf": "wolf"}}
	l := NewLLM(fp, cfg, zerolog.Nop())
	v := testView(game.RoleWerewolf, []int{2, 3})
	v.Teammates = []int{1}
	target, err := l.ChooseWerewolfKill(context.Background(), v)
	if err != nil || target == nil || *target != 3 {
		t.Fatalf("應解析出目標 3，實際 %v %v", target, err)
	}
	if fp.models[0] != "wolf" {
		t.Fatalf("狼人應使用專屬模型，實際 %s", fp.models[0])
	}
	if !strings.Contains(fp.prompts[0], "狼人隊友") {
		t.Fatalf("提示詞應包含隊友資訊")
	}
}

func TestLLMWitch(t *testing.T) {
	fp := &fakeProvider{replies: []string{"是", "-1"}}
	l := NewLLM(fp, ai.Config{DefaultModel: "m"}, zerolog.Nop())
	kill := 2
	action, err := l.ChooseWitchAction(context.Background(), testView(game.RoleWitch, nil),
		game.WitchPrompt{Kill: &kill, CanSave: true, CanPoison: true, PoisonCandidates: []int{1, 2, 3}})
	if err != nil {
		t.Fatalf("女巫決策錯誤：%v", err)
	}
	if !action.Save || action.Poison != nil {
		t.Fatalf("應救人且不下毒，實際 %+v", action)
	}
}

func TestParseConsent(t *testing.T) {
	cases := []struct {
		reply string
		want  bool
	}{
		{"是", true},
		{"是的，救他", true},
		{"「是」", true},
		{"要救", true},
		{"Yes", true},
		{"否", false},
		{"不是", false},
		{"不，不是時候", false},
		{"我覺得不要救", false},
		{"No, wait", false},
		{"我不確定", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ParseConsent(c.reply); got != c.want {
			t.Fatalf("%q 應判斷為 %v，實際 %v", c.reply, c.want, got)
		}
	}
}

func TestLLMWitchRefusals(t *testing.T) {
	kill := 2
	prompt := game.WitchPrompt{Kill: &kill, CanSave: true}
	for _, reply := range []string{"否", "不是", "不，不是時候"} {
		fp := &fakeProvider{replies: []string{reply}}
		l := NewLLM(fp, ai.Config{DefaultModel: "m"}, zerolog.Nop())
		action, err := l.ChooseWitchAction(context.Background(), testView(game.RoleWitch, nil), prompt)
		if err != nil {
			t.Fatalf("女巫決策錯誤：%v", err)
		}
		if action.Save {
			t.Fatalf("回覆 %q 不應使用解藥", reply)
		}
	}
}

func TestLLMSpeechFallback(t *testing.T) {
	fp := &fakeProvider{err: errors.New("服務無回應")}
	l := NewLLM(fp, ai.Config{DefaultModel: "m"}, zerolog.Nop())
	speech, err := l.ProduceSpeech(context.Background(), testView(game.RoleHunter, nil))
	if err != nil || speech != fallbackLines[game.RoleHunter][0] {
		t.Fatalf("失敗時應使用預設台詞，實際 %q %v", speech, err)
	}
	if _, err := l.ChooseVote(context.Background(), testView(game.RoleHunter, []int{1})); err == nil {
		t.Fatalf("投票失敗應回傳錯誤")
	}
}

func TestConsoleRetriesInvalidInput(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("abc\n9\n2\n"), &out)
	id, err := c.ChooseVote(context.Background(), testView(game.RoleVillager, []int{1, 2}))
	if err != nil || id != 2 {
		t.Fatalf("應在重試後得到 2，實際 %d %v", id, err)
	}
	if strings.Count(out.String(), "輸入無效") != 2 {
		t.Fatalf("無效輸入應提示兩次，輸出：%s", out.String())
	}
}

func TestConsoleWitchAndEOF(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("y\n\n"), &out)
	kill := 1
	action, err := c.ChooseWitchAction(context.Background(), testView(game.RoleWitch, nil),
		game.WitchPrompt{Kill: &kill, CanSave: true, CanPoison: true, PoisonCandidates: []int{1, 2}})
	if err != nil || !action.Save || action.Poison != nil {
		t.Fatalf("應救人且不下毒，實際 %+v %v", action, err)
	}
	if _, err := c.ProduceSpeech(context.Background(), testView(game.RoleWitch, nil)); err == nil {
		t.Fatalf("輸入結束後應回傳錯誤")
	}
}
