package game

import "context"

// DecisionKind 表示向決策來源請求的決策種類
type DecisionKind int

const (
	DecisionNone DecisionKind = iota
	DecisionKill
	DecisionCheck
	DecisionWitch
	DecisionVote
	DecisionShot
	DecisionSpeech
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionKill:
		return "werewolf_kill"
	case DecisionCheck:
		return "seer_check"
	case DecisionWitch:
		return "witch_action"
	case DecisionVote:
		return "vote"
	case DecisionShot:
		return "hunter_shot"
	case DecisionSpeech:
		return "speech"
	default:
		return "none"
	}
}

// Label 回傳中文名稱
func (k DecisionKind) Label() string {
	switch k {
	case DecisionKill:
		return "狼人擊殺"
	case DecisionCheck:
		return "預言家查驗"
	case DecisionWitch:
		return "女巫用藥"
	case DecisionVote:
		return "投票"
	case DecisionShot:
		return "獵人開槍"
	case DecisionSpeech:
		return "發言"
	default:
		return "無"
	}
}

// Actor 為單一座位的決策來源（真人、語言模型或腳本）
//
// 每次呼叫都可能阻塞；ctx 到期後引擎不再等待結果，並以隨機合法選擇替代。
// 回傳不在 View.Candidates 內的目標同樣會被替代。
type Actor interface {
	// ChooseWerewolfKill 回傳 nil 表示放棄擊殺；在有合法目標時視為無效決策
	ChooseWerewolfKill(ctx context.Context, view View) (*int, error)
	ChooseSeerCheck(ctx context.Context, view View) (int, error)
	ChooseWitchAction(ctx context.Context, view View, prompt WitchPrompt) (WitchAction, error)
	ChooseVote(ctx context.Context, view View) (int, error)
	ChooseHunterShot(ctx context.Context, view View) (int, error)
	ProduceSpeech(ctx context.Context, view View) (string, error)
}

// Seats 將玩家編號對應到決策來源；缺少的座位由引擎的預設來源接手
type Seats map[int]Actor

// WitchPrompt 描述女巫當晚可做的選擇
type WitchPrompt struct {
	// Kill 為當晚狼人的擊殺目標，可能為 nil
	Kill             *int  `json:"kill,omitempty"`
	CanSave          bool  `json:"canSave"`
	CanPoison        bool  `json:"canPoison"`
	PoisonCandidates []int `json:"poisonCandidates"`
}

// WitchAction 為女巫的決定；Save 只能救 WitchPrompt.Kill
type WitchAction struct {
	Save   bool `json:"save"`
	Poison *int `json:"poison,omitempty"`
}

// SeatInfo 為座位的公開資訊；Role 只在死亡後或對隊友公開
type SeatInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
	Role  *Role  `json:"role,omitempty"`
}

// View 為單一座位在一次決策時可見的資訊
type View struct {
	Decision DecisionKind `json:"-"`
	Round    int          `json:"round"`
	Phase    Phase        `json:"phase"`

	Self SeatInfo `json:"self"`
	// SelfRole 永遠為座位自己的身份
	SelfRole Role `json:"selfRole"`

	Alive      []SeatInfo `json:"alive"`
	Dead       []SeatInfo `json:"dead"`
	Candidates []int      `json:"candidates"`

	// Teammates 僅狼人可見
	Teammates []int `json:"teammates,omitempty"`
	// SeerResults 僅預言家可見
	SeerResults map[int]SeerVerdict `json:"seerResults,omitempty"`

	NightDeaths []int    `json:"nightDeaths"`
	Speeches    []Speech `json:"speeches"`
}

// IsCandidate 回傳 id 是否為本次決策的合法目標
func (v View) IsCandidate(id int) bool {
	return containsID(v.Candidates, id)
}

// NameOf 依編號取得座位名稱
func (v View) NameOf(id int) string {
	for _, s := range v.Alive {
		if s.ID == id {
			return s.Name
		}
	}
	for _, s := range v.Dead {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
