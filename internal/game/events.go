package game

// EventKind 為引擎對外發布的事件種類
type EventKind string

const (
	EventGameStarted   EventKind = "game_started"
	EventPhaseStarted  EventKind = "phase_started"
	EventAction        EventKind = "action"
	EventSpeech        EventKind = "speech"
	EventNightResolved EventKind = "night_resolved"
	EventVoteResolved  EventKind = "vote_resolved"
	EventGameOver      EventKind = "game_over"
)

// Event 描述一次狀態變化；觀察者不得修改遊戲
type Event struct {
	Kind   EventKind
	Round  int
	Phase  Phase
	Record *ActionRecord
	Speech *Speech
	Night  *NightOutcome
	Vote   *VoteOutcome
	Winner *Camp
	// Game 僅於 game_started 與 game_over 時附帶
	Game *Game
}

// Observer 接收引擎事件
type Observer interface {
	Observe(Event)
}

// ObserverFunc 讓一般函式實作 Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// MultiObserver 依序將事件轉交給多個觀察者
type MultiObserver []Observer

func (m MultiObserver) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
