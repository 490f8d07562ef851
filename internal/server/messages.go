package server

import (
	"encoding/json"

	"werewolf/internal/game"
)

// ClientMessage 定義 WebSocket 客戶端發送的通用訊息格式
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// 客戶端請求
type ClaimSeatPayload struct {
	Token string `json:"token,omitempty"`
}

// DecisionPayload 回覆一次提示；依提示種類使用不同欄位
type DecisionPayload struct {
	RequestID string `json:"requestId"`
	Target    *int   `json:"target,omitempty"`
	Save      bool   `json:"save,omitempty"`
	Poison    *int   `json:"poison,omitempty"`
	Text      string `json:"text,omitempty"`
}

// ServerMessage 是伺服器端對外推送的通用訊息格式
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WelcomePayload struct {
	TableID   string `json:"tableId"`
	Status    string `json:"status"`
	Account   string `json:"account,omitempty"`
	UserID    int64  `json:"userId,omitempty"`
	Spectator bool   `json:"spectator"`
}

type SeatGrantedPayload struct {
	PlayerID int    `json:"playerId"`
	Token    string `json:"token"`
}

// SeatPublicSnapshot 描述座位由誰操作
type SeatPublicSnapshot struct {
	PlayerID  int    `json:"playerId"`
	Name      string `json:"name"`
	Remote    bool   `json:"remote"`
	Connected bool   `json:"connected"`
}

type PublicStatePayload struct {
	TableID  string               `json:"tableId"`
	Status   string               `json:"status"`
	Seats    []SeatPublicSnapshot `json:"seats"`
	Snapshot *game.PublicSnapshot `json:"snapshot,omitempty"`
}

type PrivateStatePayload struct {
	Snapshot game.PrivatePlayerSnapshot `json:"snapshot"`
}

// PromptPayload 要求遠端座位做出一次決策
type PromptPayload struct {
	RequestID string            `json:"requestId"`
	Decision  string            `json:"decision"`
	View      game.View         `json:"view"`
	Witch     *game.WitchPrompt `json:"witch,omitempty"`
	Deadline  int64             `json:"deadline,omitempty"`
}

// EventPayload 為轉發給觀戰者的引擎事件
type EventPayload struct {
	Kind   game.EventKind     `json:"kind"`
	Round  int                `json:"round"`
	Phase  game.Phase         `json:"phase"`
	Record *game.ActionRecord `json:"record,omitempty"`
	Speech *game.Speech       `json:"speech,omitempty"`
	Deaths []int              `json:"deaths,omitempty"`
	Votes  map[int]int        `json:"votes,omitempty"`
	Winner *game.Camp         `json:"winner,omitempty"`
}

type GameOverPayload struct {
	GameID string            `json:"gameId"`
	Winner game.Camp         `json:"winner"`
	Roles  map[int]game.Role `json:"roles"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
