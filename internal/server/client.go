package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client 封裝一條 WebSocket 連線；未登入者只能觀戰
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	table     *Table
	account   string
	userID    int64
	send      chan []byte
	closeOnce sync.Once
	log       zerolog.Logger
}

// NewWebClient 建立客戶端；userID 為 0 表示匿名觀戰者
func NewWebClient(conn *websocket.Conn, table *Table, userID int64, account string) *Client {
	c := &Client{
		conn:    conn,
		hub:     table.hub,
		table:   table,
		account: strings.TrimSpace(account),
		userID:  userID,
		send:    make(chan []byte, 256),
	}
	c.log = table.log.With().Str("account", c.account).Logger()
	return c
}

// Start 註冊客戶端並啟動讀寫迴圈
func (c *Client) Start() {
	c.hub.Register(c)
	c.sendMessage(ServerMessage{Type: "welcome", Payload: WelcomePayload{
		TableID:   c.table.ID(),
		Status:    c.table.Status(),
		Account:   c.account,
		UserID:    c.userID,
		Spectator: c.userID == 0,
	}})
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("讀取訊息異常")
			}
			break
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError(err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug().Err(err).Msg("寫入訊息失敗")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case "claim_seat":
		if c.userID == 0 {
			c.reject("請先登入才能接管座位")
			return
		}
		var payload ClaimSeatPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				c.sendError(err)
				return
			}
		}
		if err := c.table.ClaimSeat(c, payload.Token); err != nil {
			c.sendError(err)
		}
	case "release_seat":
		c.table.ReleaseSeat(c)
	case "decision":
		var payload DecisionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError(err)
			return
		}
		if payload.RequestID == "" {
			c.reject("缺少 requestId")
			return
		}
		if err := c.table.Deliver(c, payload); err != nil {
			c.sendError(err)
		}
	default:
		c.reject(fmt.Sprintf("未知指令 %q", msg.Type))
	}
}

func (c *Client) sendError(err error) {
	if err == nil {
		return
	}
	c.sendMessage(ServerMessage{Type: "error", Payload: ErrorPayload{Message: err.Error()}})
}

// reject 回覆一則拒絕訊息
func (c *Client) reject(msg string) {
	c.sendMessage(ServerMessage{Type: "error", Payload: ErrorPayload{Message: msg}})
}

func (c *Client) sendMessage(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.sendRaw(data)
}

// sendRaw 非阻塞寫入；緩衝已滿時視為斷線
func (c *Client) sendRaw(data []byte) {
	defer func() {
		// send 已關閉
		_ = recover()
	}()
	select {
	case c.send <- data:
	default:
		go c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c)
		c.table.onClientLeft(c)
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
