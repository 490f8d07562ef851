package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists     = errors.New("帳號已存在")
	ErrBadCredentials = errors.New("帳號或密碼錯誤")
	ErrSessionInvalid = errors.New("會話無效或已過期")
)

// SessionTTL 為登入會話的有效期
const SessionTTL = 7 * 24 * time.Hour

const minPasswordLen = 6

// Account 為可以接管遠端座位的玩家帳號
type Account struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Created  time.Time `json:"createdAt"`
}

// Login 為成功登入後的帳號與會話 token
type Login struct {
	Account *Account
	Token   string
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("帳號不可為空")
	}
	if len(username) > 24 {
		return "", fmt.Errorf("帳號長度不可超過 24 字元")
	}
	return username, nil
}

// Register 建立帳號並直接登入
func (s *Store) Register(username, password string) (*Login, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("密碼長度至少 %d 碼", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("加密密碼失敗: %w", err)
	}

	created := time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO users(username, password_hash, created_at) VALUES(?, ?, ?)`, username, string(hash), created)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("建立帳號失敗: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("取得帳號 ID 失敗: %w", err)
	}
	s.log.Info().Int64("account", id).Str("username", username).Msg("建立帳號")
	return s.openSession(&Account{ID: id, Username: username, Created: created}, SessionTTL)
}

// Login 驗證密碼並開啟新會話
func (s *Store) Login(username, password string) (*Login, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	var (
		acc  = Account{Username: username}
		hash string
	)
	err = s.db.QueryRow(`SELECT id, password_hash, created_at FROM users WHERE username = ?`, username).
		Scan(&acc.ID, &hash, &acc.Created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrBadCredentials
	case err != nil:
		return nil, fmt.Errorf("查詢帳號失敗: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return s.openSession(&acc, SessionTTL)
}

func (s *Store) openSession(acc *Account, ttl time.Duration) (*Login, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("生成 token 失敗: %w", err)
	}
	token := hex.EncodeToString(buf)
	now := time.Now().UTC()
	if _, err := s.db.Exec(`INSERT INTO sessions(token, user_id, created_at, expires_at) VALUES(?, ?, ?, ?)`,
		token, acc.ID, now, now.Add(ttl)); err != nil {
		return nil, fmt.Errorf("建立會話失敗: %w", err)
	}
	return &Login{Account: acc, Token: token}, nil
}

// Session 以 token 找回帳號；過期或不存在時回傳 ErrSessionInvalid
func (s *Store) Session(token string) (*Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionInvalid
	}
	var acc Account
	err := s.db.QueryRow(`SELECT u.id, u.username, u.created_at FROM sessions s JOIN users u ON u.id = s.user_id
WHERE s.token = ? AND s.expires_at > ?`, token, time.Now().UTC()).Scan(&acc.ID, &acc.Username, &acc.Created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrSessionInvalid
	case err != nil:
		return nil, fmt.Errorf("查詢會話失敗: %w", err)
	}
	return &acc, nil
}

// PruneSessions 刪除過期會話，回傳刪除筆數
func (s *Store) PruneSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("清理過期會話失敗: %w", err)
	}
	return res.RowsAffected()
}

// RecordSeatClaim 記錄帳號在某局接管了哪個座位
func (s *Store) RecordSeatClaim(gameID string, playerID int, accountID int64) error {
	_, err := s.db.Exec(`INSERT INTO seat_claims(game_id, player_id, user_id, claimed_at) VALUES(?, ?, ?, ?)`,
		gameID, playerID, accountID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("記錄座位接管失敗: %w", err)
	}
	return nil
}

// SeatClaim 為一次座位接管紀錄
type SeatClaim struct {
	PlayerID  int       `json:"playerId"`
	Username  string    `json:"username"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// SeatClaims 依時間順序列出一局的座位接管紀錄
func (s *Store) SeatClaims(gameID string) ([]SeatClaim, error) {
	rows, err := s.db.Query(`SELECT c.player_id, u.username, c.claimed_at FROM seat_claims c JOIN users u ON u.id = c.user_id
WHERE c.game_id = ? ORDER BY c.seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("查詢座位接管失敗: %w", err)
	}
	defer rows.Close()

	out := []SeatClaim{}
	for rows.Next() {
		var c SeatClaim
		if err := rows.Scan(&c.PlayerID, &c.Username, &c.ClaimedAt); err != nil {
			return nil, fmt.Errorf("讀取座位接管失敗: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
