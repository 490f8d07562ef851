package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store 保存遠端座位的帳號與只追加的對局稽核紀錄
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

func New(dbPath string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db 路徑不可為空")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("建立資料目錄失敗: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫失敗: %w", err)
	}
	// 引擎與 HTTP 請求共用同一個連線，避免 database is locked
	db.SetMaxOpenConns(1)

	store := &Store{db: db, log: logger.With().Str("component", "store").Logger()}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  created_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS games (
  id TEXT PRIMARY KEY,
  seed INTEGER NOT NULL,
  distribution TEXT NOT NULL,
  strict INTEGER NOT NULL,
  started_at DATETIME NOT NULL,
  ended_at DATETIME,
  winner TEXT,
  rounds INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS game_players (
  game_id TEXT NOT NULL,
  player_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  role TEXT NOT NULL,
  external INTEGER NOT NULL,
  PRIMARY KEY(game_id, player_id),
  FOREIGN KEY(game_id) REFERENCES games(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS actions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  game_id TEXT NOT NULL,
  round INTEGER NOT NULL,
  phase TEXT NOT NULL,
  action TEXT NOT NULL,
  actor_id INTEGER NOT NULL,
  target_id INTEGER,
  created_at DATETIME NOT NULL,
  FOREIGN KEY(game_id) REFERENCES games(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_actions_game ON actions(game_id, seq);
CREATE TABLE IF NOT EXISTS speeches (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  game_id TEXT NOT NULL,
  round INTEGER NOT NULL,
  player_id INTEGER NOT NULL,
  text TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  FOREIGN KEY(game_id) REFERENCES games(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_speeches_game ON speeches(game_id, seq);
CREATE TABLE IF NOT EXISTS seat_claims (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  game_id TEXT NOT NULL,
  player_id INTEGER NOT NULL,
  user_id INTEGER NOT NULL,
  claimed_at DATETIME NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("初始化資料表失敗: %w", err)
	}
	return nil
}
