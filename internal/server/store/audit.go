package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"werewolf/internal/game"
)

// GameRecord 為一局對戰的摘要列
type GameRecord struct {
	ID           string     `json:"id"`
	Seed         int64      `json:"seed"`
	Distribution string     `json:"distribution"`
	Strict       bool       `json:"strict"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	Winner       string     `json:"winner,omitempty"`
	Rounds       int        `json:"rounds"`
}

// Recorder 回傳把引擎事件寫入稽核表的觀察者
//
// 寫入失敗只記錄日誌，不會中斷對局。
func (s *Store) Recorder(gameID string, logger zerolog.Logger) game.Observer {
	log := logger.With().Str("component", "recorder").Str("game", gameID).Logger()
	return game.ObserverFunc(func(ev game.Event) {
		var err error
		switch ev.Kind {
		case game.EventGameStarted:
			err = s.insertGame(gameID, ev.Game)
		case game.EventAction:
			if ev.Record != nil {
				err = s.appendAction(gameID, *ev.Record)
			}
		case game.EventSpeech:
			if ev.Speech != nil {
				err = s.appendSpeech(gameID, *ev.Speech)
			}
		case game.EventGameOver:
			err = s.finishGame(gameID, ev.Round, ev.Winner)
		}
		if err != nil {
			log.Error().Err(err).Str("event", string(ev.Kind)).Msg("寫入稽核紀錄失敗")
		}
	})
}

func (s *Store) insertGame(gameID string, g *game.Game) error {
	if g == nil {
		return fmt.Errorf("game_started 事件缺少對局")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("開始交易失敗: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO games(id, seed, distribution, strict, started_at) VALUES(?, ?, ?, ?, ?)`,
		gameID, g.Seed, g.Summary().Distribution, g.Strict(), time.Now().UTC()); err != nil {
		return fmt.Errorf("寫入對局失敗: %w", err)
	}
	for _, p := range g.Players() {
		if _, err := tx.Exec(`INSERT INTO game_players(game_id, player_id, name, role, external) VALUES(?, ?, ?, ?, ?)`,
			gameID, p.ID, p.Name, p.Role().String(), p.External); err != nil {
			return fmt.Errorf("寫入玩家 %d 失敗: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) appendAction(gameID string, rec game.ActionRecord) error {
	var target sql.NullInt64
	if rec.TargetID != nil {
		target = sql.NullInt64{Int64: int64(*rec.TargetID), Valid: true}
	}
	_, err := s.db.Exec(`INSERT INTO actions(game_id, round, phase, action, actor_id, target_id, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		gameID, rec.Round, rec.Phase.String(), rec.Type.String(), rec.ActorID, target, rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("寫入行動失敗: %w", err)
	}
	return nil
}

func (s *Store) appendSpeech(gameID string, sp game.Speech) error {
	_, err := s.db.Exec(`INSERT INTO speeches(game_id, round, player_id, text, created_at) VALUES(?, ?, ?, ?, ?)`,
		gameID, sp.Round, sp.PlayerID, sp.Text, sp.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("寫入發言失敗: %w", err)
	}
	return nil
}

func (s *Store) finishGame(gameID string, round int, winner *game.Camp) error {
	var w sql.NullString
	if winner != nil {
		w = sql.NullString{String: winner.String(), Valid: true}
	}
	_, err := s.db.Exec(`UPDATE games SET ended_at = ?, winner = ?, rounds = ? WHERE id = ?`, time.Now().UTC(), w, round, gameID)
	if err != nil {
		return fmt.Errorf("更新對局結果失敗: %w", err)
	}
	return nil
}

// History 依寫入順序讀回一局的行動紀錄
func (s *Store) History(gameID string) ([]game.HistoryEntry, error) {
	rows, err := s.db.Query(`SELECT round, phase, action, actor_id, target_id, created_at FROM actions WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("查詢行動紀錄失敗: %w", err)
	}
	defer rows.Close()

	out := []game.HistoryEntry{}
	for rows.Next() {
		var (
			entry  game.HistoryEntry
			phase  string
			action string
			target sql.NullInt64
		)
		if err := rows.Scan(&entry.Round, &phase, &action, &entry.ActorID, &target, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("讀取行動紀錄失敗: %w", err)
		}
		if entry.Phase, err = game.ParsePhase(phase); err != nil {
			return nil, err
		}
		if entry.Action, err = game.ParseActionType(action); err != nil {
			return nil, err
		}
		if target.Valid {
			id := int(target.Int64)
			entry.TargetID = &id
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Speeches 依寫入順序讀回一局的發言
func (s *Store) Speeches(gameID string) ([]game.Speech, error) {
	rows, err := s.db.Query(`SELECT round, player_id, text, created_at FROM speeches WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("查詢發言失敗: %w", err)
	}
	defer rows.Close()

	out := []game.Speech{}
	for rows.Next() {
		var sp game.Speech
		if err := rows.Scan(&sp.Round, &sp.PlayerID, &sp.Text, &sp.Timestamp); err != nil {
			return nil, fmt.Errorf("讀取發言失敗: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// Games 回傳最近的對局，最新的在前
func (s *Store) Games(limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, seed, distribution, strict, started_at, ended_at, winner, rounds FROM games ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢對局失敗: %w", err)
	}
	defer rows.Close()

	out := []GameRecord{}
	for rows.Next() {
		var (
			rec    GameRecord
			ended  sql.NullTime
			winner sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Seed, &rec.Distribution, &rec.Strict, &rec.StartedAt, &ended, &winner, &rec.Rounds); err != nil {
			return nil, fmt.Errorf("讀取對局失敗: %w", err)
		}
		if ended.Valid {
			t := ended.Time
			rec.EndedAt = &t
		}
		rec.Winner = winner.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
