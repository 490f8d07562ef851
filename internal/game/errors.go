package game

import (
	"errors"
	"fmt"
)

var (
	// ErrGameOver 表示遊戲已分出勝負
	ErrGameOver = errors.New("遊戲已結束")

	ErrUnknownPlayer = errors.New("找不到玩家")
	ErrDeadPlayer    = errors.New("玩家已死亡")
	ErrSaveMismatch  = errors.New("解藥目標與當晚狼人擊殺目標不符")
	ErrPotionUsed    = errors.New("藥水已使用或不可用")
	ErrIllegalTarget = errors.New("非法目標")

	ErrDecisionTimeout = errors.New("決策逾時")
	ErrInvalidChoice   = errors.New("決策無效")
)

// ConfigError 表示開局設定錯誤，於第一回合前中止遊戲
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "設定錯誤: " + e.Reason
}

// ActorError 表示外部決策來源失敗；一律在本地以隨機合法選擇替代
type ActorError struct {
	Decision DecisionKind
	PlayerID int
	Err      error
}

func (e *ActorError) Error() string {
	return fmt.Sprintf("玩家 %d 的%s決策失敗: %v", e.PlayerID, e.Decision.Label(), e.Err)
}

func (e *ActorError) Unwrap() error {
	return e.Err
}

// InvariantViolation 表示呼叫端違反了狀態約定
type InvariantViolation struct {
	Op  string
	Err error
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("狀態約定被違反 (%s): %v", e.Op, e.Err)
}

func (e *InvariantViolation) Unwrap() error {
	return e.Err
}

func violation(op string, err error, format string, args ...any) *InvariantViolation {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}
	return &InvariantViolation{Op: op, Err: err}
}
