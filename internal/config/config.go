package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"werewolf/internal/ai"
	"werewolf/internal/game"
)

// Config 為執行檔共用的設定，由環境變數載入後再以命令列參數覆寫
type Config struct {
	Addr    string `env:"WEREWOLF_ADDR" envDefault:":8080"`
	WebDir  string `env:"WEREWOLF_WEB_DIR" envDefault:"web"`
	DataDir string `env:"WEREWOLF_DATA_DIR" envDefault:"data"`

	Players         int           `env:"WEREWOLF_PLAYERS" envDefault:"9"`
	Roles           string        `env:"WEREWOLF_ROLES" envDefault:"werewolf=3,seer=1,witch=1,hunter=1,villager=3"`
	DecisionTimeout time.Duration `env:"WEREWOLF_DECISION_TIMEOUT" envDefault:"30s"`
	Strict          bool          `env:"WEREWOLF_STRICT" envDefault:"false"`
	Spectator       bool          `env:"WEREWOLF_SPECTATOR" envDefault:"false"`
	Seed            int64         `env:"WEREWOLF_SEED" envDefault:"0"`
	LogLevel        string        `env:"WEREWOLF_LOG_LEVEL" envDefault:"info"`

	AI AIConfig
}

// AIConfig 為語言模型玩家的設定
type AIConfig struct {
	Provider      string `env:"AI_PROVIDER" envDefault:"none"`
	Model         string `env:"AI_MODEL" envDefault:"Qwen/Qwen3-8B"`
	ModelWerewolf string `env:"AI_MODEL_WEREWOLF"`
	ModelVillager string `env:"AI_MODEL_VILLAGER"`
	ModelSeer     string `env:"AI_MODEL_SEER"`
	ModelWitch    string `env:"AI_MODEL_WITCH"`
	ModelHunter   string `env:"AI_MODEL_HUNTER"`
	SystemPrompt  string `env:"AI_SYSTEM_PROMPT"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OllamaHost    string `env:"OLLAMA_HOST"`
}

// Load 從環境變數載入設定
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv 將環境變數解析進 target
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Distribution 解析身份配置並檢查人數
func (c Config) Distribution() (game.Distribution, error) {
	dist, err := game.ParseDistribution(c.Roles)
	if err != nil {
		return nil, err
	}
	if dist.Total() != c.Players {
		return nil, &game.ConfigError{Reason: fmt.Sprintf("身份總數 %d 與玩家人數 %d 不符", dist.Total(), c.Players)}
	}
	return dist, nil
}

// Setup 組出開局參數
func (c Config) Setup(logger zerolog.Logger) (game.Setup, error) {
	dist, err := c.Distribution()
	if err != nil {
		return game.Setup{}, err
	}
	return game.Setup{
		Players:      c.Players,
		Distribution: dist,
		AllExternal:  c.Spectator,
		Seed:         c.Seed,
		Strict:       c.Strict,
		Logger:       &logger,
	}, nil
}

// AIProviderConfig 轉為語言模型服務的設定
func (c Config) AIProviderConfig() ai.Config {
	roleModels := map[string]string{}
	for role, model := range map[string]string{
		"werewolf": c.AI.ModelWerewolf,
		"villager": c.AI.ModelVillager,
		"seer":     c.AI.ModelSeer,
		"witch":    c.AI.ModelWitch,
		"hunter":   c.AI.ModelHunter,
	} {
		if model != "" {
			roleModels[role] = model
		}
	}
	return ai.Config{
		Provider:      c.AI.Provider,
		DefaultModel:  c.AI.Model,
		RoleModels:    roleModels,
		SystemPrompt:  c.AI.SystemPrompt,
		OpenAIKey:     c.AI.OpenAIKey,
		OpenAIBaseURL: c.AI.OpenAIBaseURL,
		OllamaHost:    c.AI.OllamaHost,
	}
}

// NewLogger 建立人類可讀的主控台日誌
func NewLogger(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// Exitf 輸出錯誤訊息後以代碼 1 結束
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
