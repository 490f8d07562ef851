package ai

import (
	"context"
	"fmt"
	"strings"

	"werewolf/internal/ai/ollama"
	"werewolf/internal/ai/openai"
)

// Provider 為語言模型的補全介面
type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}

// Config 描述語言模型玩家使用的服務與模型
type Config struct {
	Provider     string
	DefaultModel string
	// RoleModels 以身份英文名稱為鍵，覆寫該身份使用的模型
	RoleModels    map[string]string
	SystemPrompt  string
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaHost    string
}

// ModelFor 回傳身份對應的模型，未設定時使用預設模型
func (c Config) ModelFor(role string) string {
	if m := c.RoleModels[strings.ToLower(role)]; m != "" {
		return m
	}
	return c.DefaultModel
}

// Enabled 回傳是否設定了語言模型服務
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

// NewProvider 依設定建立補全服務
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("使用 openai 需要設定 OPENAI_API_KEY")
		}
		return openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL), nil
	case "ollama":
		return ollama.New(cfg.OllamaHost), nil
	default:
		return nil, fmt.Errorf("未知的語言模型服務 %q", cfg.Provider)
	}
}
