package llm

import (
	"Leadnest/internal/api/config"
	log "log/slog"
	"os"

	"github.com/tmc/langchaingo/llms"
)

// InitClient 初始化 OpenAI 兼容客户端，主备模型共用同一 endpoint
func InitClient() (llms.Model, error) {
	cfg := config.Cfg.LLM

	client, err := NewProviderClient(cfg.ApiKey, cfg.URL)
	if err != nil {
		log.Error("AI大模型初始化失败", "err", err)
		return nil, err
	}

	return client, nil
}

// ReadPrompt 从 prompt txt 文件中读取 prompt
func ReadPrompt(file string) string {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Error("读取prompt文件失败", "file", file, "err", err)
		return ""
	}
	return string(data)
}
