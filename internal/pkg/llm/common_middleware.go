package llm

import (
	"Leadnest/internal/api/config"
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tmc/langchaingo/llms/openai"
)

// CommonMiddleware 通用中间件：根据 API 路径自动补全厂商私有参数
type CommonMiddleware struct {
	Base http.RoundTripper
}

func (m *CommonMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil || len(body) == 0 {
		return m.Base.RoundTrip(req)
	}

	var data map[string]interface{}
	if err = json.Unmarshal(body, &data); err != nil {
		req.Body = io.NopCloser(bytes.NewBuffer(body))
		return m.Base.RoundTrip(req)
	}

	path := req.URL.Path
	modified := false

	cfg := config.Cfg.LLM

	// 对话回合对延迟敏感，统一关闭/固定思考模式
	if strings.Contains(path, "chat/completions") && cfg.ThinkingMode != "" {
		data["thinking"] = map[string]interface{}{
			"type": cfg.ThinkingMode,
		}
		modified = true
	}

	if modified {
		newBody, _ := json.Marshal(data)
		req.Body = io.NopCloser(bytes.NewBuffer(newBody))
		req.ContentLength = int64(len(newBody))
	} else {
		req.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	return m.Base.RoundTrip(req)
}

// NewProviderClient 创建注入了参数中间件的客户端
func NewProviderClient(apiKey string, baseURL string) (*openai.LLM, error) {
	return openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithHTTPClient(&http.Client{
			Transport: &CommonMiddleware{Base: http.DefaultTransport},
		}),
	)
}
