package handler

import (
	"Leadnest/internal/api/dto"
	"Leadnest/internal/pkg/llm"
	"Leadnest/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTurnService struct {
	resp *dto.TurnResponse
	err  error
}

func (s *stubTurnService) HandleTurn(context.Context, *dto.TurnRequest) (*dto.TurnResponse, error) {
	return s.resp, s.err
}

type turnEnvelope struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    dto.TurnResponse `json:"data"`
}

func postTurn(t *testing.T, svc service.TurnService, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/agent/turn", NewTurnHandler(svc).HandleTurn)

	req := httptest.NewRequest(http.MethodPost, "/api/agent/turn", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleTurnDegradesWithAccumulatedState(t *testing.T) {
	budget := "25M"
	svc := &stubTurnService{
		resp: &dto.TurnResponse{
			Intent:    dto.IntentDTO{Label: "GeneralChat", Confidence: 0, Source: "pattern-fallback"},
			BantState: dto.BantStateDTO{Budget: &budget},
		},
		err: fmt.Errorf("回复生成: %w", llm.ErrModelTransient),
	}

	w := postTurn(t, svc, `{"conversation_id":"conv-1","message":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var env turnEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 200, env.Code)

	// 降级话术之外，意图和已累积的状态原样回显
	assert.Equal(t, service.ReplyClarify, env.Data.ReplyText)
	assert.Equal(t, "GeneralChat", env.Data.Intent.Label)
	require.NotNil(t, env.Data.BantState.Budget)
	assert.Equal(t, "25M", *env.Data.BantState.Budget)
}

func TestHandleTurnConversationBusy(t *testing.T) {
	svc := &stubTurnService{err: service.ErrConversationBusy}

	w := postTurn(t, svc, `{"conversation_id":"conv-1","message":"budget is 25M"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var env turnEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, service.TooManyRequests, env.Code)
}

func TestHandleTurnBlankMessageRejected(t *testing.T) {
	svc := &stubTurnService{resp: &dto.TurnResponse{}}

	w := postTurn(t, svc, `{"conversation_id":"conv-1","message":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)

	var env turnEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, service.BadRequest, env.Code)
}
