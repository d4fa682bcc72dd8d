package handler

import (
	"Leadnest/internal/api/dto"
	"Leadnest/internal/pkg/llm"
	"Leadnest/internal/pkg/response"
	"Leadnest/internal/service"
	"errors"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TurnHandler struct {
	turnService service.TurnService
}

func NewTurnHandler(turnService service.TurnService) *TurnHandler {
	return &TurnHandler{turnService: turnService}
}

// HandleTurn 处理一个入站会话回合
func (s *TurnHandler) HandleTurn(c *gin.Context) {
	var req dto.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	// 客户端未带消息ID时补一个，保证提取去重键始终可用
	if req.MessageID == "" {
		req.MessageID = uuid.NewString()
	}

	resp, err := s.turnService.HandleTurn(c.Request.Context(), &req)
	if err != nil {
		// 主备模型全挂时降级为通用澄清话术，不把故障抛给终端用户；
		// 意图和已累积的状态照实回显，不伪造空状态
		if errors.Is(err, llm.ErrModelTransient) && resp != nil {
			log.ErrorContext(c.Request.Context(), "回合处理-模型服务不可用，降级回复", "conversation_id", req.ConversationID, "err", err)
			resp.ReplyText = service.ReplyClarify
			response.Success(c, resp)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}
