package service

import (
	"Leadnest/internal/api/dto"
	"Leadnest/internal/pkg/bant"
	"Leadnest/internal/pkg/consts"
	"Leadnest/internal/pkg/intent"
	"Leadnest/internal/pkg/llm"
	"Leadnest/internal/pkg/mongo"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tmc/langchaingo/llms"
)

// bantQuestions 按固定优先级提问的模板，命中即省掉一次回复生成调用
var bantQuestions = map[string]string{
	"budget":    "请问您这次购房的预算大概是多少？",
	"authority": "请问购房决策是您本人确定，还是需要和家人/合伙人商量？",
	"need":      "请问您购房主要是自住、投资还是商业用途？",
	"timeline":  "请问您计划多久之内完成购房？",
}

const (
	// ReplyQualified 四项采集齐全后的收尾话术
	ReplyQualified = "感谢您提供的信息，我们已经了解您的购房需求，置业顾问会尽快与您联系。"
	// ReplyClarify 模型不可用或输出为空时的兜底澄清话术，绝不让会话挂掉
	ReplyClarify = "抱歉，我暂时没能准确理解您的意思，方便再具体描述一下您的购房需求吗？"
)

// TurnService 回合编排器：意图识别 → (资质意图时) BANT提取 → 回复生成，
// 全链路携带同一份元数据包供计量归因
type TurnService interface {
	HandleTurn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error)
}

type TurnServiceImpl struct {
	classifier  intent.Classifier
	extractor   bant.Extractor
	gateway     llm.Gateway
	stateStore  BANTStateStore
	locker      ConversationLocker
	notifier    LeadNotifier
	msgRepo     mongo.TurnMessageRepo
	replyPrompt string
}

func NewTurnService(
	classifier intent.Classifier,
	extractor bant.Extractor,
	gateway llm.Gateway,
	stateStore BANTStateStore,
	locker ConversationLocker,
	notifier LeadNotifier,
	msgRepo mongo.TurnMessageRepo,
	replyPrompt string,
) TurnService {
	return &TurnServiceImpl{
		classifier:  classifier,
		extractor:   extractor,
		gateway:     gateway,
		stateStore:  stateStore,
		locker:      locker,
		notifier:    notifier,
		msgRepo:     msgRepo,
		replyPrompt: replyPrompt,
	}
}

func (s *TurnServiceImpl) HandleTurn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	meta := llm.CallMeta{
		OrganizationID: req.OrganizationID,
		AgentID:        req.AgentID,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Endpoint:       consts.TurnEndpoint,
	}

	intentRes := s.classifier.Classify(ctx, req.Message, meta)

	var state bant.State
	var err error
	if intentRes.Label == intent.LabelBANT {
		state, err = s.qualify(ctx, req, meta)
		if err != nil {
			return nil, err
		}
	} else {
		state, err = s.stateStore.Load(ctx, req.ConversationID)
		if err != nil {
			// 读态失败不阻断回合，按空状态展示
			log.ErrorContext(ctx, "BANT状态读取失败", "conversation_id", req.ConversationID, "err", err)
			state = bant.State{}
		}
	}

	replyText, err := s.buildReply(ctx, req, intentRes, state, meta)
	if err != nil {
		// 主备全挂时把已识别的意图和已累积的状态一并带出，接入层降级话术时照实回显
		if errors.Is(err, llm.ErrModelTransient) {
			resp, rerr := buildTurnResponse(intentRes, state, "")
			if rerr != nil {
				return nil, rerr
			}
			return resp, err
		}
		return nil, err
	}

	s.archiveAsync(ctx, req, intentRes, replyText)

	return buildTurnResponse(intentRes, state, replyText)
}

func buildTurnResponse(intentRes *intent.Result, state bant.State, replyText string) (*dto.TurnResponse, error) {
	resp := &dto.TurnResponse{
		Intent: dto.IntentDTO{
			Label:      string(intentRes.Label),
			Confidence: intentRes.Confidence,
			Source:     intentRes.Source,
		},
		ReplyText: replyText,
	}
	if err := copier.Copy(&resp.BantState, &state); err != nil {
		return nil, err
	}
	return resp, nil
}

// qualify 在会话锁内完成 读取 → 提取 → 落盘，保证同会话单写者
func (s *TurnServiceImpl) qualify(ctx context.Context, req *dto.TurnRequest, meta llm.CallMeta) (bant.State, error) {
	token, ok, err := s.locker.TryLock(ctx, req.ConversationID)
	if err != nil {
		return bant.State{}, err
	}
	if !ok {
		return bant.State{}, ErrConversationBusy
	}
	defer s.locker.Unlock(ctx, req.ConversationID, token)

	prior, err := s.stateStore.Load(ctx, req.ConversationID)
	if err != nil {
		return bant.State{}, err
	}

	next := s.extractor.Extract(ctx, req.ConversationID, req.MessageID, req.Message, prior, meta)

	// 一个字段都没采到就不写库，资质闲聊不产生空状态
	if !next.IsEmpty() {
		if err = s.stateStore.Save(ctx, req.ConversationID, next); err != nil {
			// 落盘失败降级为下一轮重新采集
			log.ErrorContext(ctx, "BANT状态写入失败", "conversation_id", req.ConversationID, "err", err)
		}
	}

	if next.Completed && !prior.Completed {
		s.notifyAsync(ctx, req, next)
	}
	return next, nil
}

func (s *TurnServiceImpl) buildReply(ctx context.Context, req *dto.TurnRequest, intentRes *intent.Result, state bant.State, meta llm.CallMeta) (string, error) {
	if intentRes.Label == intent.LabelBANT {
		if field := state.NextMissingField(); field != "" {
			return bantQuestions[field], nil
		}
		return ReplyQualified, nil
	}

	meta.Operation = consts.OpReplyGenerate
	res, err := s.gateway.Invoke(ctx, &llm.Invocation{
		Messages:    s.buildReplyMessages(ctx, req),
		Temperature: 0.7,
		Meta:        meta,
	})
	if err != nil {
		// 主备模型全挂才会走到这里，由接入层决定降级话术
		return "", err
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return ReplyClarify, nil
	}
	return text, nil
}

func (s *TurnServiceImpl) buildReplyMessages(ctx context.Context, req *dto.TurnRequest) []llms.MessageContent {
	prior := req.PriorMessages
	// 客户端没带历史时从归档里补最近几条，回复不至于失忆
	if len(prior) == 0 && s.msgRepo != nil {
		history, err := s.msgRepo.GetHistory(ctx, req.ConversationID, 10)
		if err != nil {
			log.WarnContext(ctx, "会话历史读取失败，按无历史生成回复", "conversation_id", req.ConversationID, "err", err)
		}
		for _, h := range history {
			prior = append(prior, dto.TurnMessage{Role: h.Role, Content: h.Content})
		}
	}

	msgs := make([]llms.MessageContent, 0, len(prior)+2)
	msgs = append(msgs, llms.MessageContent{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextPart(s.replyPrompt)},
	})

	for _, m := range prior {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case "assistant":
			role = llms.ChatMessageTypeAI
		case "system":
			role = llms.ChatMessageTypeSystem
		}
		msgs = append(msgs, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	msgs = append(msgs, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Message)},
	})
	return msgs
}

// notifyAsync 合格线索推送不占用回合主链路，请求被取消也照常送达
func (s *TurnServiceImpl) notifyAsync(ctx context.Context, req *dto.TurnRequest, state bant.State) {
	if s.notifier == nil {
		return
	}
	nctx := context.WithoutCancel(ctx)
	lead := &QualifiedLead{
		ConversationID: req.ConversationID,
		OrganizationID: req.OrganizationID,
		AgentID:        req.AgentID,
		UserID:         req.UserID,
		Budget:         derefField(state.Budget),
		Authority:      derefField(state.Authority),
		Need:           derefField(state.Need),
		Timeline:       derefField(state.Timeline),
		QualifiedAt:    time.Now(),
	}
	go func() {
		if err := s.notifier.NotifyQualified(nctx, lead); err != nil {
			log.ErrorContext(nctx, "合格线索推送失败", "conversation_id", lead.ConversationID, "err", err)
		}
	}()
}

// archiveAsync 会话消息归档，仅供外部协作方回放，不在关键路径上
func (s *TurnServiceImpl) archiveAsync(ctx context.Context, req *dto.TurnRequest, intentRes *intent.Result, reply string) {
	if s.msgRepo == nil {
		return
	}
	actx := context.WithoutCancel(ctx)
	now := time.Now()
	msgs := []*mongo.TurnMessage{
		{
			ID:             req.MessageID,
			ConversationID: req.ConversationID,
			OrganizationID: req.OrganizationID,
			Role:           "user",
			Content:        req.Message,
			Intent:         string(intentRes.Label),
			CreatedAt:      now,
		},
		{
			ID:             uuid.NewString(),
			ConversationID: req.ConversationID,
			OrganizationID: req.OrganizationID,
			Role:           "assistant",
			Content:        reply,
			CreatedAt:      now,
		},
	}
	go func() {
		if err := s.msgRepo.SaveMessages(actx, msgs); err != nil {
			log.ErrorContext(actx, "会话消息归档失败", "conversation_id", req.ConversationID, "err", err)
		}
	}()
}

func derefField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
