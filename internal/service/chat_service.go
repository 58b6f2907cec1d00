package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/chat"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Fallback texts shown instead of a generated reply
const (
	RateLimitFallback = "I've reached my rate limit. Please try again in a moment."
	SafetyFallback    = "I can't help with that request. Let's talk about electronics instead!"
	ErrorFallback     = "Sorry, I encountered an error. Please try again."
	NotConfigured     = "The assistant is not configured right now. Please browse our catalog or try again later."
)

const maxChatMessage = 2000

// ChatRequest is one user message with the conversation so far
type ChatRequest struct {
	Message string            `json:"message"`
	History []models.ChatTurn `json:"history"`
}

// ChatReply is the assistant's answer. Fallback marks canned texts.
type ChatReply struct {
	Text     string              `json:"text"`
	Actions  []models.ChatAction `json:"actions"`
	Fallback bool                `json:"fallback"`
}

// ChatService bridges the storefront assistant to a text generator
type ChatService struct {
	generator chat.Generator
	retry     chat.RetryPolicy
	catalog   ProductCatalog
	logger    *zap.Logger
}

// NewChatService creates a new chat service. A nil generator answers every message with NotConfigured.
func NewChatService(generator chat.Generator, retry chat.RetryPolicy, catalog ProductCatalog) *ChatService {
	cs := &ChatService{
		generator: generator,
		retry:     retry,
		catalog:   catalog,
		logger:    util.GetLogger(),
	}
	cs.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		util.ChatRetriesTotal.Inc()
		cs.logger.Warn("Generation rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	return cs
}

// Welcome returns the greeting shown when a chat opens
func (cs *ChatService) Welcome() ChatReply {
	return ChatReply{Text: chat.WelcomeText, Actions: chat.WelcomeActions()}
}

// Reply answers a user message. Provider failures become fallback texts, never errors.
func (cs *ChatService) Reply(ctx context.Context, req *ChatRequest) (*ChatReply, error) {
	ctx, span := util.StartSpan(ctx, "ChatService.Reply")
	defer span.End()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperr.ValidationError("message is required")
	}
	if len(message) > maxChatMessage {
		return nil, apperr.ValidationError("message is too long")
	}

	if cs.generator == nil {
		util.ChatRequestsTotal.WithLabelValues("not_configured").Inc()
		return &ChatReply{Text: NotConfigured, Actions: []models.ChatAction{}, Fallback: true}, nil
	}

	start := time.Now()
	var text string
	err := cs.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = cs.generator.Generate(ctx, message, req.History)
		return err
	})
	util.ChatLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		fallback, outcome := fallbackFor(err)
		util.ChatRequestsTotal.WithLabelValues(outcome).Inc()
		cs.logger.Warn("Chat reply fell back",
			zap.String("outcome", outcome),
			zap.Error(err))
		return &ChatReply{Text: fallback, Actions: []models.ChatAction{}, Fallback: true}, nil
	}

	util.ChatRequestsTotal.WithLabelValues("ok").Inc()
	return &ChatReply{
		Text:    text,
		Actions: chat.SuggestActions(cs.catalog.List(), message, text),
	}, nil
}

func fallbackFor(err error) (text, outcome string) {
	switch {
	case apperr.CodeOf(err) == apperr.CodeSafetyBlocked:
		return SafetyFallback, "safety_blocked"
	case apperr.CodeOf(err) == apperr.CodeQuotaExceeded:
		return RateLimitFallback, "quota_exceeded"
	case apperr.IsKind(err, apperr.RateLimited):
		return RateLimitFallback, "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorFallback, "cancelled"
	}
	return ErrorFallback, "error"
}
