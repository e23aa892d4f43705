package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	replyTimeout   = 60 * time.Second
	writeWait      = 10 * time.Second
	emptyReplyText = "I could not find relevant GST information."
	failedReply    = "Error generating answer. Please try again."
)

// handleWebSocket 处理 /ws/chat/{chatID}：每条文本帧视为一个问题，回复一条机器人消息。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	chatID := chi.URLParam(r, "chatID")
	if _, err := h.store.ChatForUser(r.Context(), chatID, user.ID); err != nil {
		respondChatError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("chat", chatID).Msg("[fakeapi] websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("chat", chatID).Str("user", user.ID).Logger()
	logger.Info().Msg("[fakeapi] websocket connected")

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("[fakeapi] websocket read failed")
			}
			logger.Info().Msg("[fakeapi] websocket disconnected")
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		question := strings.TrimSpace(string(data))
		if question == "" {
			continue
		}

		reply := h.answer(r.Context(), chatID, user.ID, question)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			logger.Warn().Err(err).Msg("[fakeapi] websocket write failed")
			return
		}
	}
}

// answer 保存用户消息，生成并保存机器人回复。
func (h *Handler) answer(ctx context.Context, chatID, userID, question string) string {
	history, err := h.store.LoadTranscript(ctx, chatID)
	if err != nil {
		return failedReply
	}

	if _, err := h.store.SaveMessage(ctx, Message{ChatID: chatID, UserID: userID, Sender: "user", Content: question}); err != nil {
		log.Error().Err(err).Str("chat", chatID).Msg("[fakeapi] failed to save user message")
	}

	replyCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	reply, err := h.responder.Reply(replyCtx, history, question)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("chat", chatID).Msg("[fakeapi] responder failed")
		}
		reply = failedReply
	} else if strings.TrimSpace(reply) == "" {
		reply = emptyReplyText
	}

	if _, err := h.store.SaveMessage(ctx, Message{ChatID: chatID, UserID: userID, Sender: "bot", Content: reply}); err != nil {
		log.Error().Err(err).Str("chat", chatID).Msg("[fakeapi] failed to save bot message")
	}
	return reply
}
