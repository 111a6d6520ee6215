package server

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/services"
	"github.com/jakechorley/volunteer-portal/pkg/notify"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// telegramPayload is either an internal relay request ({message: "text", chat_id})
// or a Telegram update ({update_id, message: {text, chat: {id}}})
type telegramPayload struct {
	UpdateID *int64          `json:"update_id"`
	Message  json.RawMessage `json:"message"`
	ChatID   json.RawMessage `json:"chat_id"`
}

type telegramMessage struct {
	Text string `json:"text"`
	Chat struct {
		ID json.Number `json:"id"`
	} `json:"chat"`
}

// chatIDString accepts a chat id sent as a number or a string
func chatIDString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (s *Server) handleTelegramLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Telegram bot webhook is live"))
}

func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	var payload telegramPayload
	if err := decode(r, &payload); err != nil {
		s.respondError(w, r, err)
		return
	}

	message := bytes.TrimSpace(payload.Message)
	if len(message) > 0 && message[0] == '"' {
		s.relayMessage(w, r, payload)
		return
	}

	s.handleUpdate(w, r, payload)
}

// relayMessage queues an ad-hoc message, to the admin chat unless chat_id is given
func (s *Server) relayMessage(w http.ResponseWriter, r *http.Request, payload telegramPayload) {
	if !s.isAdmin(r) {
		s.respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var text string
	if err := json.Unmarshal(payload.Message, &text); err != nil || strings.TrimSpace(text) == "" {
		s.respondError(w, r, &services.RequestError{Kind: services.ErrMissingFields, Message: "Missing message"})
		return
	}

	chatID := chatIDString(payload.ChatID)
	queued := s.deps.Notifier.Enqueue(notify.Message{ChatID: chatID, Text: text})

	s.logger.Debug("Relayed message",
		zap.String("chat_id", chatID),
		zap.Bool("queued", queued))

	writeJSON(w, http.StatusOK, map[string]any{"success": queued})
}

// handleUpdate processes an inbound Telegram update
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, payload telegramPayload) {
	if s.webhookSecret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.webhookSecret)) != 1 {
			s.respondMessage(w, http.StatusUnauthorized, "Invalid secret token")
			return
		}
	}

	var claimed string
	if payload.UpdateID != nil && s.guard != nil {
		id := strconv.FormatInt(*payload.UpdateID, 10)
		switch first, err := s.guard.FirstSeen(r.Context(), id); {
		case err != nil:
			// Fail open: the update is handled without de-duplication
			s.logger.Warn("Update de-duplication unavailable", zap.Error(err))
		case !first:
			s.logger.Debug("Ignoring repeated update", zap.Int64("update_id", *payload.UpdateID))
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Duplicate update ignored"})
			return
		default:
			// Released again if processing fails, so Telegram's redelivery is handled
			claimed = id
		}
	}

	var msg telegramMessage
	if len(payload.Message) > 0 {
		if err := json.Unmarshal(payload.Message, &msg); err != nil {
			s.respondError(w, r, &services.RequestError{Kind: services.ErrMissingFields, Message: "Invalid message"})
			return
		}
	}

	chatID := msg.Chat.ID.String()
	if msg.Text == "" || chatID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "No action performed"})
		return
	}

	reply, err := services.HandleBotCommand(r.Context(), s.store, s.deps, s.logger, chatID, msg.Text)
	if err != nil {
		if claimed != "" {
			if ferr := s.guard.Forget(r.Context(), claimed); ferr != nil {
				s.logger.Warn("Failed to release update", zap.String("update_id", claimed), zap.Error(ferr))
			}
		}
		s.respondError(w, r, err)
		return
	}
	if reply.Reply == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "No action performed"})
		return
	}

	queued := s.deps.Notifier.Enqueue(notify.Message{ChatID: chatID, Text: reply.Reply})
	writeJSON(w, http.StatusOK, map[string]any{"success": queued})
}
