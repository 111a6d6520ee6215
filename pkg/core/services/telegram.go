package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// BotStore is the datastore surface used by chat commands
type BotStore interface {
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error)
	SetVolunteerTelegramID(ctx context.Context, id string, telegramID string) error
}

const onboardingMessage = "👋 *Welcome to Hackathon Nova!*\n\n" +
	"Please use the 'Start Bot' button in your volunteer portal to link your account so we can send you notifications."

const welcomeTemplate = `👋 *Welcome to Hackathon Nova!*

You’re now connected to the official volunteer system, *%s*.

You will receive:
• Check-in & check-out confirmations
• Task assignments
• Approval / rejection updates
• Important event alerts

🔔 Keep Telegram notifications ON during the event.
Let’s make this hackathon smooth and impactful 🚀`

// BotReply is the outcome of an inbound chat command. Reply is empty when the
// text was not a recognised command.
type BotReply struct {
	Reply     string
	Volunteer *db.Volunteer
}

// HandleBotCommand reacts to an inbound chat message.
// /id echoes the chat id; /start <code> links the chat to the volunteer owning code.
func HandleBotCommand(ctx context.Context, store BotStore, deps Deps, logger *zap.Logger, chatID, text string) (*BotReply, error) {
	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, "/id"):
		return &BotReply{Reply: fmt.Sprintf("🆔 Your Chat ID is: `%s`", chatID)}, nil

	case strings.HasPrefix(text, "/start"):
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return &BotReply{Reply: onboardingMessage}, nil
		}
		return linkChat(ctx, store, deps, logger, chatID, strings.ToUpper(fields[1]))
	}

	logger.Debug("Ignoring unrecognised chat message", zap.String("chat_id", chatID))
	return &BotReply{}, nil
}

func linkChat(ctx context.Context, store BotStore, deps Deps, logger *zap.Logger, chatID, code string) (*BotReply, error) {
	volunteer, err := ResolveVolunteer(ctx, store, logger, code, model.OrgBoth, ModeFallback)
	if err != nil {
		if errors.Is(err, ErrVolunteerNotFound) {
			logger.Info("Registration lookup failed", zap.String("code", code), zap.String("chat_id", chatID))
			return &BotReply{Reply: fmt.Sprintf("❌ *Invalid registration code: [%s]*\n\n"+
				"Please ensure you clicked the link directly from your volunteer portal.", code)}, nil
		}
		return nil, err
	}

	if err := store.SetVolunteerTelegramID(ctx, volunteer.ID, chatID); err != nil {
		return nil, fmt.Errorf("failed to link telegram chat: %w", err)
	}
	volunteer.TelegramID = chatID

	if err := deps.Auditor.Record(ctx, volunteer.Org, model.ActorVolunteer, "link_telegram", model.TableVolunteers, volunteer.ID,
		map[string]any{"telegram_id": chatID}); err != nil {
		return nil, err
	}

	logger.Info("Linked telegram chat",
		zap.String("volunteer", volunteer.Name),
		zap.String("org", string(volunteer.Org)),
		zap.String("chat_id", chatID))

	return &BotReply{Reply: fmt.Sprintf(welcomeTemplate, volunteer.Name), Volunteer: volunteer}, nil
}
