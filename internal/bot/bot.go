package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/listing-appraiser/internal/appraisal"
	"github.com/rs/zerolog/log"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg        BotAPI
	state     BotState
	evaluator *appraisal.Evaluator
	adminID   int64
	allowed   map[int64]bool
}

// NewBot creates a new Bot instance. Only the admin and allowedIDs are
// served.
func NewBot(tg BotAPI, evaluator *appraisal.Evaluator, adminID int64, allowedIDs ...int64) *Bot {
	bot := &Bot{
		tg:        tg,
		evaluator: evaluator,
		adminID:   adminID,
		allowed:   make(map[int64]bool, len(allowedIDs)),
	}
	for _, id := range allowedIDs {
		bot.allowed[id] = true
	}
	bot.state = bot.NewBotState()
	return bot
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// Shutdown stops all session workers and waits for running evaluations.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

func (b *Bot) isAllowed(userId int64) bool {
	return userId == b.adminID || b.allowed[userId]
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	// Determine user ID from the update
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if !b.isAllowed(userId) {
		log.Debug().Int64("userId", userId).Msg("dropping update from unknown user")
		return // Silent drop
	}

	session := b.state.getUserSession(userId)

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().Str("text", update.Message.Text).Int64("userId", userId).Msg("got message")
	send(SessionMessage{
		Type:    "text",
		Ctx:     ctx,
		Message: update.Message,
		Text:    update.Message.Text,
	})
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "text":
		b.handleTextMessage(ctx, session, msg.Text)
	}
}

func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, text string) {
	cmd, args := parseCommand(text)

	switch cmd {
	case "/start", "/help":
		session.reply(MsgStart)
		return
	case "/evaluate":
		// Without a URL the page open in the browser is evaluated
		session.StartEvaluation(ctx, findURL(strings.Join(args, " ")))
		return
	}

	if pageURL := findURL(text); pageURL != "" {
		session.StartEvaluation(ctx, pageURL)
		return
	}
	session.reply(MsgSendURL)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Acknowledge so the button stops spinning
	if _, err := b.tg.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback query")
	}

	switch query.Data {
	case CallbackReevaluate:
		pageURL := session.LastURL()
		if pageURL == "" && query.Message != nil {
			pageURL = findURL(query.Message.Text)
		}
		if pageURL == "" {
			session.reply(MsgNoPreviousURL)
			return
		}
		session.StartEvaluation(ctx, pageURL)
	default:
		log.Warn().Str("data", query.Data).Msg("unknown callback query")
	}
}
