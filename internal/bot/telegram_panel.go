package bot

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/listing-appraiser/internal/panel"
	"github.com/raine/listing-appraiser/internal/trust"
	"github.com/rs/zerolog/log"
)

// maxMediaGroupSize is the most photos Telegram accepts in one album.
const maxMediaGroupSize = 10

// typingInterval keeps the typing indicator visible; it expires after ~5s.
const typingInterval = 4 * time.Second

// TelegramPanel renders an evaluation run into a chat. The status line is
// one message edited in place, previews are sent as one album once all of
// them are known, and a disabled trigger shows as a typing indicator.
type TelegramPanel struct {
	sender MessageSender
	chatID int64

	mu           sync.Mutex
	phase        panel.Phase
	statusMsgID  int
	statusText   string
	previews     []string
	typingCancel context.CancelFunc
}

func NewTelegramPanel(sender MessageSender, chatID int64) *TelegramPanel {
	return &TelegramPanel{sender: sender, chatID: chatID}
}

func (p *TelegramPanel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusMsgID = 0
	p.statusText = ""
	p.previews = nil
}

func (p *TelegramPanel) SetPhase(phase panel.Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase == panel.PhaseFetchingImages && phase != panel.PhaseFetchingImages {
		p.flushPreviews()
	}
	p.phase = phase
}

func (p *TelegramPanel) SetStatus(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.statusText && p.statusMsgID != 0 {
		return
	}
	p.statusText = text

	if p.statusMsgID == 0 {
		sent, err := p.sender.Send(tgbotapi.NewMessage(p.chatID, text))
		if err != nil {
			log.Error().Err(err).Int64("chatID", p.chatID).Msg("failed to send status message")
			return
		}
		p.statusMsgID = sent.MessageID
		return
	}

	if _, err := p.sender.Send(tgbotapi.NewEditMessageText(p.chatID, p.statusMsgID, text)); err != nil {
		log.Warn().Err(err).Int64("chatID", p.chatID).Msg("failed to edit status message")
	}
}

func (p *TelegramPanel) ShowAdvisory(a trust.Advisory) {
	sep := "\n"
	if a.Inline() {
		sep = " "
	}
	text := fmt.Sprintf("%s <b>%s</b>%s%s", a.Icon(), html.EscapeString(a.Headline()), sep, html.EscapeString(a.Detail()))

	msg := tgbotapi.NewMessage(p.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	p.send(msg, "advisory")
}

func (p *TelegramPanel) AddPreview(imageURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.previews = append(p.previews, imageURL)
}

// flushPreviews sends the collected previews as albums. Telegram fetches the
// URLs itself; a CDN refusing it only loses the previews.
func (p *TelegramPanel) flushPreviews() {
	previews := p.previews
	p.previews = nil

	for len(previews) > 0 {
		n := min(len(previews), maxMediaGroupSize)
		batch := previews[:n]
		previews = previews[n:]

		var err error
		if len(batch) == 1 {
			_, err = p.sender.Send(tgbotapi.NewPhoto(p.chatID, tgbotapi.FileURL(batch[0])))
		} else {
			media := make([]interface{}, len(batch))
			for i, u := range batch {
				media[i] = tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(u))
			}
			// sendMediaGroup answers with an array, which Send cannot decode
			_, err = p.sender.Request(tgbotapi.NewMediaGroup(p.chatID, media))
		}
		if err != nil {
			log.Warn().Err(err).Int("count", len(batch)).Msg("failed to send image previews")
		}
	}
}

// ShowResult replaces the status message with the result. Long results are
// split on line boundaries; the last part carries the re-evaluate button.
func (p *TelegramPanel) ShowResult(text string) {
	p.deleteStatus()

	chunks := splitMessage(text, maxMessageLength)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(p.chatID, string(panel.RenderMarkup(chunk)))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if i == len(chunks)-1 {
			msg.ReplyMarkup = reevaluateKeyboard()
		}
		p.send(msg, "result")
	}
}

// ShowError turns the status message into the error message.
func (p *TelegramPanel) ShowError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text := panel.ErrorText(err)

	if p.statusMsgID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(p.chatID, p.statusMsgID, text, reevaluateKeyboard())
		if _, err := p.sender.Send(edit); err == nil {
			p.statusMsgID = 0
			p.statusText = ""
			return
		}
	}

	msg := tgbotapi.NewMessage(p.chatID, text)
	msg.ReplyMarkup = reevaluateKeyboard()
	if _, err := p.sender.Send(msg); err != nil {
		log.Error().Err(err).Int64("chatID", p.chatID).Msg("failed to send error message")
	}
}

// SetTriggerEnabled shows a typing indicator while the trigger is disabled.
func (p *TelegramPanel) SetTriggerEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.typingCancel != nil {
		p.typingCancel()
		p.typingCancel = nil
	}
	if !enabled {
		ctx, cancel := context.WithCancel(context.Background())
		p.typingCancel = cancel
		go p.typingLoop(ctx)
	}
}

func (p *TelegramPanel) typingLoop(ctx context.Context) {
	p.sendTypingAction()

	ticker := time.NewTicker(typingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sendTypingAction()
		}
	}
}

func (p *TelegramPanel) sendTypingAction() {
	action := tgbotapi.NewChatAction(p.chatID, tgbotapi.ChatTyping)
	// Use Request instead of Send because sendChatAction returns a boolean, not a Message
	if _, err := p.sender.Request(action); err != nil {
		log.Debug().Err(err).Int64("chatID", p.chatID).Msg("failed to send typing action")
	}
}

func (p *TelegramPanel) deleteStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.statusMsgID == 0 {
		return
	}
	if _, err := p.sender.Request(tgbotapi.NewDeleteMessage(p.chatID, p.statusMsgID)); err != nil {
		log.Debug().Err(err).Msg("failed to delete status message")
	}
	p.statusMsgID = 0
	p.statusText = ""
}

func (p *TelegramPanel) send(msg tgbotapi.MessageConfig, what string) {
	if _, err := p.sender.Send(msg); err != nil {
		log.Error().Err(err).Int64("chatID", p.chatID).Str("message", what).Msg("failed to send message")
	}
}

func reevaluateKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnReevaluate, CallbackReevaluate),
		),
	)
}
