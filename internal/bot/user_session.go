package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/listing-appraiser/internal/appraisal"
	"github.com/rs/zerolog/log"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Message data (only one is set based on Type)
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery
	Text          string
}

// MessageSender abstracts the ability to send Telegram messages.
// This interface decouples UserSession from the full Bot struct,
// improving testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler is the interface for processing session messages.
// This allows the session to dispatch to external handlers without circular dependencies.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession represents a user's conversation with the bot.
//
// Threading model:
//   - Each session has a dedicated worker goroutine that processes messages sequentially
//   - Evaluations run on their own goroutine so the worker can answer while
//     one is in flight; the appraisal session rejects overlapping runs
type UserSession struct {
	userId int64
	sender MessageSender

	// Worker channel for sequential message processing
	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	runs    sync.WaitGroup
	handler MessageHandler // Set after construction to avoid circular deps

	appraisal *appraisal.Session
}

// StartEvaluation runs an evaluation of pageURL in the background. The run
// is claimed before returning, so a request arriving while one is in flight
// is answered with MsgRunInProgress.
func (s *UserSession) StartEvaluation(ctx context.Context, pageURL string) {
	run, err := s.appraisal.Begin(pageURL)
	if errors.Is(err, appraisal.ErrRunInProgress) {
		s.reply(MsgRunInProgress)
		return
	} else if err != nil {
		log.Error().Err(err).Int64("userId", s.userId).Msg("failed to start evaluation")
		return
	}
	log.Info().Int64("userId", s.userId).Str("url", pageURL).Msg("evaluation requested")

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		// Failures are already shown by the panel
		_, _ = run(ctx)
	}()
}

// LastURL returns the page URL of the user's most recent evaluation.
func (s *UserSession) LastURL() string {
	return s.appraisal.LastURL()
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Info().Interface("msg", msg).Int("messageID", sent.MessageID).Msg("sent message")
	}

	return sent
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{
		Text:                  formatReplyText(text, a...),
		DisableWebPagePreview: true,
	})
}

func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	s.handler.HandleSessionMessage(msg.Ctx, s, msg)
}

// Send queues a message for processing by the worker.
// This is non-blocking - it returns immediately after queuing.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits until it has been processed.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for running evaluations to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
	s.runs.Wait()
}

// WaitForEvaluations blocks until background evaluations have finished.
func (s *UserSession) WaitForEvaluations() {
	s.runs.Wait()
}
