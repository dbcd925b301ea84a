// Package telegram is the operator channel: a long-polling listener that
// authenticates senders against the allow-list and feeds their messages to
// the conversation engine, one at a time per identity.
package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-jobdesk-bot/internal/logger"
)

const deniedReply = "⛔ You are not authorized to use this bot."

// Handler consumes one operator message and returns the reply text.
// An empty reply means no response is sent.
type Handler interface {
	HandleMessage(ctx context.Context, operatorID int64, text string) string
}

type inbound struct {
	chatID int64
	fromID int64
	text   string
}

type Listener struct {
	api        *tgbotapi.BotAPI
	handler    Handler
	isOperator func(int64) bool

	mu     sync.Mutex
	queues map[int64]chan inbound
	wg     sync.WaitGroup
}

func NewListener(api *tgbotapi.BotAPI, handler Handler, isOperator func(int64) bool) *Listener {
	return &Listener{
		api:        api,
		handler:    handler,
		isOperator: isOperator,
		queues:     make(map[int64]chan inbound),
	}
}

// Run polls for updates until the context is cancelled. Messages from one
// identity are processed in arrival order; distinct identities do not block
// each other.
func (l *Listener) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := l.api.GetUpdatesChan(u)

	logger.Logger.Infow("telegram listener started", "bot", l.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			l.api.StopReceivingUpdates()
			l.closeQueues()
			l.wg.Wait()
			logger.Logger.Info("telegram listener stopped")
			return
		case update, ok := <-updates:
			if !ok {
				l.closeQueues()
				l.wg.Wait()
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			l.accept(ctx, update.Message)
		}
	}
}

func (l *Listener) accept(ctx context.Context, msg *tgbotapi.Message) {
	fromID := msg.From.ID
	if !l.isOperator(fromID) {
		logger.Logger.Warnw("rejected non-operator message", "from", fromID)
		l.reply(msg.Chat.ID, deniedReply)
		return
	}

	l.queueFor(ctx, fromID) <- inbound{
		chatID: msg.Chat.ID,
		fromID: fromID,
		text:   msg.Text,
	}
}

// queueFor returns the serial dispatch channel for an identity, spawning its
// worker goroutine on first use.
func (l *Listener) queueFor(ctx context.Context, fromID int64) chan inbound {
	l.mu.Lock()
	defer l.mu.Unlock()

	if q, ok := l.queues[fromID]; ok {
		return q
	}

	q := make(chan inbound, 16)
	l.queues[fromID] = q
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for in := range q {
			if reply := l.handler.HandleMessage(ctx, in.fromID, in.text); reply != "" {
				l.reply(in.chatID, reply)
			}
		}
	}()
	return q
}

func (l *Listener) closeQueues() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, q := range l.queues {
		close(q)
		delete(l.queues, id)
	}
}

func (l *Listener) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := l.api.Send(msg); err != nil {
		logger.Logger.Warnw("failed to send reply", "chat", chatID, "error", err)
	}
}
