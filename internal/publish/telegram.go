package publish

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-jobdesk-bot/internal/format"
	"go-jobdesk-bot/internal/logger"
	"go-jobdesk-bot/internal/models"
)

const footer = "📣 Follow this channel for daily job updates"

// Publisher delivers a confirmed record to the public channel. Delivery is
// best-effort: failures are logged and never reach the caller, since the
// record is already committed by the time publishing starts.
type Publisher interface {
	Publish(job *models.JobRecord)
}

// sender is the slice of the Telegram API the publisher uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegramPublisher struct {
	api       sender
	channelID int64
	siteRoot  string
}

// NewTelegramPublisher builds the channel publisher. A zero channelID means
// publishing is disabled and Publish becomes a logged no-op.
func NewTelegramPublisher(api *tgbotapi.BotAPI, channelID int64, siteRoot string) Publisher {
	return &telegramPublisher{
		api:       api,
		channelID: channelID,
		siteRoot:  strings.TrimRight(siteRoot, "/"),
	}
}

func (p *telegramPublisher) Publish(job *models.JobRecord) {
	if p.channelID == 0 {
		logger.Logger.Infow("broadcast channel not configured, skipping publish", "slug", job.Slug)
		return
	}

	msg := tgbotapi.NewMessage(p.channelID, Render(job, p.siteRoot))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := p.api.Send(msg); err != nil {
		logger.Logger.Warnw("broadcast delivery failed", "slug", job.Slug, "error", err)
		return
	}
	logger.Logger.Infow("broadcast delivered", "slug", job.Slug)
}

// Render builds the channel message. Field order is fixed; fields without a
// meaningful value are omitted.
func Render(job *models.JobRecord, siteRoot string) string {
	var b strings.Builder

	if format.HasValue(job.Company) {
		b.WriteString(fmt.Sprintf("🏢 <b>%s</b>\n", escapeHTML(job.Company)))
	}
	if format.HasValue(job.Title) {
		b.WriteString(fmt.Sprintf("💼 %s\n", escapeHTML(job.Title)))
	}
	if format.HasValue(job.Eligibility) {
		b.WriteString(fmt.Sprintf("🎓 %s\n", escapeHTML(job.Eligibility)))
	}
	if format.HasValue(job.Salary) {
		b.WriteString(fmt.Sprintf("💰 %s\n", escapeHTML(job.Salary)))
	}
	if format.HasValue(job.Location) {
		b.WriteString(fmt.Sprintf("📍 %s\n", escapeHTML(job.Location)))
	}

	b.WriteString(fmt.Sprintf("🔗 <a href=\"%s/job/%s\">View &amp; Apply</a>\n\n", siteRoot, job.Slug))
	b.WriteString(footer)
	return b.String()
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}
