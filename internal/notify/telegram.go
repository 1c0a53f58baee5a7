// Package notify delivers run summaries over the Telegram Bot API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"eps-report/internal/api"
	"eps-report/internal/interfaces"
	"eps-report/internal/types"
)

// ChangedMarker follows the bucket emoji when the bucket moved since the last run
const ChangedMarker = "🔺"

// SummaryHeader opens the summary message
const SummaryHeader = "*EPS Report Summary*"

type TelegramConfig struct {
	APIURL string
	Token  string
	ChatID string
	// ParseMode is sent with text messages when set, e.g. "Markdown"
	ParseMode string
}

type Telegram struct {
	config TelegramConfig
	client *api.Client
}

var _ interfaces.Notifier = (*Telegram)(nil)

func NewTelegram(config TelegramConfig, client *api.Client) *Telegram {
	if config.APIURL == "" {
		config.APIURL = "https://api.telegram.org"
	}
	config.APIURL = strings.TrimRight(config.APIURL, "/")
	return &Telegram{config: config, client: client}
}

// Enabled reports whether both token and chat id are configured
func (t *Telegram) Enabled() bool {
	return t.config.Token != "" && t.config.ChatID != ""
}

func (t *Telegram) SendText(ctx context.Context, text string) error {
	form := url.Values{
		"chat_id": {t.config.ChatID},
		"text":    {text},
	}
	if t.config.ParseMode != "" {
		form.Set("parse_mode", t.config.ParseMode)
	}
	resp, err := t.client.PostForm(ctx, t.endpoint("sendMessage"), form)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return checkOK(resp)
}

func (t *Telegram) SendDocument(ctx context.Context, path, caption string) error {
	resp, err := t.client.PostMultipart(ctx, t.endpoint("sendDocument"), &api.MultipartBody{
		Fields: map[string]string{
			"chat_id": t.config.ChatID,
			"caption": caption,
		},
		FileField: "document",
		FilePath:  path,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram document: %w", err)
	}
	return checkOK(resp)
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.config.APIURL, t.config.Token, method)
}

func checkOK(resp *api.Response) error {
	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		return err
	}
	if !body.OK {
		return errors.New("telegram rejected request: " + body.Description)
	}
	return nil
}

// SummaryLine renders one result as "<emoji>[🔺] `<id>` <name>"
func SummaryLine(r types.ValuationResult) string {
	flag := ""
	if r.Changed {
		flag = ChangedMarker
	}
	return fmt.Sprintf("%s%s `%s` %s", r.Bucket.Emoji(), flag, r.StockID, r.Name)
}

// SummaryText renders the full message; empty when there are no results
func SummaryText(results []types.ValuationResult) string {
	if len(results) == 0 {
		return ""
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, SummaryLine(r))
	}
	return SummaryHeader + "\n\n" + strings.Join(lines, "\n")
}
