package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eps-report/internal/api"
	"eps-report/internal/types"
)

func TestSummaryText(t *testing.T) {
	results := []types.ValuationResult{
		{StockID: "2330", Name: "台積電", Bucket: types.BucketRed, Changed: true},
		{StockID: "5871", Name: "中租-KY", Bucket: types.BucketOrange},
		{StockID: "1101", Name: "台泥", Bucket: types.BucketGreen},
		{StockID: "6488", Name: "環球晶", Bucket: types.BucketNone, Changed: true},
	}
	want := "*EPS Report Summary*\n\n" +
		"🔴🔺 `2330` 台積電\n" +
		"🟠 `5871` 中租-KY\n" +
		"🟢 `1101` 台泥\n" +
		"⚪🔺 `6488` 環球晶"
	assert.Equal(t, want, SummaryText(results))
	assert.Empty(t, SummaryText(nil))
}

func TestTelegram_Enabled(t *testing.T) {
	assert.False(t, NewTelegram(TelegramConfig{Token: "t"}, api.NewClient()).Enabled())
	assert.False(t, NewTelegram(TelegramConfig{ChatID: "c"}, api.NewClient()).Enabled())
	assert.True(t, NewTelegram(TelegramConfig{Token: "t", ChatID: "c"}, api.NewClient()).Enabled())
}

func TestTelegram_SendTextAndDocument(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/botTOKEN/sendMessage":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "42", r.PostForm.Get("chat_id"))
			assert.Equal(t, "Markdown", r.PostForm.Get("parse_mode"))
			assert.Equal(t, "hello", r.PostForm.Get("text"))
		case "/botTOKEN/sendDocument":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "42", r.FormValue("chat_id"))
			assert.Equal(t, "EPS report", r.FormValue("caption"))
			_, hdr, err := r.FormFile("document")
			require.NoError(t, err)
			assert.Equal(t, "eps_report_20240102.pdf", hdr.Filename)
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	doc := filepath.Join(t.TempDir(), "eps_report_20240102.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF"), 0644))

	tg := NewTelegram(TelegramConfig{APIURL: srv.URL + "/", Token: "TOKEN", ChatID: "42", ParseMode: "Markdown"}, api.NewClient())
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	require.NoError(t, tg.SendDocument(context.Background(), doc, "EPS report"))
	assert.Equal(t, []string{"/botTOKEN/sendMessage", "/botTOKEN/sendDocument"}, paths)
}

func TestTelegram_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":false,"description":"chat not found"}`)
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{APIURL: srv.URL, Token: "T", ChatID: "1"}, api.NewClient())
	err := tg.SendText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
