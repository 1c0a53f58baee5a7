package earningscall

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendarHTML = `<html><body>
<section class="Mb(20px) other"><ul><li><div><div><span class="Fz(14px)">1111.TW</span></div><div>2025/03/18 10:00</div></div></li></ul></section>
<section class="calendarDetail Bgc(#fff)">
  <ul>
    <li><div class="row">
      <div><div class="Fw(600) Ell">中租-KY</div><span class="Fz(14px) C(#979ba7)">5871.TW</span></div>
      <div>2025/03/18 14:00</div>
      <div>台北</div>
    </div></li>
    <li><div class="row">
      <div><div class="Fw(600)">璟德</div><span class="Fz(14px)">3152.TWO</span></div>
      <div>2025/03/18 09:30</div>
    </div></li>
    <li><div class="row">
      <div><div class="Fw(600)">達麗</div><span class="Fz(14px)">6177.TWO</span></div>
      <div>2025/03/19 09:30</div>
    </div></li>
    <li><div class="row">
      <div><span class="Fz(14px)">2330.TW</span></div>
      <div>2025/03/18 16:00</div>
    </div></li>
    <li><div class="row"><div>only one column</div></div></li>
    <li><div class="row">
      <div><div class="Fw(600)">中租-KY</div><span class="Fz(14px)">5871.TW</span></div>
      <div>2025/03/18 15:00</div>
    </div></li>
  </ul>
</section>
</body></html>`

func parse(t *testing.T) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(calendarHTML))
	require.NoError(t, err)
	return doc.Selection
}

func TestParseCalendar(t *testing.T) {
	events := ParseCalendar(parse(t), "2025/03/18")
	require.Len(t, events, 4)
	assert.Equal(t, Event{StockID: "5871", Company: "中租-KY", Date: "2025/03/18"}, events[0])
	assert.Equal(t, "3152", events[1].StockID)
	assert.Equal(t, "2330", events[2].StockID)
	assert.Empty(t, events[2].Company)
}

func TestParseCalendar_NoSection(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>nothing</p></body></html>"))
	require.NoError(t, err)
	assert.Nil(t, ParseCalendar(doc.Selection, "2025/03/18"))
}

func TestMatchAndMessage(t *testing.T) {
	events := ParseCalendar(parse(t), "2025/03/18")
	labels := Match(events, map[string]bool{"5871": true, "2330": true, "6177": true})
	assert.Equal(t, []string{"2330", "5871 中租-KY"}, labels)
	assert.Equal(t, "Earnings calls today:\n2330\n5871 中租-KY", Message(labels))
	assert.Empty(t, Message(nil))
}

type recordingNotifier struct {
	enabled bool
	texts   []string
}

func (r *recordingNotifier) Enabled() bool { return r.enabled }
func (r *recordingNotifier) SendText(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}
func (r *recordingNotifier) SendDocument(context.Context, string, string) error { return nil }

func TestNotify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, calendarHTML)
	}))
	defer srv.Close()

	day := time.Date(2025, 3, 18, 8, 0, 0, 0, time.UTC)
	n := &recordingNotifier{enabled: true}
	labels, err := Notify(context.Background(), NewScraper(srv.URL, time.Second), n, map[string]bool{"3152": true}, day)
	require.NoError(t, err)
	assert.Equal(t, []string{"3152 璟德"}, labels)
	require.Len(t, n.texts, 1)
	assert.Equal(t, "Earnings calls today:\n3152 璟德", n.texts[0])
}

func TestNotify_NothingMatched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, calendarHTML)
	}))
	defer srv.Close()

	n := &recordingNotifier{enabled: true}
	labels, err := Notify(context.Background(), NewScraper(srv.URL, time.Second), n, map[string]bool{"0000": true}, time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, labels)
	assert.Empty(t, n.texts)
}

func TestEvents_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewScraper(srv.URL, time.Second).Events(context.Background(), time.Now())
	assert.Error(t, err)
}
