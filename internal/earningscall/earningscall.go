// Package earningscall finds today's earnings calls for portfolio stocks on
// the Yahoo TW calendar page.
package earningscall

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"eps-report/internal/interfaces"
	"eps-report/internal/logger"
)

// DefaultURL is the earnings-call calendar
const DefaultURL = "https://tw.stock.yahoo.com/calendar/earnings-call"

// MessageHeader opens the notification text
const MessageHeader = "Earnings calls today:"

// Event is one calendar row
type Event struct {
	StockID string
	Company string
	// Date is the YYYY/MM/DD part of the row's time column
	Date string
}

// Label is "<code> <company>", or the code alone when the company is unknown
func (e Event) Label() string {
	if e.Company == "" {
		return e.StockID
	}
	return e.StockID + " " + e.Company
}

type Scraper struct {
	url     string
	timeout time.Duration
}

func NewScraper(url string, timeout time.Duration) *Scraper {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{url: url, timeout: timeout}
}

// Events fetches the calendar and returns the rows dated day
func (s *Scraper) Events(ctx context.Context, day time.Time) ([]Event, error) {
	var (
		events []Event
		found  bool
	)

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.Context = ctx
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		found = true
		events = ParseCalendar(e.DOM, day.Format("2006/01/02"))
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = err
		logger.ErrorWithErr(ctx, "Scraping error", err, "url", r.Request.URL.String(), "status", r.StatusCode)
	})

	if err := c.Visit(s.url); err != nil {
		if scrapeErr != nil {
			err = scrapeErr
		}
		return nil, fmt.Errorf("failed to visit %s: %w", s.url, err)
	}
	c.Wait()

	if !found {
		return nil, fmt.Errorf("no html document at %s", s.url)
	}
	return events, nil
}

// ParseCalendar reads the first calendarDetail section. Each li holds a div
// whose direct div children are the columns: company then date.
func ParseCalendar(doc *goquery.Selection, day string) []Event {
	section := doc.Find(`section[class*="calendarDetail"]`).First()
	if section.Length() == 0 {
		return nil
	}

	var events []Event
	section.Find("ul").First().Find("li").Each(func(_ int, li *goquery.Selection) {
		cols := li.Find("div").First().ChildrenFiltered("div")
		if cols.Length() < 2 {
			return
		}

		dateFields := strings.Fields(cols.Eq(1).Text())
		if len(dateFields) == 0 || dateFields[0] != day {
			return
		}

		company := cols.Eq(0)
		codeText := strings.TrimSpace(company.Find(`span[class*="Fz(14px)"]`).First().Text())
		if codeText == "" {
			return
		}
		code, _, _ := strings.Cut(codeText, ".")

		events = append(events, Event{
			StockID: code,
			Company: strings.TrimSpace(company.Find(`div[class*="Fw(600)"]`).First().Text()),
			Date:    dateFields[0],
		})
	})
	return events
}

// Match returns the sorted, de-duplicated labels of events in codes
func Match(events []Event, codes map[string]bool) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, e := range events {
		if !codes[e.StockID] {
			continue
		}
		l := e.Label()
		if seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Message renders the notification; empty when nothing matched
func Message(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return MessageHeader + "\n" + strings.Join(labels, "\n")
}

// Notify scrapes today's calendar and sends one message when portfolio
// stocks hold a call. It returns the matched labels.
func Notify(ctx context.Context, s *Scraper, n interfaces.Notifier, codes map[string]bool, day time.Time) ([]string, error) {
	events, err := s.Events(ctx, day)
	if err != nil {
		return nil, err
	}
	labels := Match(events, codes)
	logger.Info(ctx, "Earnings calendar scanned", "events_today", len(events), "matched", len(labels))
	if len(labels) == 0 {
		return nil, nil
	}
	if !n.Enabled() {
		logger.Warn(ctx, "Notifier not configured; skipping message")
		return labels, nil
	}
	if err := n.SendText(ctx, Message(labels)); err != nil {
		return labels, err
	}
	return labels, nil
}
