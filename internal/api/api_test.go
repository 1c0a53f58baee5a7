package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGET_HeadersAndJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		assert.Equal(t, "eps", r.Header.Get("X-Client"))
		assert.Equal(t, "/quotes", r.URL.Path)
		_, _ = io.WriteString(w, `[{"Code":"2330"}]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithHeader("X-Client", "eps"))
	resp, err := c.GET(context.Background(), "/quotes", NoCacheHeaders())
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, resp.ParseJSON(&rows))
	assert.Equal(t, "2330", rows[0]["Code"])
}

func TestDo_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient().GET(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestPostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("chat_id"))
		assert.Equal(t, "Markdown", r.PostForm.Get("parse_mode"))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	_, err := NewClient().PostForm(context.Background(), srv.URL, url.Values{
		"chat_id":    {"42"},
		"parse_mode": {"Markdown"},
	})
	require.NoError(t, err)
}

func TestPostMultipart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "EPS report", r.FormValue("caption"))
		f, hdr, err := r.FormFile("document")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "report.pdf", hdr.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.3", string(b))
	}))
	defer srv.Close()

	_, err := NewClient().PostMultipart(context.Background(), srv.URL, &MultipartBody{
		Fields:    map[string]string{"caption": "EPS report"},
		FileField: "document",
		FilePath:  path,
	})
	require.NoError(t, err)
}

func TestMinInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(WithMinInterval(100 * time.Millisecond))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.GET(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
}

func TestMinInterval_ContextCancelled(t *testing.T) {
	c := NewClient(WithMinInterval(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := c.GET(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.GET(ctx, srv.URL)
	assert.Error(t, err)
}
