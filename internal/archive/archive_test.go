package archive_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/archive"
)

func TestFilenameForSnapshot(t *testing.T) {
	cases := map[string]string{
		"http://web.archive.org/web/20200101000000/https://example.test/page/": "web.archive.org_web_20200101000000_https:__example.test_page",
		"http://web.archive.org/web/20200101/https://example.test/a?x=1&y=2":   "web.archive.org_web_20200101_https:__example.test_aQQxEQ1AMPyEQ2",
	}
	for in, want := range cases {
		if got := archive.FilenameForSnapshot(in); got != want {
			t.Errorf("FilenameForSnapshot(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLookupFoundMemoizes(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"url":"http://example.test/","archived_snapshots":{"closest":{"available":true,"url":"http://web.archive.org/web/2020/http://example.test/","timestamp":"2020","status":"200"}}}`))
	}))
	defer srv.Close()

	fb := archive.New(srv.URL, "AiBot/1.0", 5*time.Second)

	snap, found, err := fb.Lookup(context.Background(), "http://example.test/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot to be found")
	}
	if snap != "http://web.archive.org/web/2020/http://example.test/" {
		t.Errorf("snapshot URL = %q", snap)
	}

	if _, _, err := fb.Lookup(context.Background(), "http://example.test/"); err != nil {
		t.Fatalf("unexpected error on second lookup: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected memoized lookup to avoid a second HTTP call, got %d calls", calls)
	}
}

func TestLookupNotAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"http://example.test/missing","archived_snapshots":{}}`))
	}))
	defer srv.Close()

	fb := archive.New(srv.URL, "AiBot/1.0", 5*time.Second)
	_, found, err := fb.Lookup(context.Background(), "http://example.test/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected no snapshot to be found")
	}
}

func TestDownloadReturnsBytesAndFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>archived</html>"))
	}))
	defer srv.Close()

	fb := archive.New("http://ignored.test", "AiBot/1.0", 5*time.Second)
	body, filename, err := fb.Download(context.Background(), srv.URL+"/web/2020/http://example.test/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "<html>archived</html>" {
		t.Errorf("body = %q", string(body))
	}
	if filename == "" {
		t.Error("expected non-empty filename")
	}
}
