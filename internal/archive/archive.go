// Package archive implements spec.md §4.D's Archive Fallback: when the
// fetcher reports a non-2xx response for a URL, this component queries the
// wayback availability API and, if a snapshot exists, downloads its bytes
// under a filename derived from the snapshot URL with reserved characters
// escaped. Archived pages are terminal artifacts: their links are never
// walked.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kestrel-labs/corpusreaper/pkg/failure"
)

type availabilityResponse struct {
	URL                string `json:"url"`
	ArchivedSnapshots struct {
		Closest struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
			Status    string `json:"status"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// Fallback queries the wayback availability endpoint and downloads the
// closest snapshot when one exists.
type Fallback struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	cache      *AvailabilityCache
}

// New constructs a Fallback targeting baseURL (spec.md's default is
// http://archive.org/wayback/available).
func New(baseURL, userAgent string, timeout time.Duration) *Fallback {
	return &Fallback{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		cache:      NewAvailabilityCache(),
	}
}

// Lookup queries the availability service for originalURL, memoizing the
// result (including confirmed misses) so repeated broken links to the same
// URL within a run don't re-query the service.
func (f *Fallback) Lookup(ctx context.Context, originalURL string) (snapshotURL string, found bool, classified failure.ClassifiedError) {
	if cached, ok := f.cache.Get(originalURL); ok {
		if cached == "" {
			return "", false, nil
		}
		return cached, true, nil
	}

	endpoint := f.baseURL + "?url=" + url.QueryEscape(originalURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, &ArchiveError{Message: err.Error(), Cause: ErrCauseAvailabilityRequestFailed}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", false, &ArchiveError{Message: err.Error(), Cause: ErrCauseAvailabilityRequestFailed}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, &ArchiveError{
			Message: fmt.Sprintf("availability endpoint returned %d", resp.StatusCode),
			Cause:   ErrCauseAvailabilityRequestFailed,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, &ArchiveError{Message: err.Error(), Cause: ErrCauseAvailabilityRequestFailed}
	}

	var parsed availabilityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, &ArchiveError{Message: err.Error(), Cause: ErrCauseAvailabilityParseFailed}
	}

	closest := parsed.ArchivedSnapshots.Closest
	if !closest.Available || closest.URL == "" {
		f.cache.Put(originalURL, "")
		return "", false, nil
	}

	f.cache.Put(originalURL, closest.URL)
	return closest.URL, true, nil
}

// Download fetches the snapshot's bytes and returns them alongside the
// escaped filename they should be written under.
func (f *Fallback) Download(ctx context.Context, snapshotURL string) (bytes []byte, filename string, classified failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, snapshotURL, nil)
	if err != nil {
		return nil, "", &ArchiveError{Message: err.Error(), Cause: ErrCauseSnapshotDownloadFailed}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", &ArchiveError{Message: err.Error(), Cause: ErrCauseSnapshotDownloadFailed}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &ArchiveError{
			Message: fmt.Sprintf("snapshot download returned %d", resp.StatusCode),
			Cause:   ErrCauseSnapshotDownloadFailed,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &ArchiveError{Message: err.Error(), Cause: ErrCauseSnapshotDownloadFailed}
	}

	return body, FilenameForSnapshot(snapshotURL), nil
}

// FilenameForSnapshot derives an on-disk filename from a wayback snapshot
// URL: the scheme is stripped first, then path separators become
// underscores with a trailing run stripped, then the reserved characters
// `?`, `=`, `&` are escaped — in that exact order, matching the original
// implementation's behaviour byte-for-byte.
func FilenameForSnapshot(snapshotURL string) string {
	s := snapshotURL
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.TrimRight(s, "_")
	s = strings.ReplaceAll(s, "?", "QQ")
	s = strings.ReplaceAll(s, "=", "EQ")
	s = strings.ReplaceAll(s, "&", "AMP")
	return s
}
