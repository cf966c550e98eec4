package arxiv

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/logging"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00002v1</id>
    <published>2024-01-02T00:00:00Z</published>
    <title>Retrieval-Augmented
      Generation: A Survey</title>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2401.00002v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="%[1]s/pdf/2401.00002v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.00001v2</id>
    <published>2024-01-01T00:00:00Z</published>
    <title>Broken Download</title>
    <author><name>Grace Hopper</name></author>
    <link title="pdf" href="%[1]s/pdf/missing" rel="related" type="application/pdf"/>
  </entry>
</feed>`

const errorFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_1234</id>
    <title>Error</title>
    <summary>incorrect id format for 1234</summary>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"></feed>`

type arxivServer struct {
	*httptest.Server
	feed      string
	queries   atomic.Int32
	downloads atomic.Int32
	lastQuery atomic.Value
}

func newArxivServer(t *testing.T, feed string) *arxivServer {
	t.Helper()
	s := &arxivServer{feed: feed}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		s.queries.Add(1)
		s.lastQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/atom+xml")
		if strings.Contains(s.feed, "%[1]s") {
			fmt.Fprintf(w, s.feed, s.URL)
			return
		}
		fmt.Fprint(w, s.feed)
	})
	mux.HandleFunc("/pdf/2401.00002v1", func(w http.ResponseWriter, r *http.Request) {
		s.downloads.Add(1)
		w.Write([]byte("%PDF-1.4 fake"))
	})
	mux.HandleFunc("/pdf/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestFetcher(t *testing.T, srv *arxivServer, dir string, buf *bytes.Buffer) *Fetcher {
	t.Helper()
	client := NewClient(srv.URL+"/api/query", 0)
	client.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return NewFetcher(client, dir, logging.New(buf, "debug"))
}

func TestFetch_DownloadsAndSkipsFailures(t *testing.T) {
	srv := newArxivServer(t, feedTemplate)
	dir := filepath.Join(t.TempDir(), "arxiv_papers")
	var logs bytes.Buffer

	batch := newTestFetcher(t, srv, dir, &logs).Fetch(context.Background(), "rag", 3)

	require.Len(t, batch.Items, 1)
	paper := batch.Items[0]
	assert.Equal(t, "2401.00002v1", paper.ID)
	assert.Equal(t, "Retrieval-Augmented Generation: A Survey", paper.Title)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, paper.Authors)
	assert.Equal(t, filepath.Join(dir, "2401.00002v1.Retrieval_Augmented_Generation__A_Survey.pdf"), paper.Path)
	assert.FileExists(t, paper.Path)

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "2401.00001v2", batch.Failures[0].Item)
	assert.ErrorIs(t, batch.Failures[0].Err, domain.ErrFetch)
	assert.Contains(t, logs.String(), "ERROR - Failed to download paper")

	q := srv.lastQuery.Load().(url.Values)
	assert.Equal(t, []string{"rag"}, q["search_query"])
	assert.Equal(t, []string{"3"}, q["max_results"])
	assert.Equal(t, []string{"submittedDate"}, q["sortBy"])
	assert.Equal(t, []string{"descending"}, q["sortOrder"])

	// No temp files left behind by the failed download
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFetch_ReusesExistingFile(t *testing.T) {
	srv := newArxivServer(t, feedTemplate)
	dir := t.TempDir()
	var logs bytes.Buffer
	fetcher := newTestFetcher(t, srv, dir, &logs)

	first := fetcher.Fetch(context.Background(), "rag", 3)
	second := fetcher.Fetch(context.Background(), "rag", 3)

	require.Len(t, first.Items, 1)
	require.Len(t, second.Items, 1)
	assert.Equal(t, first.Items[0].Path, second.Items[0].Path)
	assert.Equal(t, int32(1), srv.downloads.Load())
}

func TestFetch_ZeroResults(t *testing.T) {
	srv := newArxivServer(t, emptyFeed)
	var logs bytes.Buffer

	batch := newTestFetcher(t, srv, t.TempDir(), &logs).Fetch(context.Background(), "zzzz-no-match", 3)

	assert.True(t, batch.Empty())
	assert.Empty(t, batch.Failures)
}

func TestFetch_SearchErrorYieldsEmptyBatch(t *testing.T) {
	srv := newArxivServer(t, errorFeed)
	var logs bytes.Buffer

	batch := newTestFetcher(t, srv, t.TempDir(), &logs).Fetch(context.Background(), "id:1234", 3)

	assert.True(t, batch.Empty())
	require.Len(t, batch.Failures, 1)
	assert.ErrorIs(t, batch.Failures[0].Err, ErrSearch)
	assert.Contains(t, logs.String(), "ERROR - Paper search failed")
}

func TestFetch_DefaultMaxResults(t *testing.T) {
	srv := newArxivServer(t, emptyFeed)
	var logs bytes.Buffer

	newTestFetcher(t, srv, t.TempDir(), &logs).Fetch(context.Background(), "rag", 0)

	q := srv.lastQuery.Load().(url.Values)
	assert.Equal(t, []string{"3"}, q["max_results"])
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, emptyFeed)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	client.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	entries, err := client.Search(context.Background(), "rag", 3)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	client.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	_, err := client.Search(context.Background(), "rag", 3)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEntry_FileName(t *testing.T) {
	e := Entry{ID: "2107.05580v1", Title: "The Sound of Silence: Mining (co)occurrences"}
	assert.Equal(t, "2107.05580v1.The_Sound_of_Silence__Mining__co_occurrences.pdf", e.FileName())
}
