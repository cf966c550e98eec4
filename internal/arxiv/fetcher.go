// Package arxiv searches the arXiv catalog and downloads paper PDFs.
package arxiv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bull/ragademic/internal/domain"
)

const (
	// DefaultMaxResults is the number of papers fetched when the caller does not say.
	DefaultMaxResults = 3

	// DefaultDownloadDir is where PDFs are stored when no directory is configured.
	DefaultDownloadDir = "arxiv_papers"
)

// Fetcher turns a topic query into PDFs stored under a download directory.
type Fetcher struct {
	client *Client
	dir    string
	logger *slog.Logger
}

// NewFetcher creates a Fetcher downloading into dir.
func NewFetcher(client *Client, dir string, logger *slog.Logger) *Fetcher {
	if dir == "" {
		dir = DefaultDownloadDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		dir:    dir,
		logger: logger,
	}
}

// Dir returns the download directory.
func (f *Fetcher) Dir() string {
	return f.dir
}

// Fetch searches arXiv for query and downloads up to maxResults PDFs, most
// recently submitted first. It never returns an error: a failed search yields
// an empty batch and a failed download skips that paper. Both are logged and
// recorded in the batch failures.
func (f *Fetcher) Fetch(ctx context.Context, query string, maxResults int) domain.Batch[domain.PaperReference] {
	var batch domain.Batch[domain.PaperReference]
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	// 1. Ensure the download directory exists
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		f.logger.Error("Failed to create download directory", "dir", f.dir, "error", err)
		batch.Fail(query, domain.WrapError(domain.ErrFetch, "create download dir", err))
		return batch
	}
	f.logger.Info("Download directory ready", "dir", f.dir)

	// 2. Search
	f.logger.Info("Searching arXiv", "query", query, "max_results", maxResults)
	entries, err := f.client.Search(ctx, query, maxResults)
	if err != nil {
		f.logger.Error("Paper search failed", "query", query, "error", err)
		batch.Fail(query, domain.WrapError(domain.ErrFetch, "search", err))
		return batch
	}
	if len(entries) == 0 {
		f.logger.Warn("No papers found", "query", query)
		return batch
	}

	// 3. Download each result, skipping failures
	for _, entry := range entries {
		path, err := f.download(ctx, entry)
		if err != nil {
			f.logger.Error("Failed to download paper", "id", entry.ID, "title", entry.Title, "error", err)
			batch.Fail(entry.ID, domain.WrapError(domain.ErrFetch, "download "+entry.ID, err))
			continue
		}
		f.logger.Info("Downloaded paper", "path", path)

		batch.Items = append(batch.Items, domain.PaperReference{
			ID:          entry.ID,
			Title:       entry.Title,
			Authors:     entry.Authors,
			Published:   entry.Published,
			AbstractURL: entry.AbstractURL,
			Path:        path,
		})
	}

	return batch
}

// download stores the entry's PDF and returns its path. A file already on
// disk under the same name is reused.
func (f *Fetcher) download(ctx context.Context, entry Entry) (string, error) {
	if entry.PDFURL == "" {
		return "", fmt.Errorf("no pdf link for %s", entry.ID)
	}

	path := filepath.Join(f.dir, entry.FileName())
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f.logger.Debug("Reusing downloaded paper", "path", path)
		return path, nil
	}

	if err := f.client.Download(ctx, entry.PDFURL, path); err != nil {
		return "", err
	}
	return path, nil
}
