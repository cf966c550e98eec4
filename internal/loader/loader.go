// Package loader extracts per-page text from downloaded papers.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/ragademic/internal/domain"
)

// TextExtractor returns the text of each page of the document at path.
type TextExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// Loader turns paper files into page records.
type Loader struct {
	extractor TextExtractor
	logger    *slog.Logger
}

// New creates a Loader. A nil extractor reads PDFs.
func New(extractor TextExtractor, logger *slog.Logger) *Loader {
	if extractor == nil {
		extractor = PDFExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{extractor: extractor, logger: logger}
}

// Load extracts one PageRecord per page of every paper, in input order. A
// paper that cannot be read is logged once, recorded as a failure and skipped.
func (l *Loader) Load(ctx context.Context, papers []domain.PaperReference) domain.Batch[domain.PageRecord] {
	var batch domain.Batch[domain.PageRecord]

	for _, paper := range papers {
		pages, err := l.extract(ctx, paper.Path)
		if err != nil {
			l.logger.Error("Error loading file", "path", paper.Path, "error", err)
			batch.Fail(paper.Path, domain.WrapError(domain.ErrLoad, "load "+paper.Path, err))
			continue
		}

		for i, text := range pages {
			batch.Items = append(batch.Items, domain.PageRecord{
				Source:  paper.Path,
				PaperID: paper.ID,
				Page:    i,
				Text:    text,
			})
		}
		l.logger.Debug("Loaded file", "path", paper.Path, "pages", len(pages))
	}

	if len(papers) > 0 && len(batch.Failures) == len(papers) {
		l.logger.Error("No document could be loaded", "files", len(papers))
	}
	return batch
}

// LoadPaths is Load for files that did not come from the fetcher.
func (l *Loader) LoadPaths(ctx context.Context, paths []string) domain.Batch[domain.PageRecord] {
	papers := make([]domain.PaperReference, len(paths))
	for i, p := range paths {
		papers[i] = domain.PaperReference{Path: p}
	}
	return l.Load(ctx, papers)
}

func (l *Loader) extract(ctx context.Context, path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return l.extractor.ExtractPages(ctx, path)
}
