package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/logging"
)

type fakeExtractor struct {
	pages map[string][]string
	calls []string
}

func (f *fakeExtractor) ExtractPages(_ context.Context, path string) ([]string, error) {
	f.calls = append(f.calls, path)
	if path == "panic.pdf" {
		panic("broken xref table")
	}
	pages, ok := f.pages[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return pages, nil
}

func TestLoad_SkipsBadPathAndLogsOnce(t *testing.T) {
	var logs bytes.Buffer
	extractor := &fakeExtractor{pages: map[string][]string{
		"a.pdf": {"page one", "page two"},
		"c.pdf": {"only page"},
	}}
	l := New(extractor, logging.New(&logs, "info"))

	batch := l.Load(context.Background(), []domain.PaperReference{
		{ID: "1", Path: "a.pdf"},
		{ID: "2", Path: "b.pdf"},
		{ID: "3", Path: "c.pdf"},
	})

	require.Len(t, batch.Items, 3)
	assert.Equal(t, domain.PageRecord{Source: "a.pdf", PaperID: "1", Page: 0, Text: "page one"}, batch.Items[0])
	assert.Equal(t, domain.PageRecord{Source: "a.pdf", PaperID: "1", Page: 1, Text: "page two"}, batch.Items[1])
	assert.Equal(t, domain.PageRecord{Source: "c.pdf", PaperID: "3", Page: 0, Text: "only page"}, batch.Items[2])

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "b.pdf", batch.Failures[0].Item)
	assert.ErrorIs(t, batch.Failures[0].Err, domain.ErrLoad)

	assert.Equal(t, 1, strings.Count(logs.String(), " - ERROR - "))
	assert.Contains(t, logs.String(), "path=b.pdf")
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, extractor.calls)
}

func TestLoad_AllPathsFail(t *testing.T) {
	var logs bytes.Buffer
	l := New(&fakeExtractor{}, logging.New(&logs, "info"))

	batch := l.LoadPaths(context.Background(), []string{"x.pdf", "panic.pdf"})

	assert.True(t, batch.Empty())
	assert.Len(t, batch.Failures, 2)
	assert.Contains(t, batch.Failures[1].Reason(), "extractor panic")
	assert.Contains(t, logs.String(), "No document could be loaded")
}

func TestLoad_Empty(t *testing.T) {
	var logs bytes.Buffer
	batch := New(&fakeExtractor{}, logging.New(&logs, "info")).Load(context.Background(), nil)

	assert.True(t, batch.Empty())
	assert.Empty(t, batch.Failures)
	assert.Empty(t, logs.String())
}

func TestPDFExtractor_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	_, err := PDFExtractor{}.ExtractPages(context.Background(), path)
	assert.Error(t, err)
}

func TestPDFExtractor_MissingFile(t *testing.T) {
	_, err := PDFExtractor{}.ExtractPages(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
