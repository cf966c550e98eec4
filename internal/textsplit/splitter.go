// Package textsplit cuts page text into bounded, overlapping chunks.
package textsplit

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bull/ragademic/internal/config"
	"github.com/bull/ragademic/internal/domain"
)

// Default chunk geometry, in characters.
const (
	DefaultChunkSize    = 200
	DefaultChunkOverlap = 50
)

// separators in order of preference. A chunk ends right after the chosen
// separator; when none fits the window the text is cut mid-word.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// Splitter splits text into chunks of at most size characters where
// consecutive chunks of the same text share exactly overlap characters.
type Splitter struct {
	size    int
	overlap int
	logger  *slog.Logger
}

// NewSplitter validates the geometry and returns a Splitter.
func NewSplitter(size, overlap int, logger *slog.Logger) (*Splitter, error) {
	if err := config.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{size: size, overlap: overlap, logger: logger}, nil
}

// Split chunks every record in order. Blank records produce no chunks. If
// splitting fails unexpectedly the whole batch is empty and carries one
// failure.
func (s *Splitter) Split(records []domain.PageRecord) (batch domain.Batch[domain.Chunk]) {
	defer func() {
		if r := recover(); r != nil {
			err := domain.WrapError(domain.ErrSplit, "split documents", fmt.Errorf("%v", r))
			s.logger.Error("Error splitting documents", "error", err)
			batch = domain.Batch[domain.Chunk]{}
			batch.Fail("split", err)
		}
	}()

	seq := 0
	for _, rec := range records {
		for i, text := range s.SplitText(rec.Text) {
			batch.Items = append(batch.Items, domain.Chunk{
				ID:      uuid.New().String(),
				Source:  rec.Source,
				PaperID: rec.PaperID,
				Page:    rec.Page,
				Index:   i,
				Seq:     seq,
				Text:    text,
			})
			seq++
		}
	}

	s.logger.Debug("Split documents", "records", len(records), "chunks", len(batch.Items))
	return batch
}

// SplitText chunks a single text.
func (s *Splitter) SplitText(text string) []string {
	r := []rune(normalize(text))
	n := len(r)
	if n == 0 {
		return nil
	}
	if n <= s.size {
		return []string{string(r)}
	}

	var chunks []string
	start := 0
	for {
		end := start + s.size
		if end >= n {
			chunks = append(chunks, string(r[start:n]))
			return chunks
		}
		cut := breakPoint(r, start+s.overlap, end)
		chunks = append(chunks, string(r[start:cut]))
		start = cut - s.overlap
	}
}

// breakPoint returns the preferred cut position in (lo, hi].
func breakPoint(r []rune, lo, hi int) int {
	for _, sep := range separators {
		sr := []rune(sep)
		for i := hi - len(sr); i+len(sr) > lo; i-- {
			if i < 0 {
				break
			}
			if hasPrefixAt(r, sr, i) {
				return i + len(sr)
			}
		}
	}
	return hi
}

func hasPrefixAt(r, sep []rune, i int) bool {
	if i+len(sep) > len(r) {
		return false
	}
	for j, c := range sep {
		if r[i+j] != c {
			return false
		}
	}
	return true
}

// normalize collapses runs of spaces and tabs inside each line, trims the
// lines and limits blank-line runs to a single paragraph break.
func normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var b strings.Builder
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}
