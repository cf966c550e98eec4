package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragademic/internal/config"
	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/index"
	"github.com/bull/ragademic/internal/indexer"
	"github.com/bull/ragademic/internal/logging"
	"github.com/bull/ragademic/internal/storage"
)

type unitEmbedder struct{}

func (unitEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

func (unitEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fakeIndexer struct {
	calls  int
	query  string
	chunks []domain.Chunk
	err    error
	t      *testing.T
}

func (f *fakeIndexer) Run(ctx context.Context, query string) (*indexer.IndexResult, error) {
	f.calls++
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	store, err := storage.NewChromemStore("session-test")
	require.NoError(f.t, err)
	idx, err := index.Build(ctx, f.chunks, unitEmbedder{}, store)
	require.NoError(f.t, err)
	return &indexer.IndexResult{Query: query, TotalChunks: len(f.chunks), Index: idx}, nil
}

type scriptedModel struct {
	prompts []string
	fail    map[int]bool
}

func (m *scriptedModel) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.fail[len(m.prompts)] {
		return "", errors.New("service unavailable")
	}
	return "Because of attention. thanks for asking!", nil
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.APIKey = "sk-test"
	return cfg
}

func runSession(t *testing.T, cfg config.Config, idx *fakeIndexer, model *scriptedModel, input string) (*Session, string, string, error) {
	t.Helper()
	idx.t = t
	var out, logs bytes.Buffer
	s := New(cfg, idx, model, strings.NewReader(input), &out, logging.New(&logs, "info"))
	err := s.Run(context.Background())
	return s, out.String(), logs.String(), err
}

func TestRun_ExitImmediately(t *testing.T) {
	idx := &fakeIndexer{chunks: []domain.Chunk{{ID: "c1", Text: "transformers"}}}
	model := &scriptedModel{}

	s, out, logs, err := runSession(t, validConfig(), idx, model, "transformers\nexit\n")
	require.NoError(t, err)

	assert.Equal(t, 0, s.Answered())
	assert.Equal(t, Terminated, s.State())
	assert.Empty(t, model.prompts)
	assert.Equal(t, "transformers", idx.query)
	assert.Equal(t, QueryPrompt+ReadyMessage+"\n"+QuestionPrompt, out)
	assert.Contains(t, logs, "Starting the RAG application.")
	assert.Contains(t, logs, "Exiting the RAG application.")
}

func TestRun_OneQuestionThenQuit(t *testing.T) {
	idx := &fakeIndexer{chunks: []domain.Chunk{{ID: "c1", Text: "attention is all you need"}}}
	model := &scriptedModel{}

	s, out, _, err := runSession(t, validConfig(), idx, model, "transformers\nwhy does it work?\n  QUIT  \n")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Answered())
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "attention is all you need")
	assert.Contains(t, model.prompts[0], "Question: why does it work?")
	assert.Contains(t, out, "Answer: Because of attention. thanks for asking!\n")
	assert.Equal(t, 2, strings.Count(out, QuestionPrompt))
}

func TestRun_EmptyLineReprompts(t *testing.T) {
	idx := &fakeIndexer{}
	model := &scriptedModel{}

	s, out, _, err := runSession(t, validConfig(), idx, model, "rag\n\n   \nexit\n")
	require.NoError(t, err)

	assert.Equal(t, 0, s.Answered())
	assert.Empty(t, model.prompts)
	assert.Equal(t, 3, strings.Count(out, QuestionPrompt))
}

func TestRun_EOFTerminates(t *testing.T) {
	idx := &fakeIndexer{}
	model := &scriptedModel{}

	s, _, _, err := runSession(t, validConfig(), idx, model, "rag\nwhat is rag?")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Answered(), "a final line without newline is still a question")
	assert.Equal(t, Terminated, s.State())
}

func TestRun_EOFBeforeQuery(t *testing.T) {
	idx := &fakeIndexer{}

	_, _, _, err := runSession(t, validConfig(), idx, &scriptedModel{}, "")
	require.NoError(t, err)
	assert.Zero(t, idx.calls)
}

func TestRun_InferenceErrorKeepsLoopAlive(t *testing.T) {
	idx := &fakeIndexer{chunks: []domain.Chunk{{ID: "c1", Text: "ctx"}}}
	model := &scriptedModel{fail: map[int]bool{1: true}}

	s, out, logs, err := runSession(t, validConfig(), idx, model, "rag\nfirst\nsecond\nexit\n")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Answered())
	assert.Contains(t, out, "Answer: error answering question: generate answer: inference error: service unavailable\n")
	assert.Contains(t, out, "Answer: Because of attention. thanks for asking!\n")
	assert.Contains(t, logs, "ERROR - Error answering question")
}

func TestRun_MissingAPIKey(t *testing.T) {
	idx := &fakeIndexer{}
	cfg := validConfig()
	cfg.APIKey = ""

	s, out, _, err := runSession(t, cfg, idx, &scriptedModel{}, "rag\nexit\n")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, idx.calls)
	assert.Empty(t, out)
	assert.Equal(t, Terminated, s.State())
}

func TestRun_IndexErrorAbortsSetup(t *testing.T) {
	idx := &fakeIndexer{err: domain.WrapError(domain.ErrIndex, "embed chunks", errors.New("invalid api key"))}

	_, out, _, err := runSession(t, validConfig(), idx, &scriptedModel{}, "rag\nwhat?\n")

	assert.ErrorIs(t, err, domain.ErrIndex)
	assert.NotContains(t, out, ReadyMessage)
}

// stdinReader stands in for a terminal the user never types into. reading is
// closed on the first Read of the blocking source.
type stdinReader struct {
	once    sync.Once
	reading chan struct{}
	r       io.Reader
}

func newStdinReader(t *testing.T) *stdinReader {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	return &stdinReader{reading: make(chan struct{}), r: pr}
}

func (b *stdinReader) Read(p []byte) (int, error) {
	b.once.Do(func() { close(b.reading) })
	return b.r.Read(p)
}

// runUntilBlocked starts a session, cancels it once it waits for a line that
// never arrives and returns Run's error.
func runUntilBlocked(t *testing.T, idx *fakeIndexer, model *scriptedModel, typed string) (*Session, string, error) {
	t.Helper()
	idx.t = t
	stdin := newStdinReader(t)
	var out, logs bytes.Buffer
	s := New(validConfig(), idx, model, io.MultiReader(strings.NewReader(typed), stdin), &out, logging.New(&logs, "info"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-stdin.reading:
	case <-time.After(5 * time.Second):
		t.Fatal("session never waited for input")
	}
	cancel()

	select {
	case err := <-done:
		return s, logs.String(), err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancellation")
		return nil, "", nil
	}
}

func TestRun_CancelAtQueryPrompt(t *testing.T) {
	idx := &fakeIndexer{}

	s, logs, err := runUntilBlocked(t, idx, &scriptedModel{}, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, idx.calls)
	assert.Equal(t, Terminated, s.State())
	assert.Contains(t, logs, "Session interrupted")
}

func TestRun_CancelAtQuestionPrompt(t *testing.T) {
	idx := &fakeIndexer{chunks: []domain.Chunk{{ID: "c1", Text: "ctx"}}}
	model := &scriptedModel{}

	s, _, err := runUntilBlocked(t, idx, model, "rag\n")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, idx.calls)
	assert.Empty(t, model.prompts)
	assert.Equal(t, 0, s.Answered())
	assert.Equal(t, Terminated, s.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "terminated", Terminated.String())
}
