// Package session runs the interactive question-answering loop.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bull/ragademic/internal/config"
	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/indexer"
	"github.com/bull/ragademic/internal/llm"
	"github.com/bull/ragademic/internal/rag"
)

// Console prompts and messages.
const (
	QueryPrompt    = "Enter the arXiv search query: "
	ReadyMessage   = "Enter your questions to the model. Type 'exit' to quit."
	QuestionPrompt = "Enter your question: "
)

// State is the position of a session in its lifecycle.
type State int

const (
	Setup State = iota
	Ready
	Answering
	Terminated
)

func (s State) String() string {
	switch s {
	case Setup:
		return "setup"
	case Ready:
		return "ready"
	case Answering:
		return "answering"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Indexer builds the index for a search query.
type Indexer interface {
	Run(ctx context.Context, query string) (*indexer.IndexResult, error)
}

// Session is one run of the console application: a single search query
// followed by any number of questions.
type Session struct {
	cfg     config.Config
	indexer Indexer
	model   llm.LanguageModel
	in      *bufio.Reader
	out     io.Writer
	logger  *slog.Logger

	state    State
	answered int
	result   *indexer.IndexResult
}

// New creates a session reading user input from in and writing to out.
func New(cfg config.Config, idx Indexer, model llm.LanguageModel, in io.Reader, out io.Writer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:     cfg,
		indexer: idx,
		model:   model,
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logger,
		state:   Setup,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Answered returns how many questions received an answer.
func (s *Session) Answered() int {
	return s.answered
}

// Result returns the indexing result of the setup stage, nil before it ran.
func (s *Session) Result() *indexer.IndexResult {
	return s.result
}

// Run validates the configuration, builds the index for the query the user
// enters and answers questions until the user types exit or quit, input
// ends, or ctx is cancelled. Configuration and index errors end the session
// with an error; a failed answer is reported and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	defer func() { s.state = Terminated }()

	if err := s.cfg.Validate(); err != nil {
		s.logger.Error("Invalid configuration", "error", err)
		return err
	}
	s.logger.Info("Starting the RAG application.")

	query, ok, err := s.prompt(ctx, QueryPrompt)
	if err != nil {
		s.logger.Info("Session interrupted", "error", err)
		return err
	}
	if !ok {
		s.logger.Info("Exiting the RAG application.")
		return nil
	}

	result, err := s.indexer.Run(ctx, strings.TrimSpace(query))
	if err != nil {
		return err
	}
	if result == nil || result.Index == nil {
		return domain.WrapError(domain.ErrIndex, "build index", errors.New("indexer returned no index"))
	}
	s.result = result
	defer func() {
		if err := result.Index.Close(); err != nil {
			s.logger.Warn("Failed to close index", "error", err)
		}
	}()

	composer := rag.NewComposer(result.Index, s.model, s.cfg.TopK)
	fmt.Fprintln(s.out, ReadyMessage)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.state = Ready
		line, ok, err := s.prompt(ctx, QuestionPrompt)
		if err != nil {
			s.logger.Info("Session interrupted", "answered", s.answered, "error", err)
			return err
		}
		if !ok {
			break
		}
		question := strings.TrimSpace(line)
		if isExit(question) {
			break
		}
		if question == "" {
			continue
		}

		s.state = Answering
		answer, err := composer.Answer(ctx, question)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Error("Error answering question", "question", question, "error", err)
			fmt.Fprintf(s.out, "Answer: error answering question: %v\n", err)
			continue
		}

		s.answered++
		s.logger.Info("Answered question", "question", question, "sources", len(answer.Sources))
		fmt.Fprintf(s.out, "Answer: %s\n", answer.Text)
	}

	s.logger.Info("Exiting the RAG application.", "answered", s.answered)
	return nil
}

type readResult struct {
	line string
	err  error
}

// prompt writes p and reads one line. It reports false once input is
// exhausted and returns ctx's error if ctx ends while the read is blocked.
// An abandoned read is left to finish in the background; the session never
// reads again after that.
func (s *Session) prompt(ctx context.Context, p string) (string, bool, error) {
	fmt.Fprint(s.out, p)

	done := make(chan readResult, 1)
	go func() {
		line, err := s.in.ReadString('\n')
		done <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case r := <-done:
		if r.err != nil && (r.line == "" || !errors.Is(r.err, io.EOF)) {
			return "", false, nil
		}
		return strings.TrimRight(r.line, "\r\n"), true, nil
	}
}

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}
