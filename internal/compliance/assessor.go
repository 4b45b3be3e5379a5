// Package compliance produces the compliance assessment by pairing a
// project summary with the regulatory passages most relevant to it.
package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"aicodeguard/internal/domain"
)

// ChatCompleter is the LLM surface the assessor needs.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	defaultTopK = 5

	systemPrompt = "You are a technical compliance expert on AI regulation. " +
		"Given a repository description and regulatory passages, classify the system, " +
		"identify the applicable provisions, and recommend compliance measures."
)

// Assessor retrieves relevant regulatory chunks and asks the LLM for a
// structured compliance narrative.
type Assessor struct {
	retriever domain.Retriever
	llm       ChatCompleter
	topK      int
	logger    *log.Logger
}

// New creates an Assessor. topK bounds the retrieved passages; zero selects
// the default.
func New(retriever domain.Retriever, llm ChatCompleter, topK int, logger *log.Logger) *Assessor {
	if topK <= 0 {
		topK = defaultTopK
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Assessor{retriever: retriever, llm: llm, topK: topK, logger: logger.With("component", "compliance")}
}

// Assess retrieves the passages most relevant to the repository summary and
// produces the compliance narrative.
func (a *Assessor) Assess(ctx context.Context, repositorySummary string) (*domain.Assessment, error) {
	chunks, err := a.retriever.SearchRelevant(ctx, repositorySummary, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve regulatory passages: %w", err)
	}
	a.logger.Debug("retrieved passages", "count", len(chunks))

	sections := make([]string, len(chunks))
	var formatted strings.Builder
	for i, ch := range chunks {
		sections[i] = ch.Text
		fmt.Fprintf(&formatted, "Section: %s\nSource: %s\n\n", ch.Text, ch.SourceLabel())
	}

	prompt := fmt.Sprintf(
		"Repository description:\n\n%s\n\nRelevant regulatory passages:\n\n%s",
		repositorySummary, formatted.String())
	narrative, err := a.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("compliance analysis: %w", err)
	}

	return &domain.Assessment{Narrative: narrative, RelevantSections: sections}, nil
}
