package compliance

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicodeguard/internal/domain"
)

type stubRetriever struct {
	chunks []domain.Chunk
	err    error
	gotK   int
	gotQ   string
}

func (s *stubRetriever) SearchRelevant(_ context.Context, query string, k int) ([]domain.Chunk, error) {
	s.gotQ = query
	s.gotK = k
	return s.chunks, s.err
}

type stubLLM struct {
	lastUser string
	err      error
}

func (s *stubLLM) Complete(_ context.Context, _, user string) (string, error) {
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return "classified as limited risk", nil
}

func TestAssess(t *testing.T) {
	ret := &stubRetriever{chunks: []domain.Chunk{
		{Text: "transparency obligations", SourceID: domain.SourceID, ArticleLabel: "50"},
		{Text: "risk management system", SourceID: domain.SourceID, ArticleLabel: "9", TitleLabel: "III"},
	}}
	llm := &stubLLM{}

	a := New(ret, llm, 0, nil)
	got, err := a.Assess(context.Background(), "a chatbot service")
	require.NoError(t, err)

	assert.Equal(t, "classified as limited risk", got.Narrative)
	assert.Equal(t, []string{"transparency obligations", "risk management system"}, got.RelevantSections)

	assert.Equal(t, "a chatbot service", ret.gotQ)
	assert.Equal(t, defaultTopK, ret.gotK)

	assert.Contains(t, llm.lastUser, "a chatbot service")
	assert.Contains(t, llm.lastUser, "Section: transparency obligations\nSource: regulatory-corpus, Article 50")
	assert.Contains(t, llm.lastUser, "Section: risk management system\nSource: regulatory-corpus, Article 9, Title III")
}

func TestAssessCustomTopK(t *testing.T) {
	ret := &stubRetriever{chunks: []domain.Chunk{{Text: "x"}}}
	a := New(ret, &stubLLM{}, 3, nil)
	_, err := a.Assess(context.Background(), "summary")
	require.NoError(t, err)
	assert.Equal(t, 3, ret.gotK)
}

func TestAssessRetrievalFailure(t *testing.T) {
	ret := &stubRetriever{err: fmt.Errorf("%w: index offline", domain.ErrEmptyIndex)}
	a := New(ret, &stubLLM{}, 0, nil)
	_, err := a.Assess(context.Background(), "summary")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestAssessLLMFailure(t *testing.T) {
	ret := &stubRetriever{chunks: []domain.Chunk{{Text: "x"}}}
	a := New(ret, &stubLLM{err: fmt.Errorf("model overloaded")}, 0, nil)
	_, err := a.Assess(context.Background(), "summary")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "compliance analysis:"), err.Error())
}
