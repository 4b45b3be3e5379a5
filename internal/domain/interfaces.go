package domain

import "context"

// SourceID identifies the regulatory corpus every chunk originates from.
const SourceID = "regulatory-corpus"

// Chunk is a bounded window of the regulatory text with provenance metadata.
// Chunks are immutable once created; SequenceIndex is unique within a section.
type Chunk struct {
	Text                 string `json:"text"`
	SourceID             string `json:"source_id"`
	SequenceIndex        int    `json:"sequence_index"`
	TotalChunksInSection int    `json:"total_chunks_in_section"`
	SectionIndex         int    `json:"section_index"`
	ArticleLabel         string `json:"article_label,omitempty"`
	TitleLabel           string `json:"title_label,omitempty"`
}

// SourceLabel renders the chunk's provenance for display and prompting.
func (c Chunk) SourceLabel() string {
	label := c.SourceID
	if c.ArticleLabel != "" {
		label += ", Article " + c.ArticleLabel
	}
	if c.TitleLabel != "" {
		label += ", Title " + c.TitleLabel
	}
	return label
}

// FileAnalysis is the per-file output of project summarization.
type FileAnalysis struct {
	Path     string
	Analysis string
}

// Analysis is the technical summary of a fetched project.
type Analysis struct {
	RepositorySummary string
	FileAnalyses      []FileAnalysis
}

// Assessment is the output of the compliance stage.
type Assessment struct {
	Narrative        string
	RelevantSections []string
}

// EmbeddingGateway converts text to fixed-dimension vectors. It is a remote,
// rate-limited service; callers must expect transient failures.
type EmbeddingGateway interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// ProjectFetcher downloads a code project to a local path.
type ProjectFetcher interface {
	Fetch(ctx context.Context, url, branch string) (localPath string, err error)
}

// ProjectAnalyzer summarizes the technical behavior of a local project.
type ProjectAnalyzer interface {
	Analyze(ctx context.Context, localPath string) (*Analysis, error)
}

// ComplianceAssessor compares a project summary against the regulatory
// passages most relevant to it.
type ComplianceAssessor interface {
	Assess(ctx context.Context, repositorySummary string) (*Assessment, error)
}

// Retriever returns the regulatory chunks most similar to free-text queries.
type Retriever interface {
	SearchRelevant(ctx context.Context, query string, k int) ([]Chunk, error)
}
