// Package chunker splits a long structured legal document into sections and
// overlapping text windows suitable for retrieval indexing.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"aicodeguard/internal/domain"
)

// Defaults sized for regulatory text: large windows to capture context,
// generous overlap to keep article boundaries readable across chunks.
const (
	DefaultTargetSize = 2000
	DefaultOverlap    = 200
)

// sectionMarker matches a structural heading at the start of a line,
// followed by an identifier. Section boundaries depend only on these
// positions, never on chunk size.
var sectionMarker = regexp.MustCompile(`(?im)^(?:CHAPTER|ARTICLE|TITLE|ANNEX|SECTION)\s+\S+`)

var (
	articleLabelRe = regexp.MustCompile(`(?:Article|ARTICLE)\s+([^\n]+)`)
	titleLabelRe   = regexp.MustCompile(`(?:Title|TITLE)\s+([^\n]+)`)
)

// breakMarkers are preferred window break points, ordered by priority.
// A marker break puts the heading at the start of the next window.
var breakMarkers = []string{"\nArticle ", "\nARTICLE ", "\nTitle ", "\nTITLE "}

// Chunker splits documents into overlapping character windows.
type Chunker struct {
	targetSize int
	overlap    int
}

// New creates a Chunker. Zero values select the defaults; an overlap that is
// negative or not smaller than the target size is a configuration error.
func New(targetSize, overlap int) (*Chunker, error) {
	if targetSize == 0 && overlap == 0 {
		targetSize, overlap = DefaultTargetSize, DefaultOverlap
	}
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: target size %d must be positive", domain.ErrConfiguration, targetSize)
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrConfiguration, overlap, targetSize)
	}
	return &Chunker{targetSize: targetSize, overlap: overlap}, nil
}

// SplitIntoSections divides the document at structural markers. Text before
// the first marker becomes a synthetic preamble section. A document with no
// markers is a single section.
func SplitIntoSections(text string) []string {
	matches := sectionMarker.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}
	var sections []string
	if matches[0][0] > 0 {
		sections = append(sections, text[:matches[0][0]])
	}
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, text[m[0]:end])
	}
	return sections
}

// ChunkText greedily fills windows of at most the target size, breaking at
// the best available boundary and carrying the configured overlap between
// consecutive windows.
func (c *Chunker) ChunkText(text string) []string {
	if len(text) <= c.targetSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.targetSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		cut := bestBreak(text[start:end])
		if cut <= 0 {
			// Hard cut: back off to a rune start so a window never splits
			// a UTF-8 sequence.
			cut = c.targetSize
			for cut > 1 && !utf8.RuneStart(text[start+cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[start:start+cut])
		next := start + cut - c.overlap
		if next <= start {
			next = start + 1
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return chunks
}

// bestBreak finds the preferred cut position inside a window: a following
// Article/Title heading, then a blank line, a newline, a space, else 0.
func bestBreak(window string) int {
	for _, m := range breakMarkers {
		if idx := strings.LastIndex(window, m); idx > 0 {
			return idx + 1
		}
	}
	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx + 2
	}
	if idx := strings.LastIndex(window, "\n"); idx > 0 {
		return idx + 1
	}
	if idx := strings.LastIndex(window, " "); idx > 0 {
		return idx + 1
	}
	return 0
}

// ChunkDocument splits the document into sections, chunks each section, and
// attaches provenance metadata to every chunk.
func (c *Chunker) ChunkDocument(text string) []domain.Chunk {
	var out []domain.Chunk
	for sectionIdx, section := range SplitIntoSections(text) {
		parts := c.ChunkText(section)
		for seq, part := range parts {
			out = append(out, domain.Chunk{
				Text:                 part,
				SourceID:             domain.SourceID,
				SequenceIndex:        seq,
				TotalChunksInSection: len(parts),
				SectionIndex:         sectionIdx,
				ArticleLabel:         extractLabel(articleLabelRe, part),
				TitleLabel:           extractLabel(titleLabelRe, part),
			})
		}
	}
	return out
}

func extractLabel(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
