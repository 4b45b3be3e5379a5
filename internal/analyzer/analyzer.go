// Package analyzer summarizes the technical behavior of a local code
// project for regulatory assessment.
package analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"aicodeguard/internal/domain"
)

// ChatCompleter is the LLM surface the analyzer needs.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// codeExtensions lists the file types considered worth analyzing.
var codeExtensions = map[string]bool{
	"py": true, "js": true, "jsx": true, "ts": true, "tsx": true,
	"java": true, "c": true, "cpp": true, "h": true, "hpp": true,
	"cs": true, "go": true, "rb": true, "php": true, "scala": true,
	"swift": true, "rs": true, "kt": true, "kts": true,
	"html": true, "css": true, "scss": true, "sass": true, "less": true,
	"sh": true, "bash": true, "r": true,
}

// ignorePatterns excludes vendored, generated and housekeeping paths.
var ignorePatterns = []string{
	"LICENSE", "README", ".git", ".github", ".gitignore",
	".DS_Store", ".env", ".venv", ".idea", ".vscode",
	"package-lock.json", "yarn.lock", "Cargo.lock", "Gemfile.lock",
	"node_modules", "dist", "build", "target", "__pycache__",
}

const (
	defaultMaxFiles    = 20
	maxFileContentSize = 6000

	fileSystemPrompt = "You are a technical expert analyzing code for AI capabilities, " +
		"data processing methods, and aspects relevant to AI regulation. " +
		"Provide a concise technical assessment."

	repoSystemPrompt = "You are a technical expert synthesizing per-file analyses of a " +
		"repository into one technical summary usable for regulatory assessment. " +
		"Describe the system's AI capabilities, data processing, and user impact."
)

// Analyzer produces a repository summary through per-file LLM analysis
// followed by a synthesis pass.
type Analyzer struct {
	llm      ChatCompleter
	maxFiles int
	logger   *log.Logger
}

// New creates an Analyzer. maxFiles bounds the number of files analyzed;
// zero selects the default.
func New(llm ChatCompleter, maxFiles int, logger *log.Logger) *Analyzer {
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{llm: llm, maxFiles: maxFiles, logger: logger.With("component", "analyzer")}
}

// Analyze walks the project, analyzes each code file, and synthesizes the
// per-file results into a repository summary. A file whose analysis fails
// is skipped with a warning; the run fails only when the project has no
// analyzable files at all.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*domain.Analysis, error) {
	files, err := a.collectFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no analyzable code files under %s", root)
	}
	if len(files) > a.maxFiles {
		a.logger.Info("capping analyzed files", "total", len(files), "cap", a.maxFiles)
		files = files[:a.maxFiles]
	}

	var analyses []domain.FileAnalysis
	for _, rel := range files {
		content, err := readCapped(filepath.Join(root, rel))
		if err != nil || strings.TrimSpace(content) == "" {
			continue
		}
		prompt := fmt.Sprintf("File path: %s\n\n```%s\n%s\n```", rel, fileExtension(rel), content)
		result, err := a.llm.Complete(ctx, fileSystemPrompt, prompt)
		if err != nil {
			a.logger.Warn("file analysis failed, skipping", "path", rel, "err", err)
			continue
		}
		analyses = append(analyses, domain.FileAnalysis{Path: rel, Analysis: result})
	}
	if len(analyses) == 0 {
		return nil, fmt.Errorf("no file analysis succeeded under %s", root)
	}

	var b strings.Builder
	for _, fa := range analyses {
		fmt.Fprintf(&b, "File: %s\n%s\n\n", fa.Path, fa.Analysis)
	}
	summary, err := a.llm.Complete(ctx, repoSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("synthesize repository summary: %w", err)
	}

	return &domain.Analysis{RepositorySummary: summary, FileAnalyses: analyses}, nil
}

// collectFiles returns the relative paths of analyzable code files, in
// lexical walk order for deterministic output.
func (a *Analyzer) collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isCodeFile(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk project: %w", err)
	}
	return files, nil
}

func ignored(rel string) bool {
	for _, pattern := range ignorePatterns {
		if strings.Contains(rel, pattern) {
			return true
		}
	}
	return false
}

func isCodeFile(path string) bool {
	return codeExtensions[fileExtension(path)]
}

func fileExtension(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

func readCapped(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) > maxFileContentSize {
		data = data[:maxFileContentSize]
	}
	return string(data), nil
}
