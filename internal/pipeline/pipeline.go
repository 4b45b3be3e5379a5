// Package pipeline drives the three-stage compliance check: download the
// project, summarize it, then retrieve and assess against the regulatory
// corpus. Stages run strictly sequentially and short-circuit on the first
// error.
package pipeline

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"aicodeguard/internal/domain"
)

// Step identifies the pipeline stage a state is about to execute.
type Step string

const (
	StepDownloadRepo      Step = "download_repo"
	StepAnalyzeRepo       Step = "analyze_repo"
	StepAnalyzeCompliance Step = "analyze_compliance"
	StepEnd               Step = "end"
)

// Status is the externally visible progress of a check.
type Status string

const (
	StatusStarting       Status = "starting"
	StatusDownloadedRepo Status = "downloaded_repo"
	StatusAnalyzedRepo   Status = "analyzed_repo"
	StatusCompleted      Status = "completed"
	StatusError          Status = "error"
)

// Message is one append-only log entry describing a stage transition.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is the record threaded through the pipeline. Stages never mutate
// their input; each returns a new value. Once Err is set the state is
// frozen: stages become no-ops.
type State struct {
	RepoURL            string
	Branch             string
	RepoPath           string
	RepoAnalysis       *domain.Analysis
	ComplianceAnalysis *domain.Assessment
	Messages           []Message
	CurrentStep        Step
	Status             Status
	Err                string
}

// Result is what the top-level caller receives. Err is empty when the check
// completed; a non-empty Err means the analyses are absent or partial.
type Result struct {
	RepoAnalysis       *domain.Analysis
	ComplianceAnalysis *domain.Assessment
	Status             Status
	Err                string
	Messages           []Message
}

// Checker wires the three collaborators into the pipeline. All dependencies
// are injected; the checker owns no global state.
type Checker struct {
	fetcher  domain.ProjectFetcher
	analyzer domain.ProjectAnalyzer
	assessor domain.ComplianceAssessor
	logger   *log.Logger
	observer func(Message)
}

// Option configures a Checker.
type Option func(*Checker)

// WithObserver registers a callback invoked for every appended message,
// letting a front-end stream progress while the check runs.
func WithObserver(fn func(Message)) Option {
	return func(c *Checker) { c.observer = fn }
}

// NewChecker creates a Checker from its collaborators. logger may be nil.
func NewChecker(fetcher domain.ProjectFetcher, analyzer domain.ProjectAnalyzer, assessor domain.ComplianceAssessor, logger *log.Logger, opts ...Option) *Checker {
	if logger == nil {
		logger = log.Default()
	}
	c := &Checker{
		fetcher:  fetcher,
		analyzer: analyzer,
		assessor: assessor,
		logger:   logger.With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckRepository runs the full pipeline for one repository. It never
// returns a language-level failure: every stage error lands in Result.Err.
func (c *Checker) CheckRepository(ctx context.Context, repoURL, branch string) Result {
	if branch == "" {
		branch = "main"
	}
	state := State{
		RepoURL:     repoURL,
		Branch:      branch,
		Messages:    []Message{},
		CurrentStep: StepDownloadRepo,
		Status:      StatusStarting,
	}

	for _, stage := range []func(context.Context, State) State{
		c.downloadRepo,
		c.analyzeRepo,
		c.analyzeCompliance,
	} {
		state = stage(ctx, state)
		if state.Err != "" {
			break
		}
	}

	return Result{
		RepoAnalysis:       state.RepoAnalysis,
		ComplianceAnalysis: state.ComplianceAnalysis,
		Status:             state.Status,
		Err:                state.Err,
		Messages:           state.Messages,
	}
}

// downloadRepo fetches the repository to a local path.
func (c *Checker) downloadRepo(ctx context.Context, s State) State {
	return c.runStage(s, "Error downloading repository", func() (State, error) {
		path, err := c.fetcher.Fetch(ctx, s.RepoURL, s.Branch)
		if err != nil {
			return s, err
		}
		next := s
		next.RepoPath = path
		next.CurrentStep = StepAnalyzeRepo
		next.Status = StatusDownloadedRepo
		return c.withMessage(next, fmt.Sprintf(
			"Successfully downloaded repository from %s (branch: %s) to %s", s.RepoURL, s.Branch, path)), nil
	})
}

// analyzeRepo summarizes the technical behavior of the downloaded project.
func (c *Checker) analyzeRepo(ctx context.Context, s State) State {
	return c.runStage(s, "Error analyzing repository", func() (State, error) {
		analysis, err := c.analyzer.Analyze(ctx, s.RepoPath)
		if err != nil {
			return s, err
		}
		next := s
		next.RepoAnalysis = analysis
		next.CurrentStep = StepAnalyzeCompliance
		next.Status = StatusAnalyzedRepo
		return c.withMessage(next, "Successfully analyzed repository code"), nil
	})
}

// analyzeCompliance retrieves relevant regulatory passages and produces the
// compliance assessment.
func (c *Checker) analyzeCompliance(ctx context.Context, s State) State {
	return c.runStage(s, "Error analyzing compliance", func() (State, error) {
		assessment, err := c.assessor.Assess(ctx, s.RepoAnalysis.RepositorySummary)
		if err != nil {
			return s, err
		}
		next := s
		next.ComplianceAnalysis = assessment
		next.CurrentStep = StepEnd
		next.Status = StatusCompleted
		return c.withMessage(next, "Successfully analyzed compliance"), nil
	})
}

// runStage applies the shared stage contract: a state that already carries
// an error passes through untouched, and any failure (including a panic in
// a collaborator) is converted into the error state rather than propagated.
func (c *Checker) runStage(s State, errPrefix string, fn func() (State, error)) State {
	if s.Err != "" {
		return s
	}
	next, err := func() (next State, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		errMsg := errPrefix + ": " + err.Error()
		c.logger.Error("stage failed", "step", s.CurrentStep, "err", err)
		failed := s
		failed.Err = errMsg
		failed.Status = StatusError
		return c.withMessage(failed, errMsg)
	}
	c.logger.Debug("stage completed", "step", next.CurrentStep, "status", next.Status)
	return next
}

// withMessage appends one log entry without sharing the backing array with
// the input state.
func (c *Checker) withMessage(s State, content string) State {
	msg := Message{Role: "system", Content: content}
	messages := make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(messages, s.Messages)
	s.Messages = append(messages, msg)
	if c.observer != nil {
		c.observer(msg)
	}
	return s
}
