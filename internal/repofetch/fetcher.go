// Package repofetch downloads code projects for analysis via shallow git
// clones.
package repofetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// fallbackBranches are tried in order when the requested branch does not
// exist on the remote.
var fallbackBranches = []string{"master", "main", "develop"}

// GitFetcher clones repositories into a base directory, one subdirectory
// per owner/repo pair. An existing clone is replaced, not reused.
type GitFetcher struct {
	baseDir string
	logger  *log.Logger
}

// New creates a GitFetcher that clones under baseDir.
func New(baseDir string, logger *log.Logger) *GitFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &GitFetcher{baseDir: baseDir, logger: logger.With("component", "repofetch")}
}

// Fetch clones the repository at url, preferring the requested branch and
// falling back through common default branch names. It returns the local
// path of the working tree.
func (f *GitFetcher) Fetch(ctx context.Context, repoURL, branch string) (string, error) {
	dest, err := f.clonePath(repoURL)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("clear previous clone: %w", err)
	}

	var lastErr error
	for _, b := range candidateBranches(branch) {
		f.logger.Debug("cloning", "url", repoURL, "branch", b, "dest", dest)
		_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:           repoURL,
			ReferenceName: plumbing.NewBranchReferenceName(b),
			SingleBranch:  true,
			Depth:         1,
		})
		if err == nil {
			return dest, nil
		}
		lastErr = err
		_ = os.RemoveAll(dest)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("clone %s: %w", repoURL, lastErr)
}

// clonePath derives the destination directory from the repository URL,
// matching the owner_repo layout of the data directory.
func (f *GitFetcher) clonePath(repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid repository URL %q", repoURL)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid repository URL %q: expected owner/repo path", repoURL)
	}
	repo := strings.TrimSuffix(parts[1], ".git")
	return filepath.Join(f.baseDir, parts[0]+"_"+repo), nil
}

// candidateBranches returns the requested branch followed by the fallback
// defaults, without duplicates.
func candidateBranches(branch string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, b := range append([]string{branch}, fallbackBranches...) {
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}
