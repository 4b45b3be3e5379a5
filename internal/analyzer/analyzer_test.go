package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	calls []string
	fail  func(user string) bool
}

func (s *stubLLM) Complete(_ context.Context, system, user string) (string, error) {
	s.calls = append(s.calls, user)
	if s.fail != nil && s.fail(user) {
		return "", fmt.Errorf("model refused")
	}
	if strings.Contains(system, "synthesizing") {
		return "overall summary", nil
	}
	return "file analysis", nil
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestAnalyze(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py":                "import torch\n",
		"service/handler.go":     "package service\n",
		"docs/readme.txt":        "not code",
		"node_modules/x/y.js":    "vendored",
		".git/config":            "ignored",
		"assets/logo.png":        "binary",
		"package-lock.json":      "{}",
		"scripts/train_model.py": "model.fit()\n",
	})

	llm := &stubLLM{}
	a := New(llm, 0, nil)
	analysis, err := a.Analyze(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "overall summary", analysis.RepositorySummary)
	require.Len(t, analysis.FileAnalyses, 3)
	paths := make([]string, len(analysis.FileAnalyses))
	for i, fa := range analysis.FileAnalyses {
		paths[i] = fa.Path
	}
	assert.Contains(t, paths, "main.py")
	assert.Contains(t, paths, filepath.Join("service", "handler.go"))
	assert.Contains(t, paths, filepath.Join("scripts", "train_model.py"))
}

func TestAnalyzeSkipsFailingFiles(t *testing.T) {
	root := writeProject(t, map[string]string{
		"good.py": "print('ok')\n",
		"bad.py":  "broken\n",
	})

	llm := &stubLLM{fail: func(user string) bool { return strings.Contains(user, "bad.py") }}
	a := New(llm, 0, nil)
	analysis, err := a.Analyze(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, analysis.FileAnalyses, 1)
	assert.Equal(t, "good.py", analysis.FileAnalyses[0].Path)
}

func TestAnalyzeNoCodeFiles(t *testing.T) {
	root := writeProject(t, map[string]string{"data.csv": "a,b\n"})
	a := New(&stubLLM{}, 0, nil)
	_, err := a.Analyze(context.Background(), root)
	assert.Error(t, err)
}

func TestAnalyzeCapsFiles(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 6; i++ {
		files[fmt.Sprintf("f%d.py", i)] = "code\n"
	}
	root := writeProject(t, files)

	llm := &stubLLM{}
	a := New(llm, 2, nil)
	analysis, err := a.Analyze(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, analysis.FileAnalyses, 2)
}
