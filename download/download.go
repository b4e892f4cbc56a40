// Package download prepares the directories a real run needs: the output root, and a private scratch directory for
// the engine (its cache) that is removed when the run ends.
package download

import (
	"os"

	"go.uber.org/zap"
)

type workspaceConfig struct {
	targetDir   string
	baseTempDir string
}

type Option func(*workspaceConfig)

func WithTargetDir(dir string) Option {
	return func(c *workspaceConfig) {
		c.targetDir = dir
	}
}

func WithTempDir(dir string) Option {
	return func(c *workspaceConfig) {
		c.baseTempDir = dir
	}
}

type Workspace struct {
	config  workspaceConfig
	tempDir string
}

func newWorkspace(config workspaceConfig) (*Workspace, error) {
	// Create target directory
	if len(config.targetDir) > 0 {
		if err := os.MkdirAll(config.targetDir, 0755); err != nil {
			return nil, err
		}
	}
	// Create temporary directory
	tempDir, err := os.MkdirTemp(config.baseTempDir, "yt-fetch-*")
	if err != nil {
		return nil, err
	}
	return &Workspace{config: config, tempDir: tempDir}, nil
}

func (w *Workspace) close() {
	if err := os.RemoveAll(w.tempDir); err != nil {
		zap.S().Named("download").Warnw("failed to clean up temporary directory", "dir", w.tempDir, "error", err)
	}
}

func (w *Workspace) TargetDir() string {
	return w.config.targetDir
}

func (w *Workspace) TempDir() string {
	return w.tempDir
}

// WithWorkspace creates a Workspace, calls f with it, and cleans up the temporary directory afterwards.
func WithWorkspace(f func(w *Workspace) error, opts ...Option) error {
	config := workspaceConfig{
		baseTempDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	w, err := newWorkspace(config)
	if err != nil {
		return err
	}
	defer w.close()
	return f(w)
}
