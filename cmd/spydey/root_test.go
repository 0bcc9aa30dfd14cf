package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alvmarrod/spydey/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns the configuration it would crawl with
func execute(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var got *config.Config
	cmd := newRootCmd(func(_ context.Context, cfg *config.Config, _ io.Writer) error {
		got = cfg
		return nil
	})
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return got, err
}

func TestFlagsOverlayDefaults(t *testing.T) {
	cfg, err := execute(t, "-r", "-p", "--no-parent", "-H",
		"-t", "depth-first", "-w", "1.5", "--max-requests", "10",
		"-A", `\.html$`, "-A", `/$`, "-R", `logout`,
		"-T", "5", "-P", "--log-referrer",
		"http://example.com/docs/")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "http://example.com/docs/", cfg.SeedURL)
	assert.True(t, cfg.Recursive)
	assert.True(t, cfg.PageRequisites)
	assert.True(t, cfg.NoParent)
	assert.True(t, cfg.SpanHosts)
	assert.Equal(t, "depth-first", cfg.Traversal)
	assert.InDelta(t, 1.5, cfg.Wait, 1e-9)
	assert.Equal(t, 10, cfg.MaxRequests)
	assert.Equal(t, []string{`\.html$`, `/$`}, cfg.Accept)
	assert.Equal(t, []string{"logout"}, cfg.Reject)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
	assert.True(t, cfg.Profile)
	assert.True(t, cfg.LogReferrer)
}

func TestDefaultsWithoutFlags(t *testing.T) {
	cfg, err := execute(t, "http://example.com/")
	require.NoError(t, err)

	assert.False(t, cfg.Recursive)
	assert.Equal(t, config.DefaultTraversal, cfg.Traversal)
	assert.Equal(t, config.DefaultTimeoutSeconds, cfg.TimeoutSeconds)
	assert.Equal(t, config.DefaultProfileSize, cfg.ProfileSize)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spydey.yaml")
	content := "seed_url: http://example.com/\nrecursive: true\ntraversal: random\nmax_requests: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := execute(t, "--config", path, "--max-requests", "3")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/", cfg.SeedURL)
	assert.True(t, cfg.Recursive)
	assert.Equal(t, "random", cfg.Traversal)
	assert.Equal(t, 3, cfg.MaxRequests)
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing url", nil, config.ErrNoSeedURL},
		{"relative url", []string{"/just/a/path"}, config.ErrInvalidSeedURL},
		{"negative max requests", []string{"--max-requests=-1", "http://example.com/"}, config.ErrInvalidMaxRequests},
		{"negative wait", []string{"--wait=-2", "http://example.com/"}, config.ErrInvalidWait},
		{"bad log level", []string{"--loglevel", "chatty", "http://example.com/"}, config.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, cfg)
		})
	}
}

func TestUnknownTraversalRejected(t *testing.T) {
	_, err := execute(t, "-t", "sideways", "http://example.com/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestTooManyArguments(t *testing.T) {
	_, err := execute(t, "http://a.example/", "http://b.example/")
	assert.Error(t, err)
}
