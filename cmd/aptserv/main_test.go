package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for -h")
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "services")
	assert.Contains(t, out.String(), "-output_dir")
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	badConfig := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(badConfig, []byte("packages = [\n"), 0600))

	testCases := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{
			name:   "unknown flag",
			args:   []string{"-nope", "./..."},
			errMsg: "flag provided but not defined: -nope",
		},
		{
			name:   "bad log format",
			args:   []string{"-log-format", "xml", "./..."},
			errMsg: "invalid log-format",
		},
		{
			name:   "bad log level",
			args:   []string{"-log-level", "loud", "./..."},
			errMsg: "invalid log-level",
		},
		{
			name:   "missing config",
			args:   []string{"-config", filepath.Join(t.TempDir(), "missing.hcl"), "./..."},
			errMsg: "failed to parse HCL file",
		},
		{
			name:   "bad config",
			args:   []string{"-config", badConfig, "./..."},
			errMsg: "failed to parse HCL file",
		},
		{
			name:   "unknown processor",
			args:   []string{"-processors", "services,nope", "./..."},
			errMsg: `no processor named "nope"`,
		},
		{
			name:   "nameless option",
			args:   []string{"-A", "=x", "./..."},
			errMsg: `option "=x" has no name`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := run(&bytes.Buffer{}, tc.args)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.errMsg)
		})
	}
}

func TestRun_NoPackages(t *testing.T) {
	t.Parallel()

	cfg := filepath.Join(t.TempDir(), "autoserv.hcl")
	require.NoError(t, os.WriteFile(cfg, []byte(`output_dir = "out"`), 0600))

	out := &bytes.Buffer{}
	err := run(out, []string{"-config", cfg})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, "must supply at least one package pattern", exitErr.Message)
	assert.Contains(t, out.String(), "Usage:")
}

func TestExpandOptionArgs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		args []string
		want []string
	}{
		{
			args: []string{"-Averify", "./..."},
			want: []string{"-A", "verify", "./..."},
		},
		{
			args: []string{"-Alevel=2", "-A", "debug", "-A=x"},
			want: []string{"-A", "level=2", "-A", "debug", "-A=x"},
		},
		{
			args: []string{"-output_dir", "out", "--", "-Anot"},
			want: []string{"-output_dir", "out", "--", "-Anot"},
		},
		{
			args: []string{},
			want: []string{},
		},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, expandOptionArgs(tc.args), "args %q", tc.args)
	}
}

func TestOptionsFlag(t *testing.T) {
	t.Parallel()

	opts := optionsFlag{}
	require.NoError(t, opts.Set("verify"))
	require.NoError(t, opts.Set("level=1"))
	require.NoError(t, opts.Set("level=2"))
	require.NoError(t, opts.Set("expr=a=b"))
	require.Error(t, opts.Set(""))

	assert.Equal(t, optionsFlag{"verify": "", "level": "2", "expr": "a=b"}, opts)
	assert.Equal(t, "expr=a=b,level=2,verify", opts.String())
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"services", "tostring"}, splitList(" services, ,tostring,"))
	assert.Nil(t, splitList(""))
}

const demoSrc = `package demo

// Codec encodes values.
type Codec interface {
	Encode(v any) ([]byte, error)
}

// JSON is the JSON codec.
//
// @autoserv.Provides(Codec)
type JSON struct{}

func (JSON) Encode(v any) ([]byte, error) { return nil, nil }
`

const brokenSrc = `package demo

// @autoserv.Provides(Codec)
type Broken struct{}
`

// setUpModule writes a throwaway module into a temp directory and changes
// into it. Tests that use it cannot run in parallel.
func setUpModule(t *testing.T, srcs map[string]string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n\ngo 1.21\n"), 0600))
	for name, src := range srcs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0600))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(dir))
	return dir
}

func TestRun_WritesRegistry(t *testing.T) {
	dir := setUpModule(t, map[string]string{"demo.go": demoSrc})
	outDir := filepath.Join(dir, "build")

	out := &bytes.Buffer{}
	err := run(out, []string{"-output_dir", outDir, "-processors", "services", "-Averify", "./..."})
	require.NoError(t, err, "output: %s", out.String())

	content, err := os.ReadFile(filepath.Join(outDir, "META-INF", "services", "example.com.demo.Codec"))
	require.NoError(t, err)
	assert.Equal(t, "example.com.demo.JSON\n", string(content))
}

func TestRun_ConfigFile(t *testing.T) {
	dir := setUpModule(t, map[string]string{
		"demo.go": demoSrc,
		"autoserv.hcl": `
output_dir = "classes"
packages   = ["./..."]
processors = ["services"]
options    = { verify = "" }
`,
	})

	out := &bytes.Buffer{}
	require.NoError(t, run(out, nil), "output: %s", out.String())

	content, err := os.ReadFile(filepath.Join(dir, "classes", "META-INF", "services", "example.com.demo.Codec"))
	require.NoError(t, err)
	assert.Equal(t, "example.com.demo.JSON\n", string(content))
}

func TestRun_ErrorsReported(t *testing.T) {
	dir := setUpModule(t, map[string]string{"demo.go": demoSrc, "broken.go": brokenSrc})
	outDir := filepath.Join(dir, "build")

	out := &bytes.Buffer{}
	err := run(out, []string{"-output_dir", outDir, "-processors", "services", "-Averify", "./..."})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "1 error reported", exitErr.Message)
	assert.Contains(t, out.String(), "broken.go:3:4: error: ServiceProviders must implement their service provider interface.")

	content, err := os.ReadFile(filepath.Join(outDir, "META-INF", "services", "example.com.demo.Codec"))
	require.NoError(t, err)
	assert.Equal(t, "example.com.demo.JSON\n", string(content), "only the valid provider is registered")
}
