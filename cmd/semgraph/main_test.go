package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/export"
	"github.com/c360studio/semgraph/vocabulary/nuget"
)

const (
	samplePath = "testdata/package.json"
	pkgIRI     = "http://tempuri.org/package/MyPackage.1.0.0"
)

// execute runs the root command with an isolated home directory so user
// config does not leak into tests.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NATS_URL", "")
	t.Setenv("SEMGRAPH_NATS_URL", "")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "semgraph version "+Version+" (build: "+BuildTime+")\n", out)
}

func TestCanonicalizeCommand_NTriples(t *testing.T) {
	out, err := execute(t, "canonicalize", "--format", "ntriples", samplePath)
	require.NoError(t, err)

	assert.Contains(t, out, "<"+pkgIRI+"> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <"+nuget.ClassPackage+"> .")
	assert.Contains(t, out, "<"+pkgIRI+"#dependencyGroups/dependencies>")
	assert.NotContains(t, out, "_:", "every blank node is replaced")
}

func TestCanonicalizeCommand_IndexedToFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "graph.jsonld")
	metricsPath := filepath.Join(dir, "metrics.prom")

	out, err := execute(t, "canonicalize", "--indexed", "-f", "jsonld",
		"-o", outPath, "--metrics-file", metricsPath, samplePath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, string(data), pkgIRI+"#dependencyGroups[2]/dependencies[0]")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `semgraph_canon_roots_total{outcome="ok"} 1`)
}

func TestCanonicalizeCommand_ProjectConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "semgraph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
canon:
  baseAddress: "http://example.org/pkg"
output:
  format: ntriples
  profile: minimal
`), 0644))

	out, err := execute(t, "canonicalize", "--config", cfgPath, samplePath)
	require.NoError(t, err)
	assert.Contains(t, out, "<http://example.org/pkg/MyPackage.1.0.0>")
	assert.NotContains(t, out, nuget.PropSerializationType, "minimal profile drops type markers")
}

func TestCanonicalizeCommand_Failures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))
	src, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), src, 0644))

	out, err := execute(t, "canonicalize", "-f", "nt", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, pkgIRI, "successful files are still written")
}

func TestCanonicalizeCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no patterns", []string{"canonicalize"}, "requires at least 1 arg"},
		{"bad format", []string{"canonicalize", "-f", "xml", samplePath}, "unsupported format"},
		{"bad profile", []string{"canonicalize", "--profile", "tiny", samplePath}, "unknown profile"},
		{"relative base", []string{"canonicalize", "--base", "relative/path", samplePath}, "invalid configuration"},
		{"no match", []string{"canonicalize", filepath.Join("testdata", "*.yaml")}, "no files match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestQueryCommand(t *testing.T) {
	expr := `predicate == "` + nuget.PropID + `" && subject.endsWith("/dependencies")`
	out, err := execute(t, "query", "-f", "ntriples", expr, samplePath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 6, "one id per collapsed dependency")
	for _, line := range lines {
		assert.Contains(t, line, "<"+nuget.PropID+">")
	}
}

func TestQueryCommand_BadExpression(t *testing.T) {
	_, err := execute(t, "query", "predicate ==", samplePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestNATSURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.NATS.URL = "nats://config:4222"

	t.Setenv("NATS_URL", "")
	t.Setenv("SEMGRAPH_NATS_URL", "")
	assert.Equal(t, "nats://config:4222", natsURL(cfg))

	t.Setenv("SEMGRAPH_NATS_URL", "nats://semgraph:4222")
	assert.Equal(t, "nats://semgraph:4222", natsURL(cfg))

	t.Setenv("NATS_URL", "nats://env:4222")
	assert.Equal(t, "nats://env:4222", natsURL(cfg))
}

func TestWrapNATSError(t *testing.T) {
	err := wrapNATSError(errors.New("dial tcp: connection refused"), "nats://localhost:4222")
	assert.Contains(t, err.Error(), "NATS is not running at nats://localhost:4222")

	err = wrapNATSError(errors.New("authorization violation"), "nats://localhost:4222")
	assert.Equal(t, "NATS connection failed: authorization violation", err.Error())
}

func TestCanonicalizeCommand_Framed(t *testing.T) {
	out, err := execute(t, "canonicalize", "--indexed", "-f", "jsonld-framed", samplePath)
	require.NoError(t, err)

	var doc struct {
		Graph []map[string]any `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Graph, 1, "the package is the only tree")
	assert.Equal(t, pkgIRI, doc.Graph[0]["@id"])
	groups, ok := doc.Graph[0]["nuget:dependencyGroups"].([]any)
	require.True(t, ok)
	require.Len(t, groups, 3)
	assert.Contains(t, groups[0], "nuget:dependencies", "groups are embedded, not referenced")
}

func TestCanonicalizeCommand_FrameRoot(t *testing.T) {
	group := pkgIRI + "#dependencyGroups"
	out, err := execute(t, "canonicalize", "-f", "framed", "--frame-root", group, samplePath)
	require.NoError(t, err)

	var doc struct {
		Graph []map[string]any `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.NotEmpty(t, doc.Graph)
	assert.Equal(t, group, doc.Graph[0]["@id"])
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestWriteAndClose(t *testing.T) {
	exporter := export.NewRDFExporter(export.ProfileFull, export.Options{})

	ok := &failingCloser{}
	require.NoError(t, writeAndClose(ok, exporter, export.FormatNTriples))

	bad := &failingCloser{closeErr: errors.New("disk full")}
	err := writeAndClose(bad, exporter, export.FormatNTriples)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close output: disk full")

	// A write error takes precedence over the close error.
	err = writeAndClose(bad, exporter, export.Format("xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestCanonicalizeCommand_IndexedUsage(t *testing.T) {
	flag := canonicalizeCmd(&globalFlags{}).Flags().Lookup("indexed")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.Contains(t, flag.Usage, "share an IRI and merge", "the help describes the default")
}
