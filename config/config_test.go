package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/builder"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/ssa"
	"github.com/shivasurya/code-pathfinder/sast-engine/model"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "pathfinder.yaml"))
	require.NoError(t, err)
	require.Equal(t, defaultFixpointBudget, cfg.Options.FixpointBudget)
	require.Equal(t, 1, cfg.Options.Workers)
	require.False(t, cfg.Options.StrictMode)
}

func TestLoad_ParsesAdditionsAndOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pathfinder.yaml")
	content := `
additional_sources:
  - untrustedInput
additional_sinks:
  - dangerousSink
additional_sanitizers:
  - sanitize
known_libraries:
  - receiver: MyMath
    member: mulDiv
    propagates: true
options:
  fixpoint_budget: 1000
  workers: 4
  strict_mode: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"untrustedInput"}, cfg.AdditionalSources)
	require.Equal(t, []string{"dangerousSink"}, cfg.AdditionalSinks)
	require.Equal(t, []string{"sanitize"}, cfg.AdditionalSanitizers)
	require.Len(t, cfg.KnownLibraries, 1)
	require.Equal(t, 1000, cfg.Options.FixpointBudget)
	require.Equal(t, 4, cfg.Options.Workers)
	require.True(t, cfg.Options.StrictMode)
}

func TestLoad_MalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pathfinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApply_SetsStrictModeAndRegistersLibraryCall(t *testing.T) {
	defer func() { ssa.StrictMode = false }()

	cfg := Default()
	cfg.Options.StrictMode = true
	cfg.KnownLibraries = []LibraryCall{{Receiver: "MyMath", Member: "mulDiv", Propagates: true}}
	cfg.Apply()

	require.True(t, ssa.StrictMode)
	info, ok := builder.LookupKnownLibraryCall("MyMath", "mulDiv")
	require.True(t, ok)
	require.True(t, info.Propagates)
}

func TestTaintConfig_MatchesAdditionalNamesByIdentifier(t *testing.T) {
	cfg := Default()
	cfg.AdditionalSources = []string{"untrustedInput"}
	cfg.AdditionalSinks = []string{"dangerousSink"}

	tc := cfg.TaintConfig(nil, nil)

	source := graph.NewNode("n1", graph.KindIdentifier, model.Location{})
	source.Name = "untrustedInput"
	require.True(t, tc.IsSource(source))

	notSource := graph.NewNode("n2", graph.KindIdentifier, model.Location{})
	notSource.Name = "somethingElse"
	require.False(t, tc.IsSource(notSource))
}
