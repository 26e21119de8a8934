package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shivasurya/code-pathfinder/sast-engine/graph"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/analysis/taint"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/builder"
	"github.com/shivasurya/code-pathfinder/sast-engine/graph/callgraph/ssa"
)

// LibraryCall is one project-specific known-library taint flag, keyed by
// "Receiver.member" (e.g. "MyMath.mulDiv").
type LibraryCall struct {
	Receiver       string `yaml:"receiver"`
	Member         string `yaml:"member"`
	Propagates     bool   `yaml:"propagates"`
	IsExternalCall bool   `yaml:"is_external_call"`
	Sanitizes      bool   `yaml:"sanitizes"`
}

// Options are the per-run knobs pathfinder.yaml's top level carries,
// independent of the taint predicate additions below.
type Options struct {
	FixpointBudget int  `yaml:"fixpoint_budget"`
	Workers        int  `yaml:"workers"`
	StrictMode     bool `yaml:"strict_mode"`
}

// Config is pathfinder.yaml's parsed shape: additional taint sources, sinks,
// and sanitizers the built-in predicate table (analysis/taint.DefaultConfig)
// doesn't cover, named by identifier, plus project-specific library flags
// and run knobs.
type Config struct {
	AdditionalSources    []string      `yaml:"additional_sources"`
	AdditionalSinks      []string      `yaml:"additional_sinks"`
	AdditionalSanitizers []string      `yaml:"additional_sanitizers"`
	KnownLibraries       []LibraryCall `yaml:"known_libraries"`
	Options              Options       `yaml:"options"`
}

// defaultFixpointBudget mirrors analysis/taint's own default so a config
// file that omits fixpoint_budget doesn't silently zero the engine's cap.
const defaultFixpointBudget = 50000

// Default returns a Config with no additional predicates and the engine's
// built-in defaults for Options.
func Default() *Config {
	return &Config{Options: Options{FixpointBudget: defaultFixpointBudget, Workers: 1}}
}

// Load reads and parses path as pathfinder.yaml. A missing file is not an
// error — it returns Default(), since the taint config additions and run
// knobs are all optional (spec.md's ambient configuration layer, not a
// required one).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Options.FixpointBudget <= 0 {
		cfg.Options.FixpointBudget = defaultFixpointBudget
	}
	if cfg.Options.Workers <= 0 {
		cfg.Options.Workers = 1
	}
	return cfg, nil
}

// Apply registers c's known-library flags into the global table and sets
// ssa.StrictMode from c.Options, so callers just need to call this once
// after loading a Config and before building a query.Runtime.
func (c *Config) Apply() {
	for _, lc := range c.KnownLibraries {
		builder.RegisterKnownLibraryCall(lc.Receiver, lc.Member, builder.LibraryCallInfo{
			Propagates:     lc.Propagates,
			IsExternalCall: lc.IsExternalCall,
			Sanitizes:      lc.Sanitizes,
		})
	}
	ssa.StrictMode = c.Options.StrictMode
}

// TaintConfig layers c's additional source/sink/sanitizer names (matched
// by identifier name) on top of analysis/taint.DefaultConfig's predefined
// predicates.
func (c *Config) TaintConfig(registry *builder.Registry, stateVars map[string]bool) taint.Config {
	base := taint.DefaultConfig(registry, stateVars)
	sources := toSet(c.AdditionalSources)
	sinks := toSet(c.AdditionalSinks)
	sanitizers := toSet(c.AdditionalSanitizers)

	return taint.Config{
		IsSource: func(n *graph.Node) bool {
			return base.IsSource(n) || matchesName(n, sources)
		},
		IsSink: func(n *graph.Node) bool {
			return base.IsSink(n) || matchesName(n, sinks)
		},
		IsSanitizer: func(n *graph.Node) bool {
			return base.IsSanitizer(n) || matchesName(n, sanitizers)
		},
		AdditionalStep: base.AdditionalStep,
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.TrimSpace(n)] = true
	}
	return set
}

func matchesName(n *graph.Node, set map[string]bool) bool {
	return n != nil && n.Name != "" && set[n.Name]
}
