package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shivasurya/code-pathfinder/sast-engine/output"
	"github.com/stretchr/testify/require"
)

const analyzeFixtureSource = `
contract Bank {
    mapping(address => uint256) balances;

    function withdraw(uint256 amount) public {
        msg.sender.call{value: amount}("");
        balances[msg.sender] -= amount;
    }
}
`

func writeAnalyzeFixture(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestParseProject_CollectsSolFilesAcrossSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeAnalyzeFixture(t, dir, "Bank.sol", analyzeFixtureSource)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeAnalyzeFixture(t, sub, "Other.sol", "contract Other {}")
	writeAnalyzeFixture(t, dir, "README.md", "not solidity")

	logger := output.NewLogger(output.VerbosityDefault)
	tree, diags, err := parseProject(dir, logger)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, tree.Files(), 2)
}

func TestParseProject_SkipsGitAndNodeModulesDirectories(t *testing.T) {
	dir := t.TempDir()
	writeAnalyzeFixture(t, dir, "Bank.sol", analyzeFixtureSource)
	for _, skip := range []string{".git", "node_modules"} {
		sub := filepath.Join(dir, skip)
		require.NoError(t, os.MkdirAll(sub, 0o755))
		writeAnalyzeFixture(t, sub, "Ignored.sol", "contract Ignored {}")
	}

	logger := output.NewLogger(output.VerbosityDefault)
	tree, _, err := parseProject(dir, logger)
	require.NoError(t, err)
	require.Len(t, tree.Files(), 1)
}

func TestParseProject_EmptyDirectoryYieldsEmptyTree(t *testing.T) {
	dir := t.TempDir()
	logger := output.NewLogger(output.VerbosityDefault)
	tree, diags, err := parseProject(dir, logger)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Empty(t, tree.Files())
}

func TestAnalyzeCmd_RequiresProjectFlag(t *testing.T) {
	analyzeCmd.SetArgs([]string{})
	err := analyzeCmd.Flags().Set("project", "")
	require.NoError(t, err)
	err = analyzeCmd.RunE(analyzeCmd, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--project")
}

func TestAnalyzeCmd_RejectsUnknownOutputFormat(t *testing.T) {
	dir := t.TempDir()
	writeAnalyzeFixture(t, dir, "Bank.sol", analyzeFixtureSource)

	require.NoError(t, analyzeCmd.Flags().Set("project", dir))
	require.NoError(t, analyzeCmd.Flags().Set("output", "yaml"))
	defer analyzeCmd.Flags().Set("output", "text")

	err := analyzeCmd.RunE(analyzeCmd, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--output")
}
