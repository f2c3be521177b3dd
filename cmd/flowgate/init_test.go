package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/verify"
)

func TestHooksTemplateParses(t *testing.T) {
	hooks, err := verify.Parse([]byte(hooksTemplate()))
	require.NoError(t, err)
	require.Len(t, hooks, len(verify.BuiltinHooks()))

	byName := make(map[string]string, len(hooks))
	for _, h := range hooks {
		byName[h.Hook] = h.Expect
	}
	require.Equal(t, "block", byName["merge-check"])
	require.Equal(t, "approve", byName["session-start-banner"])
}

func TestConfigTemplateDefaultsAreCommented(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(configTemplate("", "")), 0o644))

	cfg := config.Load(dir)
	require.Equal(t, "", cfg.LogDir)
	require.Equal(t, 0, cfg.ExpiryHours)
	require.Equal(t, "", cfg.GitHub.Owner)
}

func TestConfigTemplateWithRepo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(configTemplate("acme", "widgets")), 0o644))

	cfg := config.Load(dir)
	require.Equal(t, "acme", cfg.GitHub.Owner)
	require.Equal(t, "widgets", cfg.GitHub.Repo)
	require.Equal(t, "", cfg.GitHub.Token)
}

func TestWriteFlowFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	def := flowdef.BuiltinFlows()[0]

	require.NoError(t, writeFlowFile(dir, def))

	parsed, err := flowdef.ParseFile(filepath.Join(dir, def.Flow+flowdef.FlowExtTOML))
	require.NoError(t, err)
	require.Equal(t, def.Flow, parsed.Flow)
	require.Equal(t, def.BlockingOnSessionEnd, parsed.BlockingOnSessionEnd)
	require.Len(t, parsed.Steps, len(def.Steps))
	require.Equal(t, "context.skip_planning", parsed.StepByID("plan-approved").SkipCondition)
}

func TestWriteFlowFileSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	def := flowdef.BuiltinFlows()[0]
	path := filepath.Join(dir, def.Flow+flowdef.FlowExtTOML)
	require.NoError(t, os.WriteFile(path, []byte("# hand-edited\n"), 0o644))

	require.NoError(t, writeFlowFile(dir, def))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "# hand-edited\n", string(data))
}

func TestFlowDoc(t *testing.T) {
	flowCatalog = flowdef.NewCatalog()
	def := flowCatalog.FlowDefinition("issue-work")
	require.NotNil(t, def)

	doc := flowDoc(def)
	require.Contains(t, doc, "# Issue Work (`issue-work`)")
	require.Contains(t, doc, "Incomplete instances block session end.")
	require.Contains(t, doc, "`scope-confirmed`: Confirm issue scope, phase Scoping")
	require.Contains(t, doc, "_(skipped when `context.skip_planning`)_")

	doc = flowDoc(flowCatalog.FlowDefinition("ai-review"))
	require.Contains(t, doc, "The flow completes as soon as `approve` completes.")
}
