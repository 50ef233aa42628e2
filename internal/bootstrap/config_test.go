package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
channels:
  - id: 1
    name: anthropic-primary
    provider: anthropic
    baseUrl: https://api.anthropic.com
    credential: sk-ant-test
    models: ["claude-3-opus"]
    priority: 10
  - id: 2
    name: openai-fallback
    provider: openai
    credential: sk-test
    priority: 5

rules:
  - name: route-code-to-opus
    priority: 20
    targetChannel: anthropic-primary
    keywords: ["def ", "function "]
  - name: disabled-rule
    priority: 1
    enabled: false
    targetChannel: openai-fallback

transformers: ["maxtoken"]
presets: ["safe"]
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "routex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoadParsesChannelsRulesAndTransformers(t *testing.T) {
	path := writeSample(t)
	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Channels, 2)
	require.Len(t, f.Rules, 2)
	require.Equal(t, []string{"maxtoken"}, f.Transformers)
	require.Equal(t, []string{"safe"}, f.Presets)
}

func TestLiveChannelsBuildsChannelsetChannels(t *testing.T) {
	f, err := Load(writeSample(t))
	require.NoError(t, err)
	channels := f.LiveChannels()
	require.Len(t, channels, 2)
	require.Equal(t, "anthropic-primary", channels[0].Name)
	require.Equal(t, 10, channels[0].Priority)
}

func TestBuildRulesHonorsDisabledAndKeywordClause(t *testing.T) {
	f, err := Load(writeSample(t))
	require.NoError(t, err)
	rs, err := f.BuildRules()
	require.NoError(t, err)
	require.Len(t, rs, 2)
	require.True(t, rs[0].Enabled)
	require.False(t, rs[1].Enabled)
	require.Len(t, rs[0].Condition.Predicates, 1)
}

func TestBuildRulesRejectsInvalidModelPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: bad
    modelPattern: "(["
`), 0o644))
	f, err := Load(path)
	require.NoError(t, err)
	_, err = f.BuildRules()
	require.Error(t, err)
}

func TestTransformSpecsPrependsComposedPresets(t *testing.T) {
	f, err := Load(writeSample(t))
	require.NoError(t, err)
	specs := f.TransformSpecs()
	require.NotEmpty(t, specs)
	require.Equal(t, "maxtoken", specs[len(specs)-1].Name)
}
