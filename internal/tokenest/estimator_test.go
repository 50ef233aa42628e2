package tokenest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routex/routex/internal/chatmsg"
)

func text(role chatmsg.Role, s string) chatmsg.Message {
	return chatmsg.Message{Role: role, Blocks: []chatmsg.Block{{Type: chatmsg.BlockText, Text: s}}}
}

func TestEstimateIsPositiveForNonEmptyMessage(t *testing.T) {
	msgs := []chatmsg.Message{text(chatmsg.RoleUser, "hello world")}
	require.Greater(t, Estimate(msgs, FamilyClaude), 0)
	require.Greater(t, Estimate(msgs, FamilyOpenAI), 0)
}

func TestEstimateImageFlatCost(t *testing.T) {
	msgs := []chatmsg.Message{{Role: chatmsg.RoleUser, Blocks: []chatmsg.Block{{Type: chatmsg.BlockImage}}}}
	require.Equal(t, messageOverhead+claudeImageTokens, Estimate(msgs, FamilyClaude))
	require.Equal(t, messageOverhead+openaiImageTokens, Estimate(msgs, FamilyOpenAI))
}

func TestEstimateMonotonicInConcatenation(t *testing.T) {
	a := []chatmsg.Message{text(chatmsg.RoleUser, "the quick brown fox jumps over the lazy dog")}
	b := []chatmsg.Message{text(chatmsg.RoleUser, "pack my box with five dozen liquor jugs")}
	ab := []chatmsg.Message{text(chatmsg.RoleUser, a[0].Text()+" "+b[0].Text())}

	estA := Estimate(a, FamilyClaude)
	estB := Estimate(b, FamilyClaude)
	estAB := Estimate(ab, FamilyClaude)

	require.GreaterOrEqual(t, estAB, estA)
	require.GreaterOrEqual(t, estAB, estB)
}

func TestNormalizeFamilyDefaultsToClaude(t *testing.T) {
	require.Equal(t, FamilyClaude, NormalizeFamily(""))
	require.Equal(t, FamilyClaude, NormalizeFamily("unknown-vendor"))
	require.Equal(t, FamilyOpenAI, NormalizeFamily("openai"))
}

func TestEstimateLongTextScalesWithRatio(t *testing.T) {
	long := strings.Repeat("a", 3500)
	msgs := []chatmsg.Message{text(chatmsg.RoleUser, long)}
	claude := Estimate(msgs, FamilyClaude)
	openai := Estimate(msgs, FamilyOpenAI)
	require.InDelta(t, 1000+messageOverhead, claude, 50)
	require.InDelta(t, 875+messageOverhead, openai, 50)
}
