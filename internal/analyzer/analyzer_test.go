package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routex/routex/internal/chatmsg"
)

func msg(role chatmsg.Role, s string) chatmsg.Message {
	return chatmsg.Message{Role: role, Blocks: []chatmsg.Block{{Type: chatmsg.BlockText, Text: s}}}
}

func TestAnalyzeDetectsCode(t *testing.T) {
	a := Analyze([]chatmsg.Message{msg(chatmsg.RoleUser, "```go\nfunc main() {}\n```")}, nil)
	require.True(t, a.Flags.HasCode)
	require.Equal(t, CategoryCoding, a.Category)
	require.Contains(t, a.Languages, "go")
}

func TestAnalyzeIntentQuestion(t *testing.T) {
	a := Analyze([]chatmsg.Message{msg(chatmsg.RoleUser, "What is the capital of France?")}, nil)
	require.Equal(t, IntentQuestion, a.Intent)
}

func TestAnalyzeIntentDebug(t *testing.T) {
	a := Analyze([]chatmsg.Message{msg(chatmsg.RoleUser, "my app crashes with a stack trace, please debug this bug")}, nil)
	require.Equal(t, IntentDebug, a.Intent)
}

func TestAnalyzeComplexityVeryComplexOnLongCode(t *testing.T) {
	long := ""
	for i := 0; i < 600; i++ {
		long += "word "
	}
	a := Analyze([]chatmsg.Message{msg(chatmsg.RoleUser, "```\n"+long+"\n```")}, nil)
	require.Equal(t, ComplexityVeryComplex, a.Complexity)
}

func TestAnalyzeConversationCategory(t *testing.T) {
	messages := []chatmsg.Message{
		msg(chatmsg.RoleUser, "hi"),
		msg(chatmsg.RoleAssistant, "hello"),
		msg(chatmsg.RoleUser, "how are you"),
	}
	a := Analyze(messages, nil)
	require.Equal(t, CategoryConversation, a.Category)
}

func TestAnalyzeKeywordsExcludesStopwords(t *testing.T) {
	a := Analyze([]chatmsg.Message{msg(chatmsg.RoleUser, "the database query is slow, optimize the database query")}, nil)
	require.Contains(t, a.Keywords, "database")
	require.Contains(t, a.Keywords, "query")
	require.NotContains(t, a.Keywords, "the")
	require.NotContains(t, a.Keywords, "is")
}

func TestAnalyzeHasToolsFlag(t *testing.T) {
	a := Analyze([]chatmsg.Message{msg(chatmsg.RoleUser, "search the web")}, []chatmsg.Tool{{Name: "search"}})
	require.True(t, a.Flags.HasTools)
}

func TestMemoCollapsesIdenticalRequestID(t *testing.T) {
	m := NewMemo(time.Minute)
	messages := []chatmsg.Message{msg(chatmsg.RoleUser, "hello world")}
	a1 := m.Analyze("req-1", messages, nil)
	a2 := m.Analyze("req-1", messages, nil)
	require.Equal(t, a1, a2)
}
