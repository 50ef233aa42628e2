// Package analyzer implements ContentAnalyzer: a pure feature
// extractor over a request's messages, used as a routing signal by
// internal/router and internal/balancer.
package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/routex/routex/internal/chatmsg"
	"github.com/routex/routex/internal/tokenest"
)

// Category classifies the dominant subject matter of a request.
type Category string

const (
	CategoryCoding       Category = "coding"
	CategoryWriting      Category = "writing"
	CategoryAnalysis     Category = "analysis"
	CategoryResearch     Category = "research"
	CategoryCreative     Category = "creative"
	CategoryConversation Category = "conversation"
	CategoryTechnical    Category = "technical"
	CategoryGeneral      Category = "general"
)

// Complexity buckets request size/shape.
type Complexity string

const (
	ComplexitySimple      Complexity = "simple"
	ComplexityModerate    Complexity = "moderate"
	ComplexityComplex     Complexity = "complex"
	ComplexityVeryComplex Complexity = "very_complex"
)

// Intent classifies what the user is asking for.
type Intent string

const (
	IntentQuestion     Intent = "question"
	IntentTask         Intent = "task"
	IntentGeneration   Intent = "generation"
	IntentAnalysis     Intent = "analysis"
	IntentConversation Intent = "conversation"
	IntentReview       Intent = "review"
	IntentDebug        Intent = "debug"
)

// Flags records boolean content features.
type Flags struct {
	HasCode   bool
	HasURLs   bool
	HasImages bool
	HasTools  bool
}

// Analysis is the derived per-request content profile.
type Analysis struct {
	WordCount       int
	CharacterCount  int
	EstimatedTokens int
	Flags           Flags
	Languages       []string
	Topic           string
	Category        Category
	Complexity      Complexity
	Intent          Intent
	Keywords        []string
}

var (
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	fencedCodePattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern = regexp.MustCompile("`[^`\n]+`")
	codeSignalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bfunction\s+\w+\s*\(`),
		regexp.MustCompile(`\bclass\s+\w+`),
		regexp.MustCompile(`\bimport\s+.+\s+from\b`),
		regexp.MustCompile(`\bconst\s+\w+\s*=`),
		regexp.MustCompile(`\bdef\s+\w+\s*\(`),
		regexp.MustCompile(`\bpublic\s+class\b`),
		regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9]*[^>]*>`),
	}
	questionWordsPattern = regexp.MustCompile(`(?i)\b(who|what|when|where|why|how)\b`)
)

type languagePattern struct {
	name     string
	patterns []*regexp.Regexp
}

var languageBank = []languagePattern{
	{"go", []*regexp.Regexp{regexp.MustCompile(`\bfunc\s+\w+\s*\(`), regexp.MustCompile(`\bpackage\s+main\b`), regexp.MustCompile(`:=`)}},
	{"python", []*regexp.Regexp{regexp.MustCompile(`\bdef\s+\w+\s*\(`), regexp.MustCompile(`\bimport\s+\w+`), regexp.MustCompile(`(?m)^\s*#.*$`)}},
	{"javascript", []*regexp.Regexp{regexp.MustCompile(`\bfunction\s+\w+\s*\(`), regexp.MustCompile(`\bconst\s+\w+\s*=`), regexp.MustCompile(`=>`)}},
	{"typescript", []*regexp.Regexp{regexp.MustCompile(`:\s*(string|number|boolean)\b`), regexp.MustCompile(`\binterface\s+\w+`)}},
	{"java", []*regexp.Regexp{regexp.MustCompile(`\bpublic\s+class\b`), regexp.MustCompile(`\bSystem\.out\.println\b`)}},
	{"rust", []*regexp.Regexp{regexp.MustCompile(`\bfn\s+\w+\s*\(`), regexp.MustCompile(`\blet\s+mut\b`)}},
	{"sql", []*regexp.Regexp{regexp.MustCompile(`(?i)\bselect\b.+\bfrom\b`), regexp.MustCompile(`(?i)\binsert\s+into\b`)}},
	{"html", []*regexp.Regexp{regexp.MustCompile(`</?(html|div|span|body)[^>]*>`)}},
}

type topicEntry struct {
	name     string
	keywords []string
}

var topicBank = []topicEntry{
	{"API", []string{"api", "endpoint", "rest", "graphql", "webhook", "request", "response"}},
	{"Database", []string{"database", "sql", "query", "schema", "index", "migration", "table"}},
	{"Frontend", []string{"react", "vue", "css", "html", "component", "browser", "ui"}},
	{"Backend", []string{"server", "backend", "microservice", "middleware", "service"}},
	{"DevOps", []string{"docker", "kubernetes", "ci", "cd", "deploy", "pipeline", "terraform"}},
	{"ML", []string{"model", "training", "neural", "dataset", "inference", "embedding"}},
	{"Testing", []string{"test", "unit test", "mock", "assertion", "coverage"}},
	{"Security", []string{"security", "auth", "encryption", "vulnerability", "exploit", "token"}},
	{"Performance", []string{"performance", "latency", "throughput", "optimize", "benchmark"}},
	{"Documentation", []string{"documentation", "readme", "docs", "guide", "tutorial"}},
}

var technicalTerms = []string{"architecture", "system design", "infrastructure", "protocol", "framework", "library", "tool", "sdk", "api"}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "to": {}, "of": {},
	"and": {}, "or": {}, "in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "it": {}, "this": {}, "that": {},
	"i": {}, "you": {}, "we": {}, "can": {}, "do": {}, "does": {}, "please": {}, "my": {}, "your": {}, "me": {},
}

var debugWords = []string{"bug", "error", "crash", "exception", "stack trace", "not working", "fails", "broken", "debug"}
var reviewWords = []string{"review", "feedback", "critique", "improve this", "assess"}
var analysisWords = []string{"analyze", "analysis", "compare", "evaluate", "summarize"}
var generationWords = []string{"generate", "write a", "create a", "draft", "compose"}
var imperativeVerbs = []string{"write", "create", "build", "make", "implement", "fix", "add", "refactor", "explain", "design", "generate", "compose", "draft", "review", "debug", "analyze"}

// Analyze computes the content profile for a set of messages. It is pure:
// identical input always yields an identical Analysis.
func Analyze(messages []chatmsg.Message, tools []chatmsg.Tool) Analysis {
	allText := concatAllText(messages)
	a := Analysis{
		WordCount:       chatmsg.WordCount(messages),
		CharacterCount:  chatmsg.CharacterCount(messages),
		EstimatedTokens: tokenest.Estimate(messages, tokenest.FamilyClaude),
		Flags: Flags{
			HasURLs:   urlPattern.MatchString(allText),
			HasImages: chatmsg.HasImages(messages),
			HasTools:  len(tools) > 0,
			HasCode:   detectCode(allText),
		},
	}
	a.Languages = detectLanguages(allText)
	a.Topic = detectTopic(allText)
	a.Category = detectCategory(a, messages)
	a.Complexity = detectComplexity(a, len(messages))
	a.Intent = detectIntent(messages, a.WordCount)
	a.Keywords = topKeywords(allText, 10)
	return a
}

func concatAllText(messages []chatmsg.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Text())
		sb.WriteString(" ")
	}
	return sb.String()
}

func detectCode(text string) bool {
	if fencedCodePattern.MatchString(text) || inlineCodePattern.MatchString(text) {
		return true
	}
	for _, p := range codeSignalPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func detectLanguages(text string) []string {
	var out []string
	for _, lang := range languageBank {
		for _, p := range lang.patterns {
			if p.MatchString(text) {
				out = append(out, lang.name)
				break
			}
		}
	}
	return out
}

func detectTopic(text string) string {
	lower := strings.ToLower(text)
	best := ""
	bestScore := 0
	for _, t := range topicBank {
		score := 0
		for _, kw := range t.keywords {
			score += strings.Count(lower, kw)
		}
		if score > bestScore {
			bestScore = score
			best = t.name
		}
	}
	return best
}

func hasAnyKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// detectCategory follows a fixed precedence order across categories.
func detectCategory(a Analysis, messages []chatmsg.Message) Category {
	lower := strings.ToLower(concatAllText(messages))
	switch {
	case a.Flags.HasCode || len(a.Languages) > 0:
		return CategoryCoding
	case hasAnyKeyword(lower, technicalTerms) || a.Flags.HasTools:
		return CategoryTechnical
	case hasAnyKeyword(lower, []string{"write", "essay", "story", "article", "blog"}):
		return CategoryWriting
	case hasAnyKeyword(lower, analysisWords):
		return CategoryAnalysis
	case hasAnyKeyword(lower, []string{"research", "investigate", "sources", "literature"}):
		return CategoryResearch
	case hasAnyKeyword(lower, []string{"imagine", "creative", "poem", "fiction"}):
		return CategoryCreative
	case a.WordCount < 50 && len(messages) > 2:
		return CategoryConversation
	default:
		return CategoryGeneral
	}
}

func detectComplexity(a Analysis, messageCount int) Complexity {
	switch {
	case a.WordCount > 2000 || (a.Flags.HasCode && a.WordCount > 500):
		return ComplexityVeryComplex
	case a.WordCount > 500 || messageCount > 10:
		return ComplexityComplex
	case a.WordCount > 100 || messageCount > 3:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

func detectIntent(messages []chatmsg.Message, wordCount int) Intent {
	last := chatmsg.LastUserText(messages)
	trimmed := strings.TrimSpace(last)
	lower := strings.ToLower(trimmed)

	isQuestion := strings.HasSuffix(trimmed, "?") || questionWordsPattern.MatchString(trimmed)
	switch {
	case isQuestion:
		return IntentQuestion
	case hasAnyKeyword(lower, debugWords):
		return IntentDebug
	case hasAnyKeyword(lower, reviewWords):
		return IntentReview
	case hasAnyKeyword(lower, analysisWords):
		return IntentAnalysis
	case hasAnyKeyword(lower, generationWords):
		return IntentGeneration
	case hasAnyKeyword(lower, imperativeVerbs):
		return IntentTask
	case wordCount < 20:
		return IntentConversation
	default:
		return IntentTask
	}
}

var wordSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func topKeywords(text string, k int) []string {
	freq := make(map[string]int)
	var order []string
	for _, w := range wordSplitPattern.Split(strings.ToLower(text), -1) {
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, seen := freq[w]; !seen {
			order = append(order, w)
		}
		freq[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	return order
}
