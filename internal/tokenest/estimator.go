// Package tokenest implements the upper-bound token estimator used as a
// routing signal. It is deliberately not tokenizer-exact — the
// vendor tokenizer parity isn't the goal here, only a usable routing
// signal, and the estimate is never used to truncate content.
package tokenest

import (
	"math"
	"regexp"
	"strings"

	"github.com/routex/routex/internal/chatmsg"
)

// Family selects the per-vendor character-to-token ratio.
type Family string

const (
	FamilyClaude  Family = "claude"
	FamilyOpenAI  Family = "openai"
	messageOverhead       = 4
	claudeImageTokens     = 1500
	openaiImageTokens     = 1000
)

var numberPattern = regexp.MustCompile(`\d`)

// NormalizeFamily maps an arbitrary model name/family hint to a known
// Family, defaulting to claude.
func NormalizeFamily(hint string) Family {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "openai", "gpt", "gpt-4", "gpt-3.5", "o1", "o3":
		return FamilyOpenAI
	case "claude", "anthropic":
		return FamilyClaude
	default:
		return FamilyClaude
	}
}

// Estimate returns a deterministic upper-bound token count for the given
// messages under the given model family.
func Estimate(messages []chatmsg.Message, family Family) int {
	total := 0
	for _, m := range messages {
		total += messageOverhead
		for _, b := range m.Blocks {
			switch b.Type {
			case chatmsg.BlockImage:
				total += imageTokens(family)
			case chatmsg.BlockText:
				total += textTokens(b.Text, family)
			default:
				total += textTokens(b.Text, family)
			}
		}
	}
	return total
}

func imageTokens(family Family) int {
	if family == FamilyOpenAI {
		return openaiImageTokens
	}
	return claudeImageTokens
}

func textTokens(text string, family Family) int {
	if text == "" {
		return 0
	}
	chars := float64(len([]rune(text)))

	var divisor float64
	if family == FamilyOpenAI {
		divisor = 4.0
	} else {
		divisor = 3.5
	}

	base := math.Ceil(chars / divisor)
	base += whitespacePunctuationCorrection(text, family)

	if family == FamilyOpenAI {
		// Runs of digits tokenize closer to ~2 chars/token than prose does;
		// nudge the estimate up to stay an upper bound for numeric-heavy text.
		digits := float64(len(numberPattern.FindAllString(text, -1)))
		numberAdjustment := math.Ceil(digits/2.0) - math.Ceil(digits/divisor)
		if numberAdjustment > 0 {
			base += numberAdjustment
		}
	}

	if base < 1 {
		base = 1
	}
	return int(base)
}

// whitespacePunctuationCorrection adds a small fractional correction so that
// whitespace- and punctuation-dense text (which tokenizes less efficiently
// than the flat chars/ratio model assumes) doesn't underestimate.
func whitespacePunctuationCorrection(text string, family Family) float64 {
	count := 0
	for _, r := range text {
		if isPunctOrSpace(r) {
			count++
		}
	}
	if count == 0 {
		return 0
	}
	divisor := 10.0
	if family == FamilyOpenAI {
		divisor = 12.0
	}
	return math.Ceil(float64(count) / divisor)
}

func isPunctOrSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '.', ',', ';', ':', '!', '?', '-', '(', ')', '[', ']', '{', '}', '"', '\'':
		return true
	default:
		return false
	}
}
