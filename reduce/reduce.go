// Package reduce trims extracted text down to its information-carrying
// tokens: formatting noise in light mode, stopwords on top of that in
// moderate mode. Markdown structure can be preserved so that headers,
// tables, lists, and code blocks survive reduction.
package reduce

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Mode selects how aggressively text is reduced.
type Mode string

const (
	ModeOff      Mode = "off"
	ModeLight    Mode = "light"
	ModeModerate Mode = "moderate"
)

// Config controls token reduction.
type Config struct {
	Mode             Mode
	PreserveMarkdown bool
	// LanguageHint is the fallback language when the caller passes none.
	LanguageHint string
	// Stopwords overrides the default manager (built-in English only).
	Stopwords *Stopwords
}

// Stats describes the effect of a reduction.
type Stats struct {
	CharacterReductionRatio float64
	TokenReductionRatio     float64
	OriginalCharacters      int
	ReducedCharacters       int
	OriginalTokens          int
	ReducedTokens           int
}

var ErrInvalidLanguage = errors.New("reduce: invalid language code")

var (
	htmlCommentRe  = regexp.MustCompile(`(?s)<!--.*?-->`)
	repeatBangRe   = regexp.MustCompile(`!{2,}`)
	repeatQueryRe  = regexp.MustCompile(`\?{2,}`)
	repeatDotRe    = regexp.MustCompile(`\.{2,}`)
	repeatCommaRe  = regexp.MustCompile(`,{2,}`)
	mixedPunctRe   = regexp.MustCompile(`[!?]+\.+[!?]*|[?!]{3,}`)
	whitespaceRe   = regexp.MustCompile(`\n{3,}|[ \t]+`)
	languageCodeRe = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	bulletListRe   = regexp.MustCompile(`^\s*[-*+]\s`)
	numberedListRe = regexp.MustCompile(`^\s*\d+\.\s`)
)

var defaultStopwords = &Stopwords{custom: map[string]map[string]struct{}{}}

// Reduce applies the configured reduction to text. language selects the
// stopword set for moderate mode; when empty the config's hint and finally
// English are used.
func Reduce(text string, cfg Config, language string) (string, error) {
	if cfg.Mode == ModeOff || cfg.Mode == "" {
		return text, nil
	}
	if language != "" && !languageCodeRe.MatchString(language) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, language)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	text = norm.NFC.String(text)

	switch cfg.Mode {
	case ModeLight:
		return lightReduction(text, cfg.PreserveMarkdown), nil
	case ModeModerate:
		return moderateReduction(text, cfg, language), nil
	default:
		return "", fmt.Errorf("reduce: unknown mode %q", cfg.Mode)
	}
}

// ReductionStats compares original and reduced text.
func ReductionStats(original, reduced string) Stats {
	origChars := len([]rune(original))
	redChars := len([]rune(reduced))
	origTokens := len(strings.Fields(original))
	redTokens := len(strings.Fields(reduced))

	var charRatio, tokenRatio float64
	if origChars > 0 {
		charRatio = float64(origChars-redChars) / float64(origChars)
	}
	if origTokens > 0 {
		tokenRatio = float64(origTokens-redTokens) / float64(origTokens)
	}
	return Stats{
		CharacterReductionRatio: charRatio,
		TokenReductionRatio:     tokenRatio,
		OriginalCharacters:      origChars,
		ReducedCharacters:       redChars,
		OriginalTokens:          origTokens,
		ReducedTokens:           redTokens,
	}
}

func lightReduction(text string, preserveMarkdown bool) string {
	if preserveMarkdown {
		return lightReductionMarkdown(text)
	}
	return lightReductionPlain(text)
}

func lightReductionPlain(text string) string {
	text = htmlCommentRe.ReplaceAllString(text, "")
	// Same-character runs collapse to one before mixed runs, so "!!!"
	// stays "!" instead of turning into "?".
	text = repeatBangRe.ReplaceAllString(text, "!")
	text = repeatQueryRe.ReplaceAllString(text, "?")
	text = repeatDotRe.ReplaceAllString(text, ".")
	text = repeatCommaRe.ReplaceAllString(text, ",")
	text = mixedPunctRe.ReplaceAllString(text, "?")
	text = whitespaceRe.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "\n") {
			return "\n\n"
		}
		return " "
	})
	return strings.TrimSpace(text)
}

func lightReductionMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	processed := make([]string, 0, len(lines))
	inCode := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			processed = append(processed, line)
			continue
		}
		if inCode || isStructuralLine(line) {
			processed = append(processed, line)
			continue
		}
		if strings.TrimSpace(line) != "" {
			processed = append(processed, lightReductionPlain(line))
		} else {
			processed = append(processed, line)
		}
	}
	return strings.TrimSpace(collapseEmptyLines(processed))
}

// collapseEmptyLines allows at most a double newline outside code blocks
// while leaving code block content untouched.
func collapseEmptyLines(lines []string) string {
	out := make([]string, 0, len(lines))
	inCode := false
	consecutiveEmpty := 0
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			out = append(out, line)
			consecutiveEmpty = 0
			continue
		}
		switch {
		case inCode:
			out = append(out, line)
			consecutiveEmpty = 0
		case strings.TrimSpace(line) == "":
			consecutiveEmpty++
			if consecutiveEmpty <= 2 {
				out = append(out, line)
			}
		default:
			out = append(out, line)
			consecutiveEmpty = 0
		}
	}
	return strings.Join(out, "\n")
}

func moderateReduction(text string, cfg Config, language string) string {
	text = lightReduction(text, cfg.PreserveMarkdown)

	lang := language
	if lang == "" {
		lang = cfg.LanguageHint
	}
	if lang == "" {
		lang = "en"
	}
	manager := cfg.Stopwords
	if manager == nil {
		manager = defaultStopwords
	}
	if !manager.HasLanguage(lang) {
		lang = "en"
		if !manager.HasLanguage("en") {
			return text
		}
	}
	stopwords := manager.set(lang)

	if cfg.PreserveMarkdown {
		return stopwordReductionMarkdown(text, stopwords)
	}
	return stopwordReductionPlain(text, stopwords)
}

func stopwordReductionPlain(text string, stopwords map[string]struct{}) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	kept := make([]string, 0, len(words))
	for _, word := range words {
		core, suffix := splitWord(word)
		if core == "" {
			kept = append(kept, word)
			continue
		}
		clean := cleanWord(core)
		if clean == "" {
			kept = append(kept, word)
			continue
		}

		_, isStopword := stopwords[clean]
		keep := !isStopword ||
			len([]rune(clean)) <= 1 ||
			isAcronym(core) ||
			containsDigit(core)
		if keep {
			kept = append(kept, word)
			continue
		}
		// A dropped word may still carry sentence-ending punctuation.
		if suffix != "" && strings.ContainsAny(suffix[:1], ".,;:!?") && len(kept) > 0 && !strings.HasSuffix(kept[len(kept)-1], suffix[:1]) {
			kept[len(kept)-1] += suffix[:1]
		}
	}
	return strings.Join(kept, " ")
}

func stopwordReductionMarkdown(text string, stopwords map[string]struct{}) string {
	lines := strings.Split(text, "\n")
	processed := make([]string, 0, len(lines))
	inCode := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			processed = append(processed, line)
			continue
		}
		if inCode || isStructuralLine(line) {
			processed = append(processed, line)
			continue
		}
		if strings.TrimSpace(line) != "" {
			processed = append(processed, stopwordReductionPlain(line, stopwords))
		} else {
			processed = append(processed, line)
		}
	}
	return strings.TrimSpace(collapseEmptyLines(processed))
}

func isStructuralLine(line string) bool {
	stripped := strings.TrimSpace(line)
	if strings.HasPrefix(stripped, "#") {
		return true
	}
	if strings.Count(line, "|") >= 2 &&
		(strings.HasPrefix(stripped, "|") || strings.HasSuffix(stripped, "|") || strings.Contains(line, " | ")) {
		return true
	}
	return bulletListRe.MatchString(line) || numberedListRe.MatchString(line)
}

// splitWord strips leading and trailing punctuation, returning the core
// word and the trailing punctuation run.
func splitWord(word string) (core, suffix string) {
	runes := []rune(word)
	start := 0
	for start < len(runes) && !isWordRune(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && !isWordRune(runes[end-1]) {
		end--
	}
	return string(runes[start:end]), string(runes[end:])
}

func cleanWord(core string) string {
	var b strings.Builder
	for _, r := range core {
		if isWordRune(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isAcronym(core string) bool {
	if len([]rune(core)) <= 1 {
		return false
	}
	hasLetter := false
	for _, r := range core {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
