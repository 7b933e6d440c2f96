// internal/textnorm/textnorm.go
// Package textnorm rewrites raw model output (mixed markdown/LaTeX/plain
// text) into clean prose. It is an ordered pipeline of pure stages, each
// independently toggleable and safe to apply to streamed fragments: every
// stage works on local pattern matches, so re-running the pipeline on its
// own output changes nothing.
package textnorm

import (
	"regexp"
	"strings"
)

// Options toggles individual pipeline stages. All stages default to
// enabled; ExamLayout is the one typically disabled for conversational
// answers.
type Options struct {
	Sanitize     bool
	Symbols      bool
	Scripts      bool
	Spacing      bool
	ExamLayout   bool
	ArrowSpacing bool
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{
		Sanitize:     true,
		Symbols:      true,
		Scripts:      true,
		Spacing:      true,
		ExamLayout:   true,
		ArrowSpacing: true,
	}
}

// Clean runs the enabled stages in their fixed order. Newlines are
// preserved exactly (incremental display depends on it); tabs are
// normalized to single spaces at the end.
func Clean(text string, opts Options) string {
	if text == "" {
		return text
	}
	if opts.Sanitize {
		text = SanitizeMarkup(text)
	}
	if opts.Symbols {
		text = ReplaceSymbols(text)
	}
	if opts.Scripts {
		text = ConvertScripts(text)
	}
	if opts.Spacing {
		text = RepairSpacing(text)
	}
	if opts.ExamLayout {
		text = ApplyExamLayout(text)
	}
	if opts.ArrowSpacing {
		text = SpaceArrows(text)
	}
	return strings.ReplaceAll(text, "\t", " ")
}

var (
	reBreakTag     = regexp.MustCompile(`(?i)<br\s*/?>`)
	reTexText      = regexp.MustCompile(`\\text\{([^}]*)\}`)
	reCodeLang     = regexp.MustCompile("```[\\w\\-]+\n")
	reLoneEmphasis = regexp.MustCompile(`(\A|\s)\*{1,2}(\s|\z)`)
)

// SanitizeMarkup converts raw line-break markup to newlines, unwraps LaTeX
// \text{...} to its inner content, strips math delimiters, normalizes
// fenced code-block language tags, and removes emphasis markers that wrap
// no content.
func SanitizeMarkup(text string) string {
	text = reBreakTag.ReplaceAllString(text, "\n")
	text = reTexText.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "$", "")
	text = reCodeLang.ReplaceAllString(text, "```\n")
	text = reLoneEmphasis.ReplaceAllString(text, "$1$2")
	return text
}

// latexSymbols maps LaTeX macros to Unicode, longest macro first so a
// shorter macro never clips a longer one (\to vs \theta).
var latexSymbols = []struct{ macro, repl string }{
	{`\rightleftharpoons`, "⇌"},
	{`\leftrightarrow`, "↔"},
	{`\longrightarrow`, "⟶"},
	{`\rightarrow`, "→"},
	{`\downarrow`, "↓"},
	{`\uparrow`, "↑"},
	{`\approx`, "≈"},
	{`\lambda`, "λ"},
	{`\nabla`, "∇"},
	{`\sigma`, "σ"},
	{`\omega`, "ω"},
	{`\Omega`, "Ω"},
	{`\alpha`, "α"},
	{`\gamma`, "γ"},
	{`\delta`, "δ"},
	{`\Delta`, "Δ"},
	{`\theta`, "θ"},
	{`\times`, "×"},
	{`\cdot`, "·"},
	{`\beta`, "β"},
	{`\geq`, "≥"},
	{`\leq`, "≤"},
	{`\neq`, "≠"},
	{`\pi`, "π"},
	{`\pm`, "±"},
	{`\to`, "→"},
}

var symbolReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(latexSymbols)*2)
	for _, s := range latexSymbols {
		pairs = append(pairs, s.macro, s.repl)
	}
	return strings.NewReplacer(pairs...)
}()

// ReplaceSymbols substitutes LaTeX arrow/comparison/Greek macros with their
// Unicode equivalents.
func ReplaceSymbols(text string) string {
	return symbolReplacer.Replace(text)
}

var (
	reSupBrace = regexp.MustCompile(`\^\{([^}]*)\}`)
	reSupChar  = regexp.MustCompile(`\^([0-9+\-()])`)
	reSubBrace = regexp.MustCompile(`_\{([^}]*)\}`)
	reSubChar  = regexp.MustCompile(`_([0-9()])`)

	superscripts = map[rune]rune{
		'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
		'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
		'+': '⁺', '-': '⁻', '(': '⁽', ')': '⁾',
	}
	subscripts = map[rune]rune{
		'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄',
		'5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
		'(': '₍', ')': '₎',
	}
)

// ConvertScripts rewrites ^{...}, ^x, _{...}, and _x groups into Unicode
// super/subscript code points for digits, signs, and parentheses.
// Characters without a script form pass through unchanged.
func ConvertScripts(text string) string {
	text = reSupBrace.ReplaceAllStringFunc(text, func(m string) string {
		return translate(reSupBrace.FindStringSubmatch(m)[1], superscripts)
	})
	text = reSupChar.ReplaceAllStringFunc(text, func(m string) string {
		return translate(m[1:], superscripts)
	})
	text = reSubBrace.ReplaceAllStringFunc(text, func(m string) string {
		return translate(reSubBrace.FindStringSubmatch(m)[1], subscripts)
	})
	text = reSubChar.ReplaceAllStringFunc(text, func(m string) string {
		return translate(m[1:], subscripts)
	})
	return text
}

func translate(s string, table map[rune]rune) string {
	var b strings.Builder
	for _, r := range s {
		if repl, ok := table[r]; ok {
			b.WriteRune(repl)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	reAfterPunct = regexp.MustCompile(`([.,:;?!])(\S)`)
	reDotCapital = regexp.MustCompile(`(\S)\.([A-ZÀ-Ỹ])`)
)

// RepairSpacing inserts the space the model dropped after sentence
// punctuation, and between a period and a run-together capital.
func RepairSpacing(text string) string {
	text = reAfterPunct.ReplaceAllString(text, "$1 $2")
	text = reDotCapital.ReplaceAllString(text, "$1. $2")
	return text
}

var (
	// Section heads must be followed by an uppercase letter or digit so a
	// choice marker like "C. c" never counts as a Roman numeral.
	reSectionHead = regexp.MustCompile(`\s+([IVXLC]+\.\s[A-ZÀ-Ỹ0-9])`)
	reQuestion    = regexp.MustCompile(`(\S)\s*((?i:Câu)\s*\d+\s*:)`)
	reChoice      = regexp.MustCompile(`\s([A-D]\. )`)
	reTrailingWS  = regexp.MustCompile(`[ \t]+\n`)
	reMultiNL     = regexp.MustCompile(`\n{3,}`)
)

// ApplyExamLayout lays generated text out exam-style: paragraph breaks
// before Roman-numeral section heads and "Câu N:" markers, line breaks
// before "A./B./C./D." choice markers, at most one blank line in a row, and
// no trailing whitespace before newlines.
func ApplyExamLayout(text string) string {
	text = reSectionHead.ReplaceAllString(text, "\n\n$1")
	text = reQuestion.ReplaceAllString(text, "$1\n\n$2")
	text = reChoice.ReplaceAllString(text, "\n$1")
	text = reTrailingWS.ReplaceAllString(text, "\n")
	text = reMultiNL.ReplaceAllString(text, "\n\n")
	return text
}

// equation characters: alphanumerics plus Unicode super/subscripts.
const eqChars = `0-9A-Za-z₀-₉⁰¹²³⁴⁵⁶⁷⁸⁹⁺⁻`

var (
	reArrowLeft  = regexp.MustCompile(`([` + eqChars + `)])→`)
	reArrowRight = regexp.MustCompile(`→([` + eqChars + `(])`)
	rePlusLeft   = regexp.MustCompile(`([` + eqChars + `)])\+`)
	rePlusRight  = regexp.MustCompile(`\+([` + eqChars + `(])`)
)

// SpaceArrows gives reaction arrows exactly one space on each side when
// they touch equation characters; on arrow-bearing lines the plus between
// species gets the same treatment.
func SpaceArrows(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "→") {
			continue
		}
		line = reArrowLeft.ReplaceAllString(line, "$1 →")
		line = reArrowRight.ReplaceAllString(line, "→ $1")
		line = rePlusLeft.ReplaceAllString(line, "$1 +")
		line = rePlusRight.ReplaceAllString(line, "+ $1")
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
