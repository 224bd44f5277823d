package rewrite

import (
	"regexp"
	"strings"
)

const (
	mathOpen  = "[latex]"
	mathClose = "[/latex]"
)

var (
	mathBlockRe = regexp.MustCompile(`(?s)\[latex\](.*?)\[/latex\]`)
	displayRe   = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	inlineRe    = regexp.MustCompile(`(?s)\$(.+?)\$`)
	mathBreakRe = regexp.MustCompile(`(?i)<br\s*/?>`)

	mathEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")
)

// NormalizeMath unwraps every [latex]...[/latex] block, turning $$x$$ into
// \[x\] and $x$ into \(x\) inside it. Line breaks inside a block become
// newlines and the remaining < and > are escaped, so comparisons such as
// $a<b$ survive HTML sanitizing as text.
//
// Every outer step consumes one closing tag and every inner step consumes at
// least two dollar signs, so both loops are bounded by those counts.
func NormalizeMath(tmpl string) string {
	out := tmpl
	for range strings.Count(tmpl, mathClose) {
		loc := mathBlockRe.FindStringSubmatchIndex(out)
		if loc == nil {
			break
		}
		out = out[:loc[0]] + normalizeMathContent(out[loc[2]:loc[3]]) + out[loc[1]:]
	}
	return out
}

func normalizeMathContent(content string) string {
	out := content
	for range strings.Count(content, "$")/2 + 1 {
		if next, ok := replaceFirst(out, displayRe, `\[`, `\]`); ok {
			out = next
			continue
		}
		if next, ok := replaceFirst(out, inlineRe, `\(`, `\)`); ok {
			out = next
			continue
		}
		break
	}
	return mathEscaper.Replace(mathBreakRe.ReplaceAllString(out, "\n"))
}

// replaceFirst rewrites the first match of re, wrapping its first capture
// group in open/close.
func replaceFirst(s string, re *regexp.Regexp, open, close string) (string, bool) {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s, false
	}

	var b strings.Builder
	b.Grow(len(s) + len(open) + len(close))
	b.WriteString(s[:loc[0]])
	b.WriteString(open)
	b.WriteString(s[loc[2]:loc[3]])
	b.WriteString(close)
	b.WriteString(s[loc[1]:])
	return b.String(), true
}
