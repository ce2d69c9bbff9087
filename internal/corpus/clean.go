package corpus

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// quotePairs delimit quoted material (mostly song lyrics) inside reviews
var quotePairs = [][2]string{
	{`"`, `"`},
	{`/`, `/`},
	{`\`, `\`},
	{`<`, `>`},
}

var quotePatterns = compileQuotePatterns()

func compileQuotePatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(quotePairs))
	for _, q := range quotePairs {
		patterns = append(patterns, regexp.MustCompile(`(?s)`+regexp.QuoteMeta(q[0])+`(.*?)`+regexp.QuoteMeta(q[1])))
	}
	return patterns
}

// QuotedSpans returns the byte ranges of quoted passages whose inner text is
// at least minChars long. Ranges may overlap when delimiters nest.
func QuotedSpans(text string, minChars int) [][2]int {
	var spans [][2]int
	for _, re := range quotePatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if m[3]-m[2] >= minChars {
				spans = append(spans, [2]int{m[0], m[1]})
			}
		}
	}
	return spans
}

// InsideAny reports whether [start, end) lies entirely within one of spans
func InsideAny(start, end int, spans [][2]int) bool {
	for _, s := range spans {
		if start >= s[0] && end <= s[1] {
			return true
		}
	}
	return false
}

// RemoveQuoted drops quoted passages of at least minChars characters and
// collapses the remaining whitespace.
func RemoveQuoted(text string, minChars int) string {
	spans := QuotedSpans(text, minChars)
	if len(spans) == 0 {
		return text
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var buf strings.Builder
	last := 0
	for _, s := range spans {
		if s[0] > last {
			buf.WriteString(text[last:s[0]])
		}
		if s[1] > last {
			last = s[1]
		}
	}
	buf.WriteString(text[last:])
	return collapseSpace(buf.String())
}

// StripHTML returns the visible text of a review that carries markup.
// Plain text passes through with entities unescaped.
func StripHTML(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return text
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "p", "br", "div", "li":
				buf.WriteString(" ")
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseSpace(buf.String())
}

// Normalize applies NFKC normalization and collapses whitespace
func Normalize(text string) string {
	return collapseSpace(norm.NFKC.String(text))
}

// SplitSentences splits text after '.', '!' or '?' when followed by whitespace.
// Empty fragments are dropped; no length filtering is applied here.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 < len(runes) && isSpace(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
