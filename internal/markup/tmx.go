// Package markup extracts parallel segments from TMX translation memories.
package markup

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/happyhackingspace/lola/internal/textutil"
)

// Pair is one aligned source/target segment.
type Pair struct {
	Source string
	Target string
}

// TMXOptions selects the languages to extract.
type TMXOptions struct {
	SourceLang string // matched against xml:lang, case-insensitive, by primary subtag
	TargetLang string
	Lowercase  bool
}

// DefaultTMXOptions extracts English-French pairs.
func DefaultTMXOptions() TMXOptions {
	return TMXOptions{
		SourceLang: "en",
		TargetLang: "fr",
	}
}

// inlineCodes are TMX elements whose content is formatting markup, not text.
// A <sub> only occurs inside a code and holds a separate sub-flow (alt text,
// footnotes), so its text is not part of the segment either.
var inlineCodes = map[string]bool{
	"bpt": true,
	"ept": true,
	"it":  true,
	"ph":  true,
	"ut":  true,
	"sub": true,
}

// selfClosingRe matches empty-element tags such as <ph x="1"/>.
var selfClosingRe = regexp.MustCompile(`<([A-Za-z][\w:.-]*)([^<>]*?)/>`)

// LoadDocument parses a TMX stream into a goquery Document.
func LoadDocument(r io.Reader) (*goquery.Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return LoadDocumentString(string(b))
}

// LoadDocumentString parses a TMX string into a goquery Document.
//
// The HTML parser ignores "/>" on elements it does not know to be void, so
// an empty inline code would swallow the rest of its segment. Empty-element
// tags are expanded into start and end tags first.
func LoadDocumentString(s string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(expandEmptyElements(s)))
}

// expandEmptyElements rewrites every <name .../> as <name ...></name>.
func expandEmptyElements(s string) string {
	return selfClosingRe.ReplaceAllString(s, "<$1$2></$1>")
}

// ReadTMX returns the segment pairs of every translation unit that has a
// non-empty segment in both languages.
func ReadTMX(r io.Reader, opts TMXOptions) ([]Pair, error) {
	doc, err := LoadDocument(r)
	if err != nil {
		return nil, err
	}
	return ExtractPairs(doc, opts), nil
}

// ExtractPairs collects segment pairs from a parsed TMX document.
func ExtractPairs(doc *goquery.Document, opts TMXOptions) []Pair {
	var pairs []Pair
	doc.Find("tu").Each(func(_ int, tu *goquery.Selection) {
		var src, tgt string
		tu.Find("tuv").Each(func(_ int, tuv *goquery.Selection) {
			lang := VariantLang(tuv)
			seg := tuv.Find("seg").First()
			if seg.Length() == 0 {
				return
			}
			switch {
			case src == "" && langMatches(lang, opts.SourceLang):
				src = SegmentText(seg)
			case tgt == "" && langMatches(lang, opts.TargetLang):
				tgt = SegmentText(seg)
			}
		})
		if src == "" || tgt == "" {
			return
		}
		if opts.Lowercase {
			src, tgt = textutil.Normalize(src), textutil.Normalize(tgt)
		}
		pairs = append(pairs, Pair{Source: src, Target: tgt})
	})
	return pairs
}

// Languages returns the distinct languages of a document's translation
// unit variants, in order of first appearance.
func Languages(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var langs []string
	doc.Find("tuv").Each(func(_ int, tuv *goquery.Selection) {
		lang := strings.ToLower(VariantLang(tuv))
		if lang != "" && !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	})
	return langs
}

// VariantLang returns the language of a <tuv>. TMX 1.4 uses xml:lang,
// older files use lang.
func VariantLang(tuv *goquery.Selection) string {
	if lang, ok := tuv.Attr("xml:lang"); ok {
		return lang
	}
	lang, _ := tuv.Attr("lang")
	return lang
}

func langMatches(lang, want string) bool {
	if want == "" {
		return false
	}
	lang = strings.ToLower(lang)
	want = strings.ToLower(want)
	if lang == want {
		return true
	}
	primary, _, _ := strings.Cut(lang, "-")
	return primary == want
}

// SegmentText returns the text of a <seg>, dropping inline codes and
// collapsing whitespace so the result fits on one corpus line.
func SegmentText(seg *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range seg.Nodes {
		collectText(n, &sb)
	}
	return textutil.CleanSegment(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			if inlineCodes[c.Data] {
				continue
			}
			collectText(c, sb)
		}
	}
}

// WriteParallel writes the source and target sides of pairs as two
// sentence-per-line streams.
func WriteParallel(pairs []Pair, source, target io.Writer) error {
	sw := bufio.NewWriter(source)
	tw := bufio.NewWriter(target)
	for _, p := range pairs {
		if _, err := sw.WriteString(p.Source + "\n"); err != nil {
			return err
		}
		if _, err := tw.WriteString(p.Target + "\n"); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return tw.Flush()
}
