package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// FilenameTokenizerName is the registered name of the filename tokenizer.
const FilenameTokenizerName = "pea_filename"

func init() {
	_ = registry.RegisterTokenizer(FilenameTokenizerName, filenameTokenizerConstructor)
}

// Words splits a file or directory name into lowercase words. Separators are
// any non-alphanumeric rune; camelCase and acronym boundaries also split, so
// "The.Matrix_1999-HDRip" yields [the matrix 1999 hdrip] and "HTTPServer"
// yields [http server]. Letters and digits stay together ("1080p").
func Words(name string) []string {
	spans := wordSpans(name)
	words := make([]string, 0, len(spans))
	for _, sp := range spans {
		words = append(words, strings.ToLower(name[sp[0]:sp[1]]))
	}
	return words
}

// wordSpans returns the [start, end) byte ranges of the words in s.
func wordSpans(s string) [][2]int {
	var spans [][2]int
	start := -1
	var prev rune
	for i, r := range s {
		alnum := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case !alnum:
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
		case start < 0:
			start = i
		case caseBoundary(prev, r, s[i+utf8.RuneLen(r):]):
			spans = append(spans, [2]int{start, i})
			start = i
		}
		prev = r
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(s)})
	}
	return spans
}

func caseBoundary(prev, r rune, rest string) bool {
	if !unicode.IsUpper(r) {
		return false
	}
	if unicode.IsLower(prev) {
		return true
	}
	// end of an acronym: "HTTPServer" splits before the S
	if unicode.IsUpper(prev) {
		next, _ := utf8.DecodeRuneInString(rest)
		return unicode.IsLower(next)
	}
	return false
}

func filenameTokenizerConstructor(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
	return filenameTokenizer{}, nil
}

// filenameTokenizer implements analysis.Tokenizer over wordSpans.
type filenameTokenizer struct{}

func (filenameTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	spans := wordSpans(text)

	stream := make(analysis.TokenStream, 0, len(spans))
	for i, sp := range spans {
		term := text[sp[0]:sp[1]]
		typ := analysis.AlphaNumeric
		if isNumeric(term) {
			typ = analysis.Numeric
		}
		stream = append(stream, &analysis.Token{
			Term:     []byte(term),
			Start:    sp[0],
			End:      sp[1],
			Position: i + 1,
			Type:     typ,
		})
	}
	return stream
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
