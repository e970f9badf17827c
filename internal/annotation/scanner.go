package annotation

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Match is an entity annotation found in rendered content.
// Start and End delimit the whole element, Label is its inner markup verbatim.
type Match struct {
	Start int
	End   int
	Tag   string
	Class string
	URI   string
	Label string
}

// candidate is an open element carrying an itemid, waiting for its end tag.
type candidate struct {
	tag        string
	class      string
	uri        string
	start      int
	innerStart int
}

// scan tokenizes content and returns the annotation matches in document order.
// An element matches when it carries a class and an itemid and is closed by an end tag of the
// same name with no nested element of that name in between.
func scan(content string) ([]Match, error) {
	z := html.NewTokenizer(strings.NewReader(content))

	var (
		matches []Match
		open    *candidate
		offset  int
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return matches, nil
		}

		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if open != nil && open.tag == tag {
				open = nil
			}
			if tt == html.SelfClosingTagToken || !hasAttr || open != nil {
				continue
			}
			class, uri, ok := annotationAttrs(z)
			if !ok {
				continue
			}
			open = &candidate{tag: tag, class: class, uri: uri, start: start, innerStart: offset}

		case html.EndTagToken:
			if open == nil {
				continue
			}
			name, _ := z.TagName()
			if string(name) != open.tag {
				continue
			}
			matches = append(matches, Match{
				Start: open.start,
				End:   offset,
				Tag:   open.tag,
				Class: open.class,
				URI:   open.uri,
				Label: content[open.innerStart:start],
			})
			open = nil
		}
	}
}

// annotationAttrs reports the class and itemid of a start tag. An annotation
// carries both attributes; the class list may be empty.
func annotationAttrs(z *html.Tokenizer) (class, uri string, ok bool) {
	var hasClass bool
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "class":
			class = string(val)
			hasClass = true
		case "itemid":
			uri = strings.TrimSpace(string(val))
		}
		if !more {
			return class, uri, hasClass && uri != ""
		}
	}
}

// plainLabel drops the tags of a label and keeps its text as written.
func plainLabel(label string) string {
	if !strings.Contains(label, "<") {
		return label
	}

	z := html.NewTokenizer(strings.NewReader(label))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}

func hasClassToken(class, token string) bool {
	for _, field := range strings.Fields(class) {
		if field == token {
			return true
		}
	}
	return false
}
