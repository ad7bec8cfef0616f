package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.ElementNode:
		switch node.Data {
		case "br", "p", "div", "li":
			buffer.WriteByte(' ')
		case "script", "style":
			return
		}
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func clean(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// markupRegex matches a complete tag (name and well formed attributes up to
// the closing `>`) or a comment.
var markupRegex = regexp.MustCompile(
	`(?s)<!--.*?-->|</?[A-Za-z][A-Za-z0-9]*(?:\s+[A-Za-z_:][-A-Za-z0-9_:.]*(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>=]+))?)*\s*/?>`,
)

// escapeStrayLt escapes every `<` that does not start a complete tag or
// comment, so text like `a<b then c` is not parsed into an element.
func escapeStrayLt(fragment string) string {
	tagStarts := make(map[int]struct{})
	for _, loc := range markupRegex.FindAllStringIndex(fragment, -1) {
		tagStarts[loc[0]] = struct{}{}
	}

	var out strings.Builder
	out.Grow(len(fragment))
	for i := 0; i < len(fragment); i++ {
		if fragment[i] == '<' {
			if _, ok := tagStarts[i]; !ok {
				out.WriteString("&lt;")
				continue
			}
		}
		out.WriteByte(fragment[i])
	}
	return out.String()
}

// PlainText reduces a fragment of user submitted text that may contain markup
// or html entities (ex. `Great class &amp; fair<br>tests`) into plain text.
// A `<` that is not part of a tag is kept as text.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return clean(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(escapeStrayLt(fragment)))
	if err != nil {
		return clean(fragment)
	}

	var buffer bytes.Buffer
	for _, n := range doc.Nodes {
		getTextRecursive(n, &buffer)
	}
	return clean(buffer.String())
}
