package extract

import (
	"strings"

	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "section": true, "table": true, "td": true, "th": true, "tr": true,
	"ul": true,
}

var skippedElements = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true, "template": true, "svg": true,
}

// RenderText approximates a browser's innerText for markup: block elements
// start new lines and script/style content is dropped. Backends that only
// return HTML use it so that extraction always sees line-structured text.
func RenderText(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	renderNode(doc, &b)
	return strings.Join(Lines(b.String()), "\n"), nil
}

func renderNode(node *html.Node, b *strings.Builder) {
	switch node.Type {
	case html.TextNode:
		b.WriteString(node.Data)
		return
	case html.ElementNode:
		if skippedElements[node.Data] {
			return
		}
	}

	isBlock := node.Type == html.ElementNode && blockElements[node.Data]
	if isBlock {
		b.WriteByte('\n')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderNode(child, b)
	}
	if isBlock {
		b.WriteByte('\n')
	}
}
