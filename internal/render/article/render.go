// Package article turns stored article text into display lines.
package article

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"

	"github.com/glabrego/newsreader/internal/news"
)

var reTruncationMarker = regexp.MustCompile(`\s*(?:…|\.\.\.)?\s*\[\+\d+ chars\]\s*$`)

// StripTruncationMarker removes the trailing "[+N chars]" marker the
// headlines API appends to shortened content. Stored content keeps it.
func StripTruncationMarker(s string) string {
	return strings.TrimSpace(reTruncationMarker.ReplaceAllString(s, ""))
}

// IsTruncated reports whether s ends with a truncation marker.
func IsTruncated(s string) bool {
	return reTruncationMarker.MatchString(s)
}

// PlainText returns the best available body for a: content without its
// truncation marker, falling back to the description.
func PlainText(a news.Article) string {
	if text := textFromFragment(StripTruncationMarker(a.Content)); text != "" {
		return text
	}
	return textFromFragment(a.Description)
}

// Lines wraps the article body to width.
func Lines(a news.Article, width int) []string {
	text := PlainText(a)
	if text == "" {
		return nil
	}
	return wrapText(text, width)
}

// textFromFragment flattens an HTML fragment to paragraphs separated by
// blank lines. Plain text passes through with whitespace normalized.
func textFromFragment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	doc, err := nethtml.Parse(strings.NewReader("<html><body>" + raw + "</body></html>"))
	if err != nil {
		return normalizeInlineText(raw)
	}
	body := findBodyNode(doc)
	if body == nil {
		return normalizeInlineText(raw)
	}

	var paragraphs []string
	var inline strings.Builder
	flush := func() {
		if text := normalizeInlineText(inline.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		inline.Reset()
	}

	var walk func(node *nethtml.Node)
	walk = func(node *nethtml.Node) {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case nethtml.TextNode:
				inline.WriteString(child.Data)
			case nethtml.ElementNode:
				tag := strings.ToLower(child.Data)
				switch {
				case tag == "script" || tag == "style" || tag == "noscript" || tag == "img":
				case tag == "br":
					inline.WriteString("\n")
				case isBlockElement(tag):
					flush()
					walk(child)
					flush()
				default:
					inline.WriteString(" ")
					walk(child)
					inline.WriteString(" ")
				}
			}
		}
	}
	walk(body)
	flush()

	return strings.Join(paragraphs, "\n\n")
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "blockquote", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6", "pre", "table", "tr", "figure", "figcaption":
		return true
	}
	return false
}

func normalizeInlineText(s string) string {
	s = html.UnescapeString(s)
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	normalized := strings.Join(out, "\n")
	replacer := strings.NewReplacer(
		" .", ".",
		" ,", ",",
		" ;", ";",
		" :", ":",
		" !", "!",
		" ?", "?",
		" )", ")",
		"( ", "(",
	)
	return replacer.Replace(normalized)
}

func findBodyNode(node *nethtml.Node) *nethtml.Node {
	if node == nil {
		return nil
	}
	if node.Type == nethtml.ElementNode && strings.EqualFold(node.Data, "body") {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findBodyNode(child); found != nil {
			return found
		}
	}
	return nil
}

func wrapText(text string, width int) []string {
	if width < 1 {
		return []string{text}
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))

	for _, p := range paragraphs {
		words := strings.Fields(p)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		lineLen := 0
		for _, word := range words {
			runes := []rune(word)
			for len(runes) > width {
				if line != "" {
					out = append(out, line)
					line, lineLen = "", 0
				}
				out = append(out, string(runes[:width]))
				runes = runes[width:]
			}
			word = string(runes)

			if line == "" {
				line, lineLen = word, len(runes)
				continue
			}
			if lineLen+1+len(runes) <= width {
				line += " " + word
				lineLen += 1 + len(runes)
				continue
			}
			out = append(out, line)
			line, lineLen = word, len(runes)
		}
		if line != "" {
			out = append(out, line)
		}
	}

	return out
}
