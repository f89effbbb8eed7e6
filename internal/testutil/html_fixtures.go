package testutil

import (
	"fmt"
	"html"
	"strings"
)

// StringPtr is a helper for creating *string values in tests
func StringPtr(v string) *string {
	return &v
}

// ListItemOptions describes one entry of a generated HTML title list
type ListItemOptions struct {
	Title  string
	TMDBID int    // 0 omits data-tmdb-id
	Text   string // element text; the title is used when empty
	Bare   bool   // render the title as text only, without data-title
}

// GenerateListHTML builds an HTML title list in the shape published by list
// sites: one <li> per title carrying data-title and optionally data-tmdb-id.
func GenerateListHTML(items []ListItemOptions) string {
	return GenerateListHTMLWithCharset(items, "")
}

// GenerateListHTMLWithCharset is GenerateListHTML with a <meta charset> declaration
func GenerateListHTMLWithCharset(items []ListItemOptions, charset string) string {
	var sb strings.Builder

	sb.WriteString("<html>\n<head>\n")
	if charset != "" {
		fmt.Fprintf(&sb, "\t<meta charset=%q>\n", charset)
	}
	sb.WriteString("\t<title>Watchlist</title>\n</head>\n<body>\n<ul class=\"titles\">\n")

	for _, item := range items {
		text := item.Text
		if text == "" {
			text = item.Title
		}
		if item.Bare {
			fmt.Fprintf(&sb, "\t<li class=\"plain\">%s</li>\n", html.EscapeString(text))
			continue
		}

		sb.WriteString("\t<li")
		fmt.Fprintf(&sb, " data-title=\"%s\"", html.EscapeString(item.Title))
		if item.TMDBID != 0 {
			fmt.Fprintf(&sb, " data-tmdb-id=\"%d\"", item.TMDBID)
		}
		fmt.Fprintf(&sb, ">%s</li>\n", html.EscapeString(text))
	}

	sb.WriteString("</ul>\n</body>\n</html>")
	return sb.String()
}

// GenerateEmptyHTML returns a page without any list item
func GenerateEmptyHTML() string {
	return "<html><body><p>Nothing here</p></body></html>"
}
