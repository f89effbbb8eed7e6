package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/PuerkitoBio/goquery"
)

// DefaultItemSelector matches list entries in HTML pages
const DefaultItemSelector = "[data-title]"

// ListParser reads curated title lists published as JSON or HTML.
//
// JSON bodies are a top-level array or an object holding an "items" or
// "results" array (the TMDB list shape). HTML bodies are scanned for elements
// matching the item selector; the title comes from data-title or the element
// text and the id from data-tmdb-id.
type ListParser struct {
	itemSelector string
}

// NewListParser creates a list parser; an empty selector uses DefaultItemSelector
func NewListParser(itemSelector string) *ListParser {
	if strings.TrimSpace(itemSelector) == "" {
		itemSelector = DefaultItemSelector
	}
	return &ListParser{itemSelector: itemSelector}
}

// Parse detects the body format from contentType, falling back to sniffing
func (p *ListParser) Parse(body []byte, contentType string) ([]ListItem, error) {
	if isJSON(body, contentType) {
		return p.parseJSON(body)
	}
	return p.parseHTML(body, contentType)
}

func isJSON(body []byte, contentType string) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return true
	case strings.Contains(ct, "html"):
		return false
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')
}

func (p *ListParser) parseJSON(body []byte) ([]ListItem, error) {
	logger := config.GetLogger()

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON list: %w", err)
	}

	var (
		raw      []any
		tmdbList bool
	)
	switch v := root.(type) {
	case []any:
		raw = v
	case map[string]any:
		for _, key := range []string{"items", "results"} {
			if arr, ok := v[key].([]any); ok {
				raw, tmdbList = arr, true
				break
			}
		}
		if !tmdbList {
			return nil, errors.New(`JSON list object has no "items" or "results" array`)
		}
	default:
		return nil, fmt.Errorf("unexpected JSON list root %T", root)
	}

	items := make([]ListItem, 0, len(raw))
	for i, entry := range raw {
		switch e := entry.(type) {
		case string:
			if title := strings.TrimSpace(e); title != "" {
				items = append(items, ListItem{Title: title})
			}
		case map[string]any:
			item := ListItem{
				Title:      firstString(e, "title", "name"),
				ExternalID: jsonID(e, tmdbList),
			}
			if item.Title == "" {
				logger.Debug().Int("index", i).Msg("Skipping list item without a title")
				continue
			}
			items = append(items, item)
		default:
			logger.Debug().Int("index", i).Msgf("Skipping list item of type %T", entry)
		}
	}

	logger.Debug().Int("items", len(items)).Msg("Parsed JSON title list")
	return items, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// jsonID looks for a TMDB id on a list item. The bare "id" key only counts
// inside a TMDB list object, where it is the TMDB id.
func jsonID(m map[string]any, tmdbList bool) string {
	for _, key := range []string{"tmdb_id", "tmdbId"} {
		if id := normalizeID(m[key]); id != "" {
			return id
		}
	}
	if ids, ok := m["ids"].(map[string]any); ok {
		if id := normalizeID(ids["tmdb"]); id != "" {
			return id
		}
	}
	if tmdbList {
		return normalizeID(m["id"])
	}
	return ""
}

// normalizeID accepts numbers and numeric strings; anything else is no id
func normalizeID(v any) string {
	var s string
	switch id := v.(type) {
	case json.Number:
		s = id.String()
	case string:
		s = strings.TrimSpace(id)
	default:
		return ""
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func (p *ListParser) parseHTML(body []byte, contentType string) ([]ListItem, error) {
	logger := config.GetLogger()

	utf8Body, err := NewUTF8Reader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HTML list: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML list: %w", err)
	}

	var items []ListItem
	doc.Find(p.itemSelector).Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.AttrOr("data-title", ""))
		if title == "" {
			title = strings.Join(strings.Fields(s.Text()), " ")
		}
		if title == "" {
			return
		}
		items = append(items, ListItem{
			Title:      title,
			ExternalID: normalizeID(s.AttrOr("data-tmdb-id", "")),
		})
	})

	logger.Debug().Str("selector", p.itemSelector).Int("items", len(items)).Msg("Parsed HTML title list")
	return items, nil
}
