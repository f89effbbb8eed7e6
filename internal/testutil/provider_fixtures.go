package testutil

import (
	"encoding/json"
	"strconv"
)

// ImageOptions describes one image of a generated provider answer.
// A nil Language renders as JSON null.
type ImageOptions struct {
	Path     string
	Language *string
}

// GenerateTMDBImagesJSON renders a TMDB /images answer holding backdrops
func GenerateTMDBImagesJSON(backdrops []ImageOptions) string {
	type image struct {
		FilePath string  `json:"file_path"`
		ISO6391  *string `json:"iso_639_1"`
	}
	images := make([]image, 0, len(backdrops))
	for _, b := range backdrops {
		images = append(images, image{FilePath: b.Path, ISO6391: b.Language})
	}
	data, _ := json.Marshal(map[string]any{"id": 1, "backdrops": images, "posters": []any{}})
	return string(data)
}

// GenerateFanartJSON renders a fanart.tv answer with the images under key
// (moviebackground or showbackground). Path holds the full image URL.
func GenerateFanartJSON(key string, backgrounds []ImageOptions) string {
	type image struct {
		ID   string  `json:"id"`
		URL  string  `json:"url"`
		Lang *string `json:"lang"`
	}
	images := make([]image, 0, len(backgrounds))
	for i, b := range backgrounds {
		images = append(images, image{ID: strconv.Itoa(i + 1), URL: b.Path, Lang: b.Language})
	}
	data, _ := json.Marshal(map[string]any{"name": "fixture", key: images})
	return string(data)
}
