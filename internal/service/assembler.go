package service

import (
	"strings"

	"supportbot/internal/domain"
)

// SourceDefaults fill in Source fields for matches whose metadata lacks them.
type SourceDefaults struct {
	Title string
	URL   string
}

// Assemble joins match contents with blank lines and projects each match to a Source.
// Order is preserved and scores are copied verbatim.
func Assemble(matches []domain.Match, defaults SourceDefaults) (string, []domain.Source) {
	parts := make([]string, len(matches))
	sources := make([]domain.Source, len(matches))
	for i, m := range matches {
		parts[i] = m.Content
		title, url := m.Title, m.URL
		if title == "" {
			title = defaults.Title
		}
		if url == "" {
			url = defaults.URL
		}
		sources[i] = domain.Source{Title: title, URL: url, RelevanceScore: m.Score}
	}
	return strings.Join(parts, "\n\n"), sources
}
