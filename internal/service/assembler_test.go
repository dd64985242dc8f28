package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"supportbot/internal/domain"
)

func TestAssemble(t *testing.T) {
	matches := []domain.Match{
		{Score: 0.91, Title: "Wallets", URL: "https://docs.example.com/wallets", Content: "Wallets hold assets."},
		{Score: 12.5, Content: "Scores are not normalized."},
		{Score: -0.2, Title: "Payments", Content: "Pay with stablecoins."},
	}
	defaults := SourceDefaults{Title: "Docs", URL: "https://docs.example.com"}

	text, sources := Assemble(matches, defaults)

	assert.Equal(t, "Wallets hold assets.\n\nScores are not normalized.\n\nPay with stablecoins.", text)
	assert.Equal(t, []domain.Source{
		{Title: "Wallets", URL: "https://docs.example.com/wallets", RelevanceScore: 0.91},
		{Title: "Docs", URL: "https://docs.example.com", RelevanceScore: 12.5},
		{Title: "Payments", URL: "https://docs.example.com", RelevanceScore: -0.2},
	}, sources)
}

func TestAssemble_Empty(t *testing.T) {
	text, sources := Assemble(nil, SourceDefaults{})
	assert.Equal(t, "", text)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}

func TestAssemble_Deterministic(t *testing.T) {
	matches := []domain.Match{
		{Score: 0.5, Title: "a", URL: "u", Content: "first"},
		{Score: 0.4, Title: "b", URL: "v", Content: "second"},
	}
	text1, sources1 := Assemble(matches, SourceDefaults{})
	text2, sources2 := Assemble(matches, SourceDefaults{})
	assert.Equal(t, text1, text2)
	assert.Equal(t, sources1, sources2)
}
