package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRarityFromTier(t *testing.T) {
	tests := []struct {
		tier int
		want Rarity
	}{
		{1, RarityCommon},
		{2, RarityUncommon},
		{3, RarityRare},
		{4, RarityEpic},
		{5, RarityLegendary},
		{6, RarityMythic},
		{7, RaritySecret},
		{0, RarityCommon},
		{8, RarityCommon},
		{-3, RarityCommon},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RarityFromTier(tt.tier), "tier %d", tt.tier)
	}
}

func TestRarity_Rank(t *testing.T) {
	assert.Less(t, RarityCommon.Rank(), RarityUncommon.Rank())
	assert.Less(t, RarityLegendary.Rank(), RarityMythic.Rank())
	assert.Less(t, RarityMythic.Rank(), RaritySecret.Rank())

	assert.Equal(t, RarityCommon.Rank(), Rarity("shiny").Rank())
	assert.Equal(t, RarityCommon, Rarity("shiny").Canonical())
	assert.False(t, Rarity("shiny").IsKnown())
	assert.True(t, RarityEpic.IsKnown())
}

func TestParseRarity(t *testing.T) {
	assert.Equal(t, RaritySecret, ParseRarity(" SECRET "))
	assert.Equal(t, RarityMythic, ParseRarity("Mythic"))
}
