package model

import "strings"

// Rarity is a tier label of an inventory item.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
	RaritySecret    Rarity = "secret"
)

// rarityOrder lists tiers from lowest to highest.
var rarityOrder = []Rarity{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
	RarityMythic,
	RaritySecret,
}

// RarityFromTier maps the game's numeric tier (1-7) to its label.
// Anything outside the table is common.
func RarityFromTier(tier int) Rarity {
	if tier < 1 || tier > len(rarityOrder) {
		return RarityCommon
	}
	return rarityOrder[tier-1]
}

// ParseRarity lower-cases a label reported by a client.
func ParseRarity(label string) Rarity {
	return Rarity(strings.ToLower(strings.TrimSpace(label)))
}

// Rank returns the position of r in the tier order. Unknown labels rank as common.
func (r Rarity) Rank() int {
	for i, tier := range rarityOrder {
		if tier == r {
			return i
		}
	}
	return 0
}

// Canonical returns the known tier sharing r's rank.
func (r Rarity) Canonical() Rarity {
	return rarityOrder[r.Rank()]
}

// IsKnown reports whether r is one of the fixed tiers.
func (r Rarity) IsKnown() bool {
	for _, tier := range rarityOrder {
		if tier == r {
			return true
		}
	}
	return false
}
