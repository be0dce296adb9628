package service

import "redcode-api/internal/model"

// RankRarest returns the name and tier of the highest-ranked item.
// Ties keep the first item seen; unknown labels rank as common.
// An empty list yields ("None", common).
func RankRarest(items []model.InventoryItem) (string, model.Rarity) {
	name, rarity := model.NoRarestFish, model.RarityCommon
	best := -1
	for _, item := range items {
		if rank := item.Rarity.Rank(); rank > best {
			best = rank
			name = item.Name
			rarity = item.Rarity.Canonical()
		}
	}
	return name, rarity
}
