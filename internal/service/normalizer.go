package service

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"redcode-api/internal/model"
)

// ImageResolver turns an asset id into a displayable image URL.
type ImageResolver interface {
	ResolveImage(ctx context.Context, assetID string) (string, error)
}

// DefaultLookupConcurrency bounds parallel image lookups per report.
const DefaultLookupConcurrency = 8

const (
	// MaxItemCount caps a single item's quantity.
	MaxItemCount = math.MaxInt32

	// MaxCounter caps player counters such as coins and XP. Every integer
	// up to it is exact in a float64.
	MaxCounter = 1 << 53
)

var assetIDPattern = regexp.MustCompile(`rbxassetid://(\d+)`)

// Normalizer maps loosely typed inventory records to InventoryItem.
type Normalizer struct {
	images      ImageResolver
	concurrency int
}

// NewNormalizer creates a normalizer. images may be nil to skip icon lookups.
func NewNormalizer(images ImageResolver, concurrency int) *Normalizer {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	return &Normalizer{images: images, concurrency: concurrency}
}

// Normalize builds one InventoryItem. It never fails: missing or malformed
// fields fall back to defaults and a failed image lookup keeps the raw icon.
func (n *Normalizer) Normalize(ctx context.Context, category string, raw model.RawItem) model.InventoryItem {
	item := model.InventoryItem{
		Name:   itemName(raw),
		Rarity: itemRarity(raw),
		Count:  ItemCount(raw),
		Type:   category,
		UUID:   stringField(raw, "UUID"),
	}
	if t := stringField(raw, "Type"); t != "" {
		item.Type = t
	}

	icon := stringField(raw, "Icon")
	item.ID = assetID(raw, icon)
	item.Icon = icon

	if item.ID != "" && n.images != nil {
		url, err := n.images.ResolveImage(ctx, item.ID)
		if err != nil {
			log.Printf("[Normalizer] Image lookup failed for asset %s: %v", item.ID, err)
		} else if url != "" {
			item.Icon = url
		}
	}
	return item
}

// NormalizeInventory normalizes every item of every category, keeping the
// category order of the report and the item order within each category.
func (n *Normalizer) NormalizeInventory(ctx context.Context, inv model.RawInventory) []model.InventoryItem {
	total := 0
	for _, cat := range inv {
		total += len(cat.Items)
	}
	items := make([]model.InventoryItem, total)
	if total == 0 {
		return items
	}

	var g errgroup.Group
	g.SetLimit(n.concurrency)

	i := 0
	for _, cat := range inv {
		for _, raw := range cat.Items {
			idx, category, raw := i, cat.Name, raw
			g.Go(func() error {
				items[idx] = n.Normalize(ctx, category, raw)
				return nil
			})
			i++
		}
	}
	_ = g.Wait()

	return items
}

// ItemCount returns the quantity of a raw item, or 1 when absent or below 1.
// Quantities above MaxItemCount are capped.
func ItemCount(raw model.RawItem) int {
	for _, key := range []string{"Quantity", "Amount", "Count"} {
		v, ok := lookup(raw, key)
		if !ok {
			continue
		}
		if f, ok := number(v); ok {
			return int(clampInt(math.Floor(f), 1, MaxItemCount))
		}
	}
	return 1
}

// clampInt converts f to an integer within [lo, hi]. NaN maps to lo.
func clampInt(f float64, lo, hi int64) int64 {
	switch {
	case math.IsNaN(f), f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	}
	return int64(f)
}

func itemName(raw model.RawItem) string {
	if name := stringField(raw, "Name"); name != "" {
		return name
	}
	return "Unknown"
}

// itemRarity prefers a string Rarity label, then a numeric tier.
func itemRarity(raw model.RawItem) model.Rarity {
	if v, ok := lookup(raw, "Rarity"); ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return model.ParseRarity(s)
		}
	}

	for _, key := range []string{"Tier", "Rarity"} {
		v, ok := lookup(raw, key)
		if !ok {
			continue
		}
		if f, ok := number(v); ok && f == math.Trunc(f) {
			return model.RarityFromTier(int(f))
		}
	}
	return model.RarityCommon
}

func assetID(raw model.RawItem, icon string) string {
	if m := assetIDPattern.FindStringSubmatch(icon); m != nil {
		return m[1]
	}
	if v, ok := lookup(raw, "Id"); ok {
		switch id := v.(type) {
		case string:
			if id != "" {
				return id
			}
		case json.Number:
			return id.String()
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64)
		case int:
			return strconv.Itoa(id)
		case int64:
			return strconv.FormatInt(id, 10)
		}
	}
	return stringField(raw, "UUID")
}

// lookup finds key case-insensitively, preferring an exact match.
func lookup(raw model.RawItem, key string) (any, bool) {
	if v, ok := raw[key]; ok && v != nil {
		return v, true
	}
	for k, v := range raw {
		if v != nil && strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func stringField(raw model.RawItem, key string) string {
	v, ok := lookup(raw, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// number accepts JSON numbers in any decoded form, including numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
