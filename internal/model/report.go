package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Report is one payload pushed by a bot client to /api/gamedata.
type Report struct {
	Username string      `json:"username"`
	Data     *ReportData `json:"data"`
}

// ReportData is the game state section of a report.
type ReportData struct {
	Player    Player          `json:"Player"`
	Inventory RawInventory    `json:"Inventory"`
	Quests    json.RawMessage `json:"Quests,omitempty"`
}

// Player holds the player section. Numeric fields are pointers so that
// absent values can be told apart from zero.
type Player struct {
	Coins            *float64        `json:"Coins"`
	Level            *float64        `json:"Level"`
	XP               *float64        `json:"XP"`
	UserID           any             `json:"UserId"`
	LoginStreak      *float64        `json:"LoginStreak"`
	TotalSessionTime *float64        `json:"TotalSessionTime"`
	Equipped         json.RawMessage `json:"Equipped,omitempty"`
	Statistics       json.RawMessage `json:"Statistics,omitempty"`
	Modifiers        json.RawMessage `json:"Modifiers,omitempty"`
}

// OwnerHint returns the reported player id as a string, or "" when absent.
func (p *Player) OwnerHint() string {
	switch v := p.UserID.(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// RawItem is one untrusted item object as sent by a client.
type RawItem map[string]any

// RawCategory is an inventory category together with its items.
type RawCategory struct {
	Name  string
	Items []RawItem
}

// RawInventory keeps the categories of the inbound object in document order.
type RawInventory []RawCategory

// UnmarshalJSON decodes a category -> items object, preserving key order.
// Values that are not arrays, and array elements that are not objects, are skipped.
func (inv *RawInventory) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*inv = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("inventory must be an object")
	}

	var out RawInventory
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		items, ok := decodeRawItems(raw)
		if !ok {
			continue
		}
		out = append(out, RawCategory{Name: key, Items: items})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*inv = out
	return nil
}

func decodeRawItems(raw json.RawMessage) ([]RawItem, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}

	items := make([]RawItem, 0, len(elems))
	for _, elem := range elems {
		dec := json.NewDecoder(bytes.NewReader(elem))
		dec.UseNumber()
		var item map[string]any
		if err := dec.Decode(&item); err != nil || item == nil {
			continue
		}
		items = append(items, RawItem(item))
	}
	return items, true
}

// HasJSON reports whether raw carries a value other than null.
func HasJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
