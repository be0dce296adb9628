package script

import (
	"net/http"
	"strings"
)

// executors are User-Agent fragments of the script executors allowed to
// download the control script.
var executors = []string{
	"syn", "synapse", "krnl", "script-ware", "fluxus", "oxygen", "sentinel",
	"sirhurt", "electron", "coco", "comet", "trigon", "delta", "hydrogen",
	"arceus", "evon", "jjsploit", "roblox",
}

// IsExecutorRequest reports whether r looks like it comes from an in-game
// script executor: a known executor User-Agent, a Roblox-Id or Roblox-Game
// header, an empty User-Agent, or one mentioning http.request.
func IsExecutorRequest(r *http.Request) bool {
	ua := strings.ToLower(r.Header.Get("User-Agent"))
	if ua == "" {
		return true
	}
	if r.Header.Get("Roblox-Id") != "" || r.Header.Get("Roblox-Game") != "" {
		return true
	}
	if strings.Contains(ua, "http.request") {
		return true
	}
	for _, exec := range executors {
		if strings.Contains(ua, exec) {
			return true
		}
	}
	return false
}
