package model

import "time"

// User is a dashboard account that owns bots.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	APIKey       string    `json:"apiKey"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FleetStats are the public totals shown on the landing page.
type FleetStats struct {
	TotalUsers int64 `json:"totalUsers"`
	TotalBots  int64 `json:"totalBots"`
	TotalCoins int64 `json:"totalCoins"`
	TotalFish  int64 `json:"totalFish"`
}
