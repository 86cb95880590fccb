package domain

import (
	"time"

	"github.com/google/uuid"
)

// AchievementRarity grades how hard a badge is to earn
type AchievementRarity string

const (
	RarityCommon    AchievementRarity = "common"
	RarityRare      AchievementRarity = "rare"
	RarityEpic      AchievementRarity = "epic"
	RarityLegendary AchievementRarity = "legendary"
)

// Achievement is one badge in the catalog. The catalog ships with the
// binary; only earned badges are persisted.
type Achievement struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	Rarity      AchievementRarity `json:"rarity"`
	XPReward    int               `json:"xp_reward"`
}

// EarnedAchievement records when a user unlocked a badge
type EarnedAchievement struct {
	UserID        uuid.UUID
	AchievementID string
	EarnedAt      time.Time
}
