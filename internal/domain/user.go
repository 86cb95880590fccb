package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what a user may create and moderate
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// User represents a registered user
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	XP           int
	Level        int
	StudyStreak  int
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanModerate reports whether the user may manage content created by others.
func (u *User) CanModerate() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}

// LevelForXP computes a user's level from accumulated experience points.
// Every 100 XP is one level, capped at 100.
func LevelForXP(xp int) int {
	level := xp/100 + 1
	if level > 100 {
		level = 100
	}
	if level < 1 {
		level = 1
	}
	return level
}
