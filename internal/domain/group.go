package domain

import (
	"time"

	"github.com/google/uuid"
)

// GroupRole is a member's standing within a study group
type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleMember GroupRole = "member"
)

// StudyGroup is a persisted collaboration space
type StudyGroup struct {
	ID          uuid.UUID
	Name        string
	Description string
	Subject     string
	JoinCode    string
	MaxMembers  int
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// GroupMember ties a user to a group
type GroupMember struct {
	GroupID  uuid.UUID
	UserID   uuid.UUID
	Role     GroupRole
	JoinedAt time.Time
}

// GroupSummary is a listing view with membership info for the requesting user
type GroupSummary struct {
	Group       StudyGroup
	MemberCount int
	IsMember    bool
}
