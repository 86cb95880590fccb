package domain

import (
	"time"

	"github.com/google/uuid"
)

// HelpPriority orders requests in the queue
type HelpPriority string

const (
	HelpPriorityLow    HelpPriority = "low"
	HelpPriorityMedium HelpPriority = "medium"
	HelpPriorityHigh   HelpPriority = "high"
	HelpPriorityUrgent HelpPriority = "urgent"
)

// HelpStatus tracks a request through the queue
type HelpStatus string

const (
	HelpStatusPending   HelpStatus = "pending"
	HelpStatusAssigned  HelpStatus = "assigned"
	HelpStatusCompleted HelpStatus = "completed"
	HelpStatusCancelled HelpStatus = "cancelled"
)

// HelpRequest is a student's plea for teacher attention
type HelpRequest struct {
	ID              uuid.UUID
	StudentID       uuid.UUID
	Subject         string
	Description     string
	Priority        HelpPriority
	Status          HelpStatus
	AssignedTeacher *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidHelpPriority reports whether p is a recognized priority
func ValidHelpPriority(p HelpPriority) bool {
	switch p {
	case HelpPriorityLow, HelpPriorityMedium, HelpPriorityHigh, HelpPriorityUrgent:
		return true
	}
	return false
}
