package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by repositories
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// User errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidPassword   = errors.New("invalid password")
)

// Content errors
var (
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
)

// Quiz room errors
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrAlreadyJoined       = errors.New("already joined room")
	ErrRoomNotJoinable     = errors.New("room is not joinable")
	ErrAlreadyStarted      = errors.New("room already started")
	ErrRoomNotActive       = errors.New("room is not active")
	ErrNotAuthorized       = errors.New("not authorized for this room")
	ErrInsufficientContent = errors.New("not enough questions")
)

// Study group errors
var (
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupFull     = errors.New("group is full")
	ErrAlreadyMember = errors.New("already a group member")
)

// Conversation errors
var (
	ErrConversationNotFound = errors.New("conversation not found")
)

// Help queue errors
var (
	ErrHelpRequestNotFound = errors.New("help request not found")
	ErrHelpRequestClaimed  = errors.New("help request already claimed")
)

// General errors
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternalError = errors.New("internal error")
)
