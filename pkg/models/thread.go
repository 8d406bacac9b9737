package models

import "time"

// ThreadType distinguishes one-on-one coaching conversations from group ones.
type ThreadType string

const (
	ThreadTypeDirect ThreadType = "direct"
	ThreadTypeGroup  ThreadType = "group"
)

// Role is a participant's membership role within a thread.
type Role string

const (
	RoleMember Role = "member"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

// Roles lists every valid participant role.
var Roles = []Role{RoleMember, RoleCoach, RoleAdmin}

// Participant is a single {userID, role} membership entry. A user appears at
// most once per thread.
type Participant struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// ThreadMetadata is the free-form activity bag carried on every thread.
type ThreadMetadata struct {
	// VideoResponses holds opaque references into the video service.
	VideoResponses []string `json:"video_responses,omitempty"`
	// ActiveParticipants is the subset of participant user IDs currently
	// engaged in the conversation.
	ActiveParticipants []string  `json:"active_participants,omitempty"`
	LastActivity       time.Time `json:"last_activity"`
}

// Thread is the persisted conversation document.
type Thread struct {
	ID           string        `json:"id"`
	Title        string        `json:"title,omitempty"`
	Type         ThreadType    `json:"type"`
	CreatedBy    string        `json:"created_by"`
	Participants []Participant `json:"participants"`
	IsArchived   bool          `json:"is_archived"`
	CreatedAt    time.Time     `json:"created_at"`
	// LastMessageAt advances whenever a message lands; it never moves
	// backwards outside administrative correction.
	LastMessageAt time.Time      `json:"last_message_at"`
	Metadata      ThreadMetadata `json:"metadata"`
}

// HasParticipant reports whether userID is a member of the thread.
func (t Thread) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the role of userID within the thread, if present.
func (t Thread) RoleOf(userID string) (Role, bool) {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return p.Role, true
		}
	}
	return "", false
}

// ParticipantIDs returns the user IDs of all participants in order.
func (t Thread) ParticipantIDs() []string {
	ids := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
