// Package validation enforces the thread business rules at the service edge.
// The store itself trusts its input; every request passes through here first.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"coachchat/pkg/models"
)

const maxTitleLen = 200

// ValidateCreateThread checks shape and business rules for a new thread:
// participants present and unique, count consistent with the thread type,
// roles from the known set.
func ValidateCreateThread(title string, typ models.ThreadType, participants []models.Participant, createdBy string) error {
	var errs []string

	if strings.TrimSpace(createdBy) == "" {
		errs = append(errs, "created_by is required")
	}
	if len(title) > maxTitleLen {
		errs = append(errs, fmt.Sprintf("title exceeds %d characters", maxTitleLen))
	}

	switch typ {
	case models.ThreadTypeDirect:
		if len(participants) != 2 {
			errs = append(errs, "direct threads require exactly 2 participants")
		}
	case models.ThreadTypeGroup:
		if len(participants) < 2 {
			errs = append(errs, "group threads require at least 2 participants")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown thread type: %q", typ))
	}

	if len(participants) == 0 {
		errs = append(errs, "participants must not be empty")
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if strings.TrimSpace(p.UserID) == "" {
			errs = append(errs, "participant user_id must not be empty")
			continue
		}
		if _, dup := seen[p.UserID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate participant: %s", p.UserID))
		}
		seen[p.UserID] = struct{}{}
		if !validRole(p.Role) {
			errs = append(errs, fmt.Sprintf("invalid role %q for participant %s", p.Role, p.UserID))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateRole reports whether role names a known participant role. The
// empty string is accepted where it means "no filter".
func ValidateRole(role models.Role) error {
	if role == "" || validRole(role) {
		return nil
	}
	return fmt.Errorf("invalid role: %q", role)
}

// ValidateThreadType reports whether typ names a known thread type. The
// empty string is accepted where it means "no filter".
func ValidateThreadType(typ models.ThreadType) error {
	if typ == "" || typ == models.ThreadTypeDirect || typ == models.ThreadTypeGroup {
		return nil
	}
	return fmt.Errorf("invalid thread type: %q", typ)
}

func validRole(r models.Role) bool {
	for _, known := range models.Roles {
		if r == known {
			return true
		}
	}
	return false
}
