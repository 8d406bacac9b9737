package utils

import "github.com/google/uuid"

// GenThreadID returns a new opaque thread identifier.
func GenThreadID() string {
	return "th_" + uuid.NewString()
}
