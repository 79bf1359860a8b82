package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinTaskNameLength is the shortest task name accepted when creating a session.
const MinTaskNameLength = 3

// Session represents one estimation room.
type Session struct {
	ID         uuid.UUID `json:"id"`
	TaskName   string    `json:"task_name"`
	IsRevealed bool      `json:"is_revealed"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidateTaskName trims name and checks its length.
func ValidateTaskName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < MinTaskNameLength {
		return "", fmt.Errorf("task name must be at least %d characters", MinTaskNameLength)
	}
	return trimmed, nil
}
