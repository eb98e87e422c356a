package model

import (
	"strings"
	"time"
)

// Role is the closed set of account roles. No free-text roles exist;
// anything outside this set is rejected at registration.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStaff   Role = "staff"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStaff, RoleStudent:
		return true
	default:
		return false
	}
}

// ParseRole normalizes raw input into a Role. The second return is false
// when the input is not one of the enumerated roles.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	return role, role.Valid()
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

type Student struct {
	ID        string
	FirstName string
	LastName  string
	SchoolID  string
	CreatedAt time.Time
}

type AttendanceRecord struct {
	ID         string
	StudentID  string
	Status     string
	OccurredOn time.Time
	RecordedBy string
	CreatedAt  time.Time
}

type Payment struct {
	ID          string
	StudentID   string
	AmountCents int64
	Description string
	RecordedBy  string
	PaidAt      time.Time
	CreatedAt   time.Time
}
