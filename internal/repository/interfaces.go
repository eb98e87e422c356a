// Package repository defines the persistence interfaces and their
// Postgres and in-memory implementations.
package repository

import (
	"context"
	"errors"

	"github.com/nawrec86/school-management-backend/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned when a user create collides with an
	// existing username. The store enforces this atomically; concurrent
	// duplicate creates see exactly one success.
	ErrUsernameTaken = errors.New("username already taken")
)

// UserStore persists account credentials. There are no update or delete
// operations; a role is fixed at registration.
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) error
	FindUserByUsername(ctx context.Context, username string) (model.User, error)
	FindUserByID(ctx context.Context, id string) (model.User, error)
}

// RecordStore persists the administrative records that sit behind the
// protected routes.
type RecordStore interface {
	CreateStudent(ctx context.Context, student model.Student) error
	ListStudents(ctx context.Context, limit int) ([]model.Student, error)
	GetStudent(ctx context.Context, id string) (model.Student, error)

	CreateAttendance(ctx context.Context, record model.AttendanceRecord) error
	ListAttendanceByStudent(ctx context.Context, studentID string, limit int) ([]model.AttendanceRecord, error)

	CreatePayment(ctx context.Context, payment model.Payment) error
	ListPaymentsByStudent(ctx context.Context, studentID string, limit int) ([]model.Payment, error)
}
