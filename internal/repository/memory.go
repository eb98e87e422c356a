package repository

import (
	"context"
	"sync"

	"github.com/nawrec86/school-management-backend/internal/model"
)

// Memory is an in-process store used by tests and local development.
// The mutex gives CreateUser the same atomic uniqueness guarantee the
// Postgres UNIQUE constraint provides.
type Memory struct {
	mu         sync.Mutex
	users      map[string]model.User // keyed by id
	byUsername map[string]string     // username -> id
	students   map[string]model.Student
	attendance []model.AttendanceRecord
	payments   []model.Payment
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]model.User),
		byUsername: make(map[string]string),
		students:   make(map[string]model.Student),
	}
}

func (m *Memory) CreateUser(_ context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byUsername[user.Username]; exists {
		return ErrUsernameTaken
	}
	m.users[user.ID] = user
	m.byUsername[user.Username] = user.ID
	return nil
}

func (m *Memory) FindUserByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUsername[username]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) FindUserByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

// SetUserRole mutates a stored role in place. No API endpoint changes
// roles; this exists so tests can simulate an out-of-band role change.
func (m *Memory) SetUserRole(id string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	m.users[id] = user
	return nil
}

// DeleteUser removes an account. Used by tests to simulate an identity
// deleted after its token was issued.
func (m *Memory) DeleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		delete(m.byUsername, user.Username)
		delete(m.users, id)
	}
}

func (m *Memory) CreateStudent(_ context.Context, student model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[student.ID] = student
	return nil
}

func (m *Memory) ListStudents(_ context.Context, limit int) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	students := make([]model.Student, 0, len(m.students))
	for _, student := range m.students {
		students = append(students, student)
		if len(students) == limit {
			break
		}
	}
	return students, nil
}

func (m *Memory) GetStudent(_ context.Context, id string) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[id]
	if !ok {
		return model.Student{}, ErrNotFound
	}
	return student, nil
}

func (m *Memory) CreateAttendance(_ context.Context, record model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance = append(m.attendance, record)
	return nil
}

func (m *Memory) ListAttendanceByStudent(_ context.Context, studentID string, limit int) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []model.AttendanceRecord
	for _, record := range m.attendance {
		if record.StudentID != studentID {
			continue
		}
		records = append(records, record)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

func (m *Memory) CreatePayment(_ context.Context, payment model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, payment)
	return nil
}

func (m *Memory) ListPaymentsByStudent(_ context.Context, studentID string, limit int) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var payments []model.Payment
	for _, payment := range m.payments {
		if payment.StudentID != studentID {
			continue
		}
		payments = append(payments, payment)
		if len(payments) == limit {
			break
		}
	}
	return payments, nil
}
