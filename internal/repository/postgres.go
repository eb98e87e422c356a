package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nawrec86/school-management-backend/internal/model"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`, username)
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return user, err
}

func (s *Store) FindUserByID(ctx context.Context, id string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, id)
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return user, err
}

func (s *Store) CreateStudent(ctx context.Context, student model.Student) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (id, first_name, last_name, school_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, student.ID, student.FirstName, student.LastName, student.SchoolID, student.CreatedAt)
	return err
}

func (s *Store) ListStudents(ctx context.Context, limit int) ([]model.Student, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, first_name, last_name, school_id, created_at
		FROM students
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var student model.Student
		if err := rows.Scan(&student.ID, &student.FirstName, &student.LastName, &student.SchoolID, &student.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

func (s *Store) GetStudent(ctx context.Context, id string) (model.Student, error) {
	var student model.Student
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, school_id, created_at
		FROM students
		WHERE id = $1
	`, id)
	err := row.Scan(&student.ID, &student.FirstName, &student.LastName, &student.SchoolID, &student.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Student{}, ErrNotFound
	}
	return student, err
}

func (s *Store) CreateAttendance(ctx context.Context, record model.AttendanceRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance_records (id, student_id, status, occurred_on, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, record.StudentID, record.Status, record.OccurredOn, record.RecordedBy, record.CreatedAt)
	return err
}

func (s *Store) ListAttendanceByStudent(ctx context.Context, studentID string, limit int) ([]model.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, status, occurred_on, recorded_by, created_at
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY occurred_on DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var record model.AttendanceRecord
		if err := rows.Scan(&record.ID, &record.StudentID, &record.Status, &record.OccurredOn, &record.RecordedBy, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) CreatePayment(ctx context.Context, payment model.Payment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payments (id, student_id, amount_cents, description, recorded_by, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, payment.ID, payment.StudentID, payment.AmountCents, payment.Description, payment.RecordedBy, payment.PaidAt, payment.CreatedAt)
	return err
}

func (s *Store) ListPaymentsByStudent(ctx context.Context, studentID string, limit int) ([]model.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, amount_cents, description, recorded_by, paid_at, created_at
		FROM payments
		WHERE student_id = $1
		ORDER BY paid_at DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var payment model.Payment
		if err := rows.Scan(&payment.ID, &payment.StudentID, &payment.AmountCents, &payment.Description, &payment.RecordedBy, &payment.PaidAt, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}
