package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nawrec86/school-management-backend/internal/auth"
	"github.com/nawrec86/school-management-backend/internal/config"
	"github.com/nawrec86/school-management-backend/internal/metrics"
	"github.com/nawrec86/school-management-backend/internal/model"
	"github.com/nawrec86/school-management-backend/internal/repository"
)

type Server struct {
	cfg      config.Config
	auth     *auth.Service
	records  repository.RecordStore
	gatherer prometheus.Gatherer
	metrics  *metrics.Collector
	limiter  *ipLimiter
}

func NewServer(cfg config.Config, authService *auth.Service, records repository.RecordStore, collector *metrics.Collector, gatherer prometheus.Gatherer) *Server {
	return &Server{
		cfg:      cfg,
		auth:     authService,
		records:  records,
		gatherer: gatherer,
		metrics:  collector,
		limiter:  newIPLimiter(cfg.LoginRatePerMinute),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to School Management System API"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(s.gatherer))

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.With(s.requireRoles(model.RoleAdmin, model.RoleStaff)).Post("/students", s.handleCreateStudent)
	r.With(s.requireRoles(model.RoleAdmin, model.RoleTeacher, model.RoleStaff)).Get("/students", s.handleListStudents)
	r.With(s.requireRoles(model.RoleAdmin, model.RoleTeacher, model.RoleStaff)).Get("/students/{studentId}", s.handleGetStudent)

	r.With(s.requireRoles(model.RoleAdmin, model.RoleTeacher)).Post("/attendance", s.handleCreateAttendance)
	r.With(s.requireRoles(model.RoleAdmin, model.RoleTeacher, model.RoleStaff)).Get("/students/{studentId}/attendance", s.handleListAttendance)

	r.With(s.requireRoles(model.RoleAdmin, model.RoleStaff)).Post("/payments", s.handleCreatePayment)
	r.With(s.requireRoles(model.RoleAdmin, model.RoleStaff)).Get("/students/{studentId}/payments", s.handleListPayments)

	return r
}

// requireRoles authorizes the request against the route's required role
// set before the handler runs. On success the resolved identity rides the
// request context; every denial is rejected here with 403.
func (s *Server) requireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := s.auth.Authorize(r.Context(), r.Header.Get(auth.TokenHeader), roles...)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		writeError(w, http.StatusForbidden, "missing_token")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "invalid_token")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Password, role)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username_taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"username": user.Username,
		"role":     string(user.Role),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	token, role, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, auth.ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, "too_many_attempts")
		default:
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"role":  string(role),
	})
}

type createStudentRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	SchoolID  string `json:"school,omitempty"`
}

type studentSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	SchoolID  string `json:"school,omitempty"`
	CreatedOn int64  `json:"createdOn"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	student := model.Student{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		SchoolID:  strings.TrimSpace(req.SchoolID),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.records.CreateStudent(r.Context(), student); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapStudent(student))
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.records.ListStudents(r.Context(), queryLimit(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]studentSummary, 0, len(students))
	for _, student := range students {
		resp = append(resp, mapStudent(student))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	student, err := s.records.GetStudent(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapStudent(student))
}

type createAttendanceRequest struct {
	StudentID  string `json:"studentId"`
	Status     string `json:"status"`
	OccurredOn int64  `json:"occurredOn"`
}

type attendanceSummary struct {
	ID         string `json:"id"`
	StudentID  string `json:"studentId"`
	Status     string `json:"status"`
	OccurredOn int64  `json:"occurredOn"`
	RecordedBy string `json:"recordedBy"`
}

func (s *Server) handleCreateAttendance(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "missing_token")
		return
	}

	var req createAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}
	status, err := normalizeStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	occurredOn := time.Now().UTC()
	if req.OccurredOn != 0 {
		occurredOn = time.Unix(req.OccurredOn, 0).UTC()
	}

	if _, err := s.records.GetStudent(r.Context(), req.StudentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	record := model.AttendanceRecord{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		Status:     status,
		OccurredOn: occurredOn,
		RecordedBy: actor.ID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.records.CreateAttendance(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapAttendance(record))
}

func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	records, err := s.records.ListAttendanceByStudent(r.Context(), studentID, queryLimit(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]attendanceSummary, 0, len(records))
	for _, record := range records {
		resp = append(resp, mapAttendance(record))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createPaymentRequest struct {
	StudentID   string `json:"studentId"`
	AmountCents int64  `json:"amountCents"`
	Description string `json:"description"`
	PaidAt      int64  `json:"paidAt"`
}

type paymentSummary struct {
	ID          string `json:"id"`
	StudentID   string `json:"studentId"`
	AmountCents int64  `json:"amountCents"`
	Description string `json:"description,omitempty"`
	RecordedBy  string `json:"recordedBy"`
	PaidAt      int64  `json:"paidAt"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "missing_token")
		return
	}

	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}
	if req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}

	paidAt := time.Now().UTC()
	if req.PaidAt != 0 {
		paidAt = time.Unix(req.PaidAt, 0).UTC()
	}

	if _, err := s.records.GetStudent(r.Context(), req.StudentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	payment := model.Payment{
		ID:          uuid.NewString(),
		StudentID:   req.StudentID,
		AmountCents: req.AmountCents,
		Description: strings.TrimSpace(req.Description),
		RecordedBy:  actor.ID,
		PaidAt:      paidAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.records.CreatePayment(r.Context(), payment); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapPayment(payment))
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	payments, err := s.records.ListPaymentsByStudent(r.Context(), studentID, queryLimit(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]paymentSummary, 0, len(payments))
	for _, payment := range payments {
		resp = append(resp, mapPayment(payment))
	}
	writeJSON(w, http.StatusOK, resp)
}

func mapStudent(student model.Student) studentSummary {
	return studentSummary{
		ID:        student.ID,
		FirstName: student.FirstName,
		LastName:  student.LastName,
		SchoolID:  student.SchoolID,
		CreatedOn: student.CreatedAt.Unix(),
	}
}

func mapAttendance(record model.AttendanceRecord) attendanceSummary {
	return attendanceSummary{
		ID:         record.ID,
		StudentID:  record.StudentID,
		Status:     record.Status,
		OccurredOn: record.OccurredOn.Unix(),
		RecordedBy: record.RecordedBy,
	}
}

func mapPayment(payment model.Payment) paymentSummary {
	return paymentSummary{
		ID:          payment.ID,
		StudentID:   payment.StudentID,
		AmountCents: payment.AmountCents,
		Description: payment.Description,
		RecordedBy:  payment.RecordedBy,
		PaidAt:      payment.PaidAt.Unix(),
	}
}

func normalizeStatus(raw string) (string, error) {
	status := strings.TrimSpace(strings.ToLower(raw))
	switch status {
	case "present", "absent", "late", "excused":
		return status, nil
	default:
		return "", errors.New("invalid status")
	}
}

func queryLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
