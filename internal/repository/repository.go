package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/vaccine-booking/internal/models"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// DuplicateError reports a unique constraint violation on Field
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

// constraint name -> form field
var uniqueConstraints = map[string]string{
	"users_username_key":      "username",
	"users_email_key":         "email",
	"appointments_aadhar_key": "aadhar",
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tables if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return wrapWriteError("failed to create user", err)
	}
	return nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findUser(ctx, "id", id)
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "email", email)
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, "username", username)
}

func (r *Repository) findUser(ctx context.Context, column string, value any) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE ` + column + ` = $1`
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateAppointment stores a booking and fills in its id
func (r *Repository) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	query := `
		INSERT INTO appointments (firstname, middlename, lastname, mobile, email, address, dob,
			aadhar, dose, another, age, district, location, date, timeslot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		a.FirstName, a.MiddleName, a.LastName, a.Mobile, a.Email, a.Address, a.DOB,
		a.Aadhar, a.Dose, a.Another, a.Age, a.District, a.Location, a.Date, a.Timeslot,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return wrapWriteError("failed to create appointment", err)
	}
	return nil
}

// FindAppointmentByAadhar retrieves the booking made for an Aadhar number
func (r *Repository) FindAppointmentByAadhar(ctx context.Context, aadhar string) (*models.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, appointmentSelect+` WHERE aadhar = $1`, aadhar)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	list, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// ListAppointmentsByEmail returns bookings made under email in insertion order
func (r *Repository) ListAppointmentsByEmail(ctx context.Context, email string) ([]models.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, appointmentSelect+` WHERE email = $1 ORDER BY id`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return scanAppointments(rows)
}

const appointmentSelect = `
	SELECT id, firstname, middlename, lastname, mobile, email, address, dob,
		aadhar, dose, another, age, district, location, date, timeslot, created_at
	FROM appointments`

func scanAppointments(rows *sql.Rows) ([]models.Appointment, error) {
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(
			&a.ID, &a.FirstName, &a.MiddleName, &a.LastName, &a.Mobile, &a.Email, &a.Address, &a.DOB,
			&a.Aadhar, &a.Dose, &a.Another, &a.Age, &a.District, &a.Location, &a.Date, &a.Timeslot, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read appointments: %w", err)
	}
	return out, nil
}

// CreateSession stores a login session
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, remember, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.Remember, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindSession retrieves a session by id, expired or not
func (r *Repository) FindSession(ctx context.Context, id string) (*models.Session, error) {
	s := &models.Session{}
	query := `SELECT id, user_id, remember, expires_at, created_at FROM sessions WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.UserID, &s.Remember, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

// DeleteSession removes a session; deleting a missing one is not an error
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return n, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func wrapWriteError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		if field, ok := uniqueConstraints[pqErr.Constraint]; ok {
			return &DuplicateError{Field: field}
		}
		for constraint, field := range uniqueConstraints {
			if strings.Contains(pqErr.Message, constraint) {
				return &DuplicateError{Field: field}
			}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
