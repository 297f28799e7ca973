package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/vaccine-booking/internal/models"
)

// MemoryRepository keeps records in process memory. It enforces the same
// unique constraints as the SQL schema and is used with STORAGE=memory.
type MemoryRepository struct {
	mu           sync.Mutex
	users        []models.User
	appointments []models.Appointment
	sessions     map[string]models.Session
	nextUserID   int64
	nextApptID   int64
}

// NewMemoryRepository returns an empty in-memory store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]models.Session)}
}

func (m *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return &DuplicateError{Field: "username"}
		}
		if u.Email == user.Email {
			return &DuplicateError{Field: "email"}
		}
	}
	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = time.Now()
	m.users = append(m.users, *user)
	return nil
}

func (m *MemoryRepository) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.ID == id })
}

func (m *MemoryRepository) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.Email == email })
}

func (m *MemoryRepository) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.Username == username })
}

func (m *MemoryRepository) findUser(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.users {
		if match(&m.users[i]) {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.appointments {
		if existing.Aadhar == a.Aadhar {
			return &DuplicateError{Field: "aadhar"}
		}
	}
	m.nextApptID++
	a.ID = m.nextApptID
	a.CreatedAt = time.Now()
	m.appointments = append(m.appointments, *a)
	return nil
}

func (m *MemoryRepository) FindAppointmentByAadhar(_ context.Context, aadhar string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.appointments {
		if a.Aadhar == aadhar {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) ListAppointmentsByEmail(_ context.Context, email string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.appointments {
		if a.Email == email {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryRepository) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryRepository) FindSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MemoryRepository) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
