package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/vaccine-booking/internal/models"
	"github.com/Dan9191/vaccine-booking/internal/repository"
	"github.com/Dan9191/vaccine-booking/internal/utils/xmlexport"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrAadharTaken        = errors.New("aadhar number already has a booking")
)

// Store is the persistence the service needs
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	FindAppointmentByAadhar(ctx context.Context, aadhar string) (*models.Appointment, error)
	ListAppointmentsByEmail(ctx context.Context, email string) ([]models.Appointment, error)
}

// Notifier tells a booker their appointment was recorded
type Notifier interface {
	SendBookingConfirmation(user *models.User, a *models.Appointment) error
}

// Service handles business logic
type Service struct {
	repo     Store
	log      *logrus.Logger
	notifier Notifier
	// compared against when the email is unknown so both failure paths cost one bcrypt check
	dummyHash []byte
}

// NewService initializes a new service. notifier may be nil.
func NewService(repo Store, log *logrus.Logger, notifier Notifier) (*Service, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}
	return &Service{repo: repo, log: log, notifier: notifier, dummyHash: dummy}, nil
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := s.checkAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	// the unique constraints still decide when two signups race past the checks above
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, duplicateToTaken(err)
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

func (s *Service) checkAvailable(ctx context.Context, username, email string) error {
	if _, err := s.repo.FindUserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.repo.FindUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// Login verifies credentials. Unknown email and wrong password both return
// ErrInvalidCredentials after a bcrypt comparison.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash := s.dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || user == nil {
		s.log.Infof("Failed login for %s", email)
		return nil, ErrInvalidCredentials
	}

	s.log.Infof("User logged in: %s", user.Email)
	return user, nil
}

// UserByID loads the user a session belongs to
func (s *Service) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// BookAppointment stores a for user. The booking is always filed under the
// user's email, whatever a.Email held.
func (s *Service) BookAppointment(ctx context.Context, user *models.User, a *models.Appointment) error {
	a.Email = user.Email

	if _, err := s.repo.FindAppointmentByAadhar(ctx, a.Aadhar); err == nil {
		return ErrAadharTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		return duplicateToTaken(err)
	}
	s.log.Infof("Appointment %d booked by %s for %s on %s", a.ID, user.Email, a.FullName(), a.Date)

	if s.notifier != nil {
		if err := s.notifier.SendBookingConfirmation(user, a); err != nil {
			s.log.Warnf("Booking %d saved but confirmation not sent: %v", a.ID, err)
		}
	}
	return nil
}

// Bookings lists the appointments filed under user's email
func (s *Service) Bookings(ctx context.Context, user *models.User) ([]models.Appointment, error) {
	return s.repo.ListAppointmentsByEmail(ctx, user.Email)
}

// ExportBookings renders user's bookings as an XML document
func (s *Service) ExportBookings(ctx context.Context, user *models.User) ([]byte, error) {
	list, err := s.Bookings(ctx, user)
	if err != nil {
		return nil, err
	}
	return xmlexport.Bookings(user, list)
}

func duplicateToTaken(err error) error {
	var dup *repository.DuplicateError
	if !errors.As(err, &dup) {
		return err
	}
	switch dup.Field {
	case "username":
		return ErrUsernameTaken
	case "email":
		return ErrEmailTaken
	case "aadhar":
		return ErrAadharTaken
	}
	return err
}
