package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/vaccine-booking/internal/config"
	"github.com/Dan9191/vaccine-booking/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.smtpSend
	return s
}

// SendBookingConfirmation mails the booking details to the user who made it
func (s *Sender) SendBookingConfirmation(user *models.User, a *models.Appointment) error {
	e := s.bookingEmail(user, a)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send booking confirmation to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", user.Email, e.Subject)
	return nil
}

func (s *Sender) bookingEmail(user *models.User, a *models.Appointment) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = "Vaccination Appointment Confirmation"

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", user.Username)
	fmt.Fprintf(&body, "Your appointment for %s has been booked.\n\n", a.FullName())
	fmt.Fprintf(&body, "Dose:      %s\n", a.Dose)
	fmt.Fprintf(&body, "Date:      %s\n", a.Date)
	fmt.Fprintf(&body, "Time slot: %s\n", a.Timeslot)
	fmt.Fprintf(&body, "Location:  %s, %s\n", a.Location, a.District)
	body.WriteString("\nPlease carry your Aadhar card to the vaccination centre.\n")
	body.WriteString("\nBest regards,\nVaccination Booking Service")
	e.Text = []byte(body.String())
	return e
}

func (s *Sender) smtpSend(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}
