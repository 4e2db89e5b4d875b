package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/osirix/clinique-api/internal/config"
	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/pkg/logger"
)

type Service interface {
	SendAppointmentConfirmation(ctx context.Context, to string, apt *model.Appointment) error
	SendAppointmentCancellation(ctx context.Context, to string, apt *model.Appointment) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer     dialer
	from       string
	clinicName string
	logger     *logger.Logger
}

// NewService returns an SMTP mailer, or a mailer that only logs when SMTP
// is not configured.
func NewService(cfg config.SMTPConfig, clinicName string, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("mailer")

	if !cfg.Enabled() {
		return &noopService{logger: log}
	}

	return &smtpService{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.From,
		clinicName: clinicName,
		logger:     log,
	}
}

func (s *smtpService) SendAppointmentConfirmation(ctx context.Context, to string, apt *model.Appointment) error {
	subject := fmt.Sprintf("%s - demande de rendez-vous reçue", s.clinicName)
	body := confirmationBody(s.clinicName, apt)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendAppointmentCancellation(ctx context.Context, to string, apt *model.Appointment) error {
	subject := fmt.Sprintf("%s - rendez-vous annulé", s.clinicName)
	body := cancellationBody(s.clinicName, apt)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("missing recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := newMessage(s.from, to, subject, body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}

	s.logger.Debug("Email sent", "to", to, "subject", subject)
	return nil
}

func newMessage(from, to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

func confirmationBody(clinicName string, apt *model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour,\n\n")
	fmt.Fprintf(&b, "Votre demande de rendez-vous auprès de %s a bien été enregistrée.\n\n", clinicName)
	fmt.Fprintf(&b, "Service : %s\n", apt.ServiceName)
	fmt.Fprintf(&b, "Date : %s à %s\n", apt.AppointmentDate, apt.AppointmentTime)
	fmt.Fprintf(&b, "Référence : %s\n\n", apt.ID)
	fmt.Fprintf(&b, "Le secrétariat vous contactera pour confirmer le créneau.\n")
	return b.String()
}

func cancellationBody(clinicName string, apt *model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour,\n\n")
	fmt.Fprintf(&b, "Votre rendez-vous du %s à %s (%s) auprès de %s a été annulé.\n",
		apt.AppointmentDate, apt.AppointmentTime, apt.ServiceName, clinicName)
	if apt.CancelReason != nil {
		fmt.Fprintf(&b, "Motif : %s\n", *apt.CancelReason)
	}
	return b.String()
}

type noopService struct {
	logger *logger.Logger
}

func (s *noopService) SendAppointmentConfirmation(_ context.Context, to string, apt *model.Appointment) error {
	s.logger.Debug("SMTP disabled, skipping confirmation email", "to", to, "appointment_id", apt.ID.String())
	return nil
}

func (s *noopService) SendAppointmentCancellation(_ context.Context, to string, apt *model.Appointment) error {
	s.logger.Debug("SMTP disabled, skipping cancellation email", "to", to, "appointment_id", apt.ID.String())
	return nil
}
