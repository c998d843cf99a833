package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/MrEthical07/ardentid/internal/logger"
	"github.com/go-mail/mail"
	"go.uber.org/zap"
)

// TLS modes for SMTPConfig.TLSMode.
const (
	TLSModeStartTLS = "starttls"
	TLSModeSSL      = "ssl"
	TLSModeNone     = "none"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLSMode is starttls (default), ssl or none.
	TLSMode            string
	InsecureSkipVerify bool
}

// SMTPSender implements ardentid.Mailer over SMTP.
type SMTPSender struct {
	cfg       SMTPConfig
	templates Templates
	logger    *zap.Logger
	send      func(*mail.Dialer, *mail.Message) error
}

func NewSMTPSender(cfg SMTPConfig, templates Templates, l *zap.Logger) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp host and port are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	switch cfg.TLSMode {
	case "":
		cfg.TLSMode = TLSModeStartTLS
	case TLSModeStartTLS, TLSModeSSL, TLSModeNone:
	default:
		return nil, fmt.Errorf("unknown smtp tls mode %q", cfg.TLSMode)
	}
	if templates == nil {
		templates = DefaultTemplates()
	}
	if l == nil {
		l = zap.NewNop()
	}

	return &SMTPSender{
		cfg:       cfg,
		templates: templates,
		logger:    l.Named("smtp"),
		send: func(d *mail.Dialer, m *mail.Message) error {
			return d.DialAndSend(m)
		},
	}, nil
}

// Send renders templateKey and delivers it to to. Rendering errors are
// returned before any connection is opened.
func (s *SMTPSender) Send(ctx context.Context, to, templateKey string, placeholders map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := s.logger.With(logger.Email(to), zap.String("template", templateKey))

	rendered, err := s.templates.Render(templateKey, placeholders)
	if err != nil {
		log.Error("render mail", logger.Err(err))
		return err
	}

	m := s.message(to, rendered)
	if err := s.send(s.dialer(), m); err != nil {
		log.Error("smtp send failed", zap.String("host", s.cfg.Host), logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Info("mail sent")
	return nil
}

func (s *SMTPSender) message(to string, rendered Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", rendered.Subject)
	m.SetBody("text/plain", rendered.Body)
	if rendered.HTML != "" {
		m.AddAlternative("text/html", rendered.HTML)
	}
	return m
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}

	switch s.cfg.TLSMode {
	case TLSModeSSL:
		d.SSL = true
	case TLSModeNone:
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}
	return d
}
