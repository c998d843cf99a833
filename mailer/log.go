package mailer

import (
	"context"

	"github.com/MrEthical07/ardentid/internal/logger"
	"go.uber.org/zap"
)

// LogMailer renders messages and writes them to a logger instead of sending
// them. The body, including the code, is logged at info level; use it only
// where that is acceptable.
type LogMailer struct {
	templates Templates
	logger    *zap.Logger
}

func NewLogMailer(templates Templates, l *zap.Logger) *LogMailer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &LogMailer{templates: templates, logger: l.Named("mail")}
}

func (m *LogMailer) Send(ctx context.Context, to, templateKey string, placeholders map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rendered, err := m.templates.Render(templateKey, placeholders)
	if err != nil {
		return err
	}

	m.logger.Info("mail",
		logger.Email(to),
		zap.String("template", templateKey),
		zap.String("subject", rendered.Subject),
		zap.String("body", rendered.Body),
	)
	return nil
}
