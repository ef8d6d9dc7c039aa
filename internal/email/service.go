// Package email sends complaint notices to citizens over SMTP.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

func (c Config) IsConfigured() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

type sender interface {
	DialAndSend(m ...*mail.Message) error
}

type Service struct {
	config Config
	dialer sender
	logger *zap.Logger
}

func NewService(config Config, logger *zap.Logger) *Service {
	s := &Service{config: config, logger: logger.Named("email")}
	if config.IsConfigured() {
		s.dialer = mail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	}
	return s
}

func (s *Service) IsConfigured() bool {
	return s.config.IsConfigured() && s.dialer != nil
}

// StatusChange describes one lifecycle move, addressed to the complaint owner.
type StatusChange struct {
	To       string
	UserName string
	Folio    string
	Title    string
	From     string
	Status   string
	Rating   *int
}

// SendStatusChanged emails the owner that their complaint moved. It is a
// no-op returning ErrNotConfigured when SMTP is not set up.
func (s *Service) SendStatusChanged(ctx context.Context, change StatusChange) (err error) {
	_, span := otel.Tracer("email").Start(ctx, "SendStatusChanged",
		trace.WithAttributes(
			attribute.String("complaint.folio", change.Folio),
			attribute.String("complaint.status", change.Status),
		),
	)
	defer func() {
		if err != nil && !errors.Is(err, ErrNotConfigured) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if change.To == "" {
		return errors.New("missing recipient")
	}

	subject, body, err := renderStatusChanged(change)
	if err != nil {
		return fmt.Errorf("render status email: %w", err)
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", s.config.From, s.config.FromName)
	m.SetHeader("To", change.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("send status email failed", zap.String("folio", change.Folio), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}
	s.logger.Info("status email sent", zap.String("folio", change.Folio), zap.String("status", change.Status))
	return nil
}

var statusLabels = map[string]string{
	"received":    "Recibida",
	"in_progress": "En progreso",
	"resolved":    "Resuelta",
	"rejected":    "Rechazada",
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

type statusChangedView struct {
	UserName  string
	Folio     string
	Title     string
	FromLabel string
	ToLabel   string
	Rating    *int
}

var statusChangedTmpl = template.Must(template.New("status_changed").Parse(statusChangedTemplate))

func renderStatusChanged(change StatusChange) (string, string, error) {
	view := statusChangedView{
		UserName:  change.UserName,
		Folio:     change.Folio,
		Title:     change.Title,
		FromLabel: statusLabel(change.From),
		ToLabel:   statusLabel(change.Status),
		Rating:    change.Rating,
	}
	var buf bytes.Buffer
	if err := statusChangedTmpl.Execute(&buf, view); err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("Denuncia %s: %s", change.Folio, view.ToLabel)
	return subject, buf.String(), nil
}

const statusChangedTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Denuncia {{.Folio}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .status { display: inline-block; padding: 6px 12px; background: #eef4fb; border-radius: 4px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Denuncias Ciudadanas</h1>
    </div>

    <p>Hola {{.UserName}},</p>

    <p>Tu denuncia <strong>{{.Folio}}</strong> ({{.Title}}) cambió de estado.</p>

    <p><span class="status">{{.FromLabel}}</span> &rarr; <span class="status">{{.ToLabel}}</span></p>
    {{if .Rating}}
    <p>Calificación registrada: {{.Rating}} / 5</p>
    {{end}}

    <div class="footer">
        <p>Puedes revisar el detalle y los comentarios de la autoridad en la plataforma.</p>
    </div>
</body>
</html>`
