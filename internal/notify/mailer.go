package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mailer delivers a rendered message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// DefaultResendURL is the Resend API base URL.
const DefaultResendURL = "https://api.resend.com"

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewResendMailer creates a Resend mailer. baseURL may be empty for the public API.
func NewResendMailer(apiKey, from, baseURL string) *ResendMailer {
	if baseURL == "" {
		baseURL = DefaultResendURL
	}
	return &ResendMailer{
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo []string `json:"reply_to,omitempty"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

// Send posts msg to /emails.
func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	body := resendRequest{From: m.from, To: msg.To, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text}
	if msg.ReplyTo != "" {
		body.ReplyTo = []string{msg.ReplyTo}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal resend request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out resendResponse
	_ = json.Unmarshal(data, &out)
	if resp.StatusCode/100 != 2 {
		if out.Message != "" {
			return "", fmt.Errorf("resend status %d: %s", resp.StatusCode, out.Message)
		}
		return "", fmt.Errorf("resend status %d", resp.StatusCode)
	}
	if out.ID == "" {
		return "", errors.New("resend: response without id")
	}
	return out.ID, nil
}

// SMTPConfig configures an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send writes msg as a MIME message, multipart/alternative when it has an HTML part.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	raw, err := buildMIME(m.cfg.From, id, m.cfg.Host, msg)
	if err != nil {
		return "", err
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, msg.To, raw); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return id, nil
}

func buildMIME(from, id, host string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", strings.Join(msg.To, ", "))
	if msg.ReplyTo != "" {
		header("Reply-To", msg.ReplyTo)
	}
	header("Subject", msg.Subject)
	header("Message-ID", fmt.Sprintf("<%s@%s>", id, host))
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if msg.HTML == "" {
		header("Content-Type", "text/plain; charset=UTF-8")
		buf.WriteString("\r\n")
		buf.WriteString(msg.Text)
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")
	for _, part := range []struct{ ctype, content string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, fmt.Errorf("mime part: %w", err)
		}
		if _, err := io.WriteString(w, part.content); err != nil {
			return nil, fmt.Errorf("mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("mime close: %w", err)
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// LogMailer only logs messages. Used in development and when no provider is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs msg and returns a synthetic id.
func (m *LogMailer) Send(_ context.Context, msg Message) (string, error) {
	id := "log-" + uuid.NewString()
	m.logger.Info("email (log only)",
		zap.String("message_id", id),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("text_bytes", len(msg.Text)),
	)
	return id, nil
}
