package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectureship/backend/internal/models"
)

var testConf = Conference{
	Name:           "CHURCHES OF CHRIST NATIONAL LECTURESHIP",
	OrganizerEmail: "organizer@example.org",
	ContactPhone:   "(800) 609-6211",
}

func sampleRegistration() *models.Registration {
	return &models.Registration{
		ID:               "reg_1730646245000_abc123def",
		Timestamp:        time.Date(2025, 11, 3, 15, 4, 5, 0, time.UTC),
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Email:            "ada@example.com",
		RegistrationType: models.RegistrationIndividualEarly,
		Quantity:         1,
		SpecialEvents:    []string{models.EventMemorialBanquet},
		Advertisements:   []string{},
		DayToDayDates:    []string{},
		TotalAmount:      265,
		PaymentStatus:    models.PaymentStatusPending,
	}
}

func TestRenderer_Confirmation(t *testing.T) {
	r, err := NewRenderer(testConf)
	require.NoError(t, err)

	msg, err := r.Render(models.EmailTypeConfirmation, sampleRegistration())
	require.NoError(t, err)

	assert.Equal(t, []string{"ada@example.com"}, msg.To)
	assert.Equal(t, "organizer@example.org", msg.ReplyTo)
	assert.Equal(t, "CHURCHES OF CHRIST NATIONAL LECTURESHIP Registration Confirmation - reg_1730646245000_abc123def", msg.Subject)
	assert.Contains(t, msg.Text, "Dear Ada,")
	assert.Contains(t, msg.Text, "$265")
	assert.Contains(t, msg.Text, "Memorial Banquet")
	assert.Contains(t, msg.Text, "https://square.link/u/ieidynuy")
	assert.Contains(t, msg.Text, "(800) 609-6211")
	assert.Contains(t, msg.HTML, "reg_1730646245000_abc123def")
}

func TestRenderer_EscapesHTML(t *testing.T) {
	r, err := NewRenderer(testConf)
	require.NoError(t, err)
	reg := sampleRegistration()
	reg.FirstName = "<script>x</script>"

	msg, err := r.Confirmation(reg)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestRenderer_Notification(t *testing.T) {
	r, err := NewRenderer(testConf)
	require.NoError(t, err)

	msg, err := r.Render(models.EmailTypeNotification, sampleRegistration())
	require.NoError(t, err)

	assert.Equal(t, []string{"organizer@example.org"}, msg.To)
	assert.Equal(t, "ada@example.com", msg.ReplyTo)
	assert.True(t, strings.HasPrefix(msg.Subject, "New Lectureship Registration - Ada Lovelace"))
	assert.Contains(t, msg.Text, "reg_1730646245000_abc123def")
	assert.Empty(t, msg.HTML)
}

func TestRenderer_UnknownType(t *testing.T) {
	r, err := NewRenderer(testConf)
	require.NoError(t, err)
	_, err = r.Render("newsletter", sampleRegistration())
	assert.Error(t, err)
}

func TestResendMailer_Send(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_42"}`))
	}))
	defer srv.Close()

	m := NewResendMailer("re_test", "Lectureship <noreply@example.org>", srv.URL+"/")
	id, err := m.Send(context.Background(), Message{To: []string{"ada@example.com"}, ReplyTo: "organizer@example.org", Subject: "Hi", Text: "body"})
	require.NoError(t, err)

	assert.Equal(t, "msg_42", id)
	assert.Equal(t, "Lectureship <noreply@example.org>", got.From)
	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, []string{"organizer@example.org"}, got.ReplyTo)
	assert.Equal(t, "body", got.Text)
}

func TestResendMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"invalid from"}`))
	}))
	defer srv.Close()

	_, err := NewResendMailer("re_test", "bad", srv.URL).Send(context.Background(), Message{To: []string{"a@b.c"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from")
}

func TestSMTPMailer_Multipart(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.org", Port: 587, Username: "u", Password: "p", From: "noreply@example.org"})
	var addr string
	var raw []byte
	m.send = func(a string, _ smtp.Auth, from string, to []string, msg []byte) error {
		addr, raw = a, msg
		assert.Equal(t, "noreply@example.org", from)
		assert.Equal(t, []string{"ada@example.com"}, to)
		return nil
	}

	id, err := m.Send(context.Background(), Message{To: []string{"ada@example.com"}, Subject: "Hi", Text: "plain", HTML: "<p>html</p>"})
	require.NoError(t, err)

	assert.NotEmpty(t, id)
	assert.Equal(t, "smtp.example.org:587", addr)
	body := string(raw)
	assert.Contains(t, body, "Subject: Hi\r\n")
	assert.Contains(t, body, "multipart/alternative; boundary=")
	assert.Contains(t, body, "plain")
	assert.Contains(t, body, "<p>html</p>")
}

type fakeMailer struct {
	sent []Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg_1", nil
}

type memLogs struct{ rows []*models.EmailLog }

func (m *memLogs) Create(_ context.Context, el *models.EmailLog) error {
	m.rows = append(m.rows, el)
	return nil
}

type outcomeCounter map[string]int

func (o outcomeCounter) EmailSent(emailType, status string) { o[emailType+"/"+status]++ }

func TestSender_Deliver(t *testing.T) {
	r, err := NewRenderer(testConf)
	require.NoError(t, err)
	mailer, logs, outcomes := &fakeMailer{}, &memLogs{}, outcomeCounter{}
	s := NewSender(r, mailer, logs, outcomes, nil)

	require.NoError(t, s.Deliver(context.Background(), models.EmailTypeConfirmation, sampleRegistration(), 1))

	require.Len(t, mailer.sent, 1)
	require.Len(t, logs.rows, 1)
	row := logs.rows[0]
	assert.Equal(t, models.EmailLogStatusSent, row.Status)
	assert.Equal(t, "msg_1", row.ProviderID)
	assert.Equal(t, 1, row.Attempt)
	assert.NotNil(t, row.SentAt)
	assert.Equal(t, 1, outcomes[models.EmailTypeConfirmation+"/sent"])
}

func TestSender_DeliverFailure(t *testing.T) {
	r, err := NewRenderer(testConf)
	require.NoError(t, err)
	logs, outcomes := &memLogs{}, outcomeCounter{}
	s := NewSender(r, &fakeMailer{err: errors.New("smtp down")}, logs, outcomes, nil)

	err = s.Deliver(context.Background(), models.EmailTypeNotification, sampleRegistration(), 2)
	require.Error(t, err)

	require.Len(t, logs.rows, 1)
	assert.Equal(t, models.EmailLogStatusFailed, logs.rows[0].Status)
	assert.Equal(t, "smtp down", logs.rows[0].ErrorMessage)
	assert.Nil(t, logs.rows[0].SentAt)
	assert.Equal(t, 1, outcomes[models.EmailTypeNotification+"/failed"])
}

func TestSender_SkipsMissingRecipient(t *testing.T) {
	r, err := NewRenderer(testConf)
	require.NoError(t, err)
	mailer, logs := &fakeMailer{}, &memLogs{}
	reg := sampleRegistration()
	reg.Email = ""

	require.NoError(t, NewSender(r, mailer, logs, nil, nil).Deliver(context.Background(), models.EmailTypeConfirmation, reg, 1))
	assert.Empty(t, mailer.sent)
	assert.Empty(t, logs.rows)
}
