// Package notify renders and sends the attendee confirmation and organizer
// notification emails for a registration.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/pricing"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Conference carries the organizer details shown in every email.
type Conference struct {
	Name           string
	OrganizerEmail string
	ContactPhone   string
}

// Message is one rendered email.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Renderer turns registrations into messages.
type Renderer struct {
	conf Conference
	text *template.Template
	html *htmltemplate.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer(conf Conference) (*Renderer, error) {
	text, err := template.ParseFS(templatesFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Renderer{conf: conf, text: text, html: html}, nil
}

type view struct {
	Conference       Conference
	Reg              *models.Registration
	TypeLabel        string
	Timestamp        string
	Source           string
	Address          string
	PaymentMethod    string
	AttendeeNames    string
	AttendeeContacts string
	Vendor           string
	Ads              string
	Events           string
	Days             string
	Notes            string
	LineItems        []pricing.LineItem
}

func (r *Renderer) view(reg *models.Registration) view {
	v := view{
		Conference:       r.conf,
		Reg:              reg,
		TypeLabel:        "Special Events Only",
		Timestamp:        reg.Timestamp.UTC().Format("January 2, 2006 3:04 PM MST"),
		Source:           orDefault(reg.Source, "web"),
		Address:          "N/A",
		PaymentMethod:    orDefault(reg.PaymentMethod, "Not specified"),
		AttendeeNames:    orDefault(reg.AttendeeNames, "N/A"),
		AttendeeContacts: orDefault(reg.AttendeeContacts, "N/A"),
		Vendor:           "None",
		Ads:              labels(reg.Advertisements),
		Events:           labels(reg.SpecialEvents),
		Days:             strings.Join(labelList(reg.DayToDayDates), ", "),
		Notes:            orDefault(reg.AdditionalNotes, "None"),
		LineItems:        pricing.LineItems(pricing.SelectionOf(reg)),
	}
	if reg.RegistrationType != models.RegistrationNone {
		v.TypeLabel = pricing.Label(string(reg.RegistrationType))
	}
	if reg.Address != "" || reg.City != "" || reg.State != "" || reg.ZipCode != "" {
		v.Address = reg.MailingAddress()
	}
	if reg.VendorTables > 0 {
		v.Vendor = fmt.Sprintf("%d table(s) - $%d", reg.VendorTables, pricing.VendorTablePrice(reg.VendorTables))
	}
	return v
}

// Render produces the message of the given email type for reg.
func (r *Renderer) Render(emailType string, reg *models.Registration) (Message, error) {
	switch emailType {
	case models.EmailTypeConfirmation:
		return r.Confirmation(reg)
	case models.EmailTypeNotification:
		return r.Notification(reg)
	}
	return Message{}, fmt.Errorf("unknown email type %q", emailType)
}

// Confirmation renders the attendee's confirmation, with payment links.
func (r *Renderer) Confirmation(reg *models.Registration) (Message, error) {
	v := r.view(reg)
	var text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, "confirmation.txt.tmpl", v); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	if err := r.html.ExecuteTemplate(&html, "confirmation.html.tmpl", v); err != nil {
		return Message{}, fmt.Errorf("render confirmation html: %w", err)
	}
	return Message{
		To:      []string{reg.Email},
		ReplyTo: r.conf.OrganizerEmail,
		Subject: fmt.Sprintf("%s Registration Confirmation - %s", r.conf.Name, reg.ID),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// Notification renders the organizer's copy of a new registration.
func (r *Renderer) Notification(reg *models.Registration) (Message, error) {
	var text bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, "notification.txt.tmpl", r.view(reg)); err != nil {
		return Message{}, fmt.Errorf("render notification: %w", err)
	}
	return Message{
		To:      []string{r.conf.OrganizerEmail},
		ReplyTo: reg.Email,
		Subject: "New Lectureship Registration - " + reg.FullName(),
		Text:    text.String(),
	}, nil
}

func labels(ids []string) string {
	if len(ids) == 0 {
		return "None"
	}
	return strings.Join(labelList(ids), ", ")
}

func labelList(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = pricing.Label(id)
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
