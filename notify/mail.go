package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/models"
	templates "github.com/linesmerrill/dispute-case-api/templates/html"
)

// Directory resolves party references to contact details
type Directory interface {
	Lookup(ctx context.Context, refs []string) ([]models.Resident, error)
}

type mailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer emails a notice to every party of the case that has an address on file
type Mailer struct {
	client    mailClient
	directory Directory
	from      *mail.Email
}

// NewMailer returns a Mailer sending through SendGrid with apiKey
func NewMailer(apiKey, from string, directory Directory) *Mailer {
	return &Mailer{
		client:    sendgrid.NewSendClient(apiKey),
		directory: directory,
		from:      mail.NewEmail("Dispute Resolution Office", from),
	}
}

// Name implements Sink
func (m *Mailer) Name() string {
	return "mail"
}

// Send implements Sink
func (m *Mailer) Send(ctx context.Context, e Event) error {
	if len(e.Parties) == 0 {
		return nil
	}
	residents, err := m.directory.Lookup(ctx, e.Parties)
	if err != nil {
		return err
	}

	subject := Subject(e)
	var failed []string
	for _, r := range residents {
		if r.Email == "" {
			continue
		}
		html := templates.RenderCaseNotice(templates.CaseNotice{
			ResidentName: r.Name,
			Subject:      subject,
			CaseNumber:   strconv.FormatInt(e.CaseID, 10),
			CaseTitle:    e.CaseTitle,
			Body:         Body(e),
		})
		msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail(r.Name, r.Email), Body(e), html)

		response, err := m.client.Send(msg)
		if err != nil {
			failed = append(failed, r.ID)
			continue
		}
		if response.StatusCode >= 400 {
			zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "resident", r.ID)
			failed = append(failed, r.ID)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to mail residents %s", strings.Join(failed, ", "))
	}
	return nil
}

// Subject returns the notice subject for an event
func Subject(e Event) string {
	stage := e.Stage
	if stage != "" {
		stage = strings.ToUpper(stage[:1]) + stage[1:]
	}
	switch e.Tag {
	case CaseFiled:
		return "Complaint filed"
	case SessionScheduled:
		return stage + " hearing scheduled"
	case SessionRecorded:
		return stage + " hearing minutes recorded"
	case SessionRescheduled:
		return stage + " hearing rescheduled"
	case RescheduleDeleted:
		return stage + " reschedule cancelled"
	case SessionPurged:
		return stage + " hearing removed"
	case CaseSettled:
		return "Amicable settlement reached"
	case CaseWithdrawn:
		return "Complaint withdrawn"
	case CaseReferred:
		return "Case referred"
	default:
		return "Case update"
	}
}

// Body returns the plain text notice for an event
func Body(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case No. %d", e.CaseID)
	if e.CaseTitle != "" {
		fmt.Fprintf(&b, ": %s", e.CaseTitle)
	}
	b.WriteString("\n")
	if e.Stage != "" {
		fmt.Fprintf(&b, "Stage: %s\n", e.Stage)
	}
	if e.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", e.Date)
	}
	if e.Time != "" {
		fmt.Fprintf(&b, "Time: %s\n", e.Time)
	}
	return strings.TrimRight(b.String(), "\n")
}
