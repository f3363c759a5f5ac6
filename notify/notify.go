// Package notify dispatches booking inquiry and confirmation messages. The
// Notifier interface keeps the booking state machine independent of the
// delivery channel; the concrete implementation sends transactional email
// through the Resend API.
package notify

import (
	"context"
	"fmt"

	"github.com/resendlabs/resend-go"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/logging"
)

// Inquiry is one finalized booking handed to the notification channel.
type Inquiry struct {
	Reference  string
	Name       string
	Email      string
	Phone      string
	Restaurant string
	PartySize  string
	Time       string
	Notes      string
	Language   core.Language
}

// Notifier is the notification collaborator. Both sends report success as a
// bool so the caller can summarize delivery without treating a failure as a
// turn error.
type Notifier interface {
	SendInquiry(ctx context.Context, inq Inquiry) bool
	SendConfirmation(ctx context.Context, inq Inquiry) bool
	IsConfigured() bool
}

// Mailer delivers inquiries over email via Resend.
type Mailer struct {
	client       *resend.Client
	from         string
	inquiryEmail string
	logger       logging.Logger
}

// MailerOptions configure a Mailer.
type MailerOptions struct {
	// From is the sender address, "Name <addr>" form accepted.
	From string
	// InquiryEmail receives the internal booking inquiry copy.
	InquiryEmail string
	Logger       logging.Logger
}

// NewMailer constructs a Mailer. An empty apiKey yields an unconfigured
// mailer whose sends report false.
func NewMailer(apiKey string, optFns ...func(o *MailerOptions)) *Mailer {
	opts := MailerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	m := &Mailer{from: opts.From, inquiryEmail: opts.InquiryEmail, logger: opts.Logger}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}
	return m
}

// IsConfigured reports whether emails can actually be sent.
func (m *Mailer) IsConfigured() bool {
	return m.client != nil && m.from != ""
}

// SendInquiry emails the internal reservations inbox with the full record.
func (m *Mailer) SendInquiry(_ context.Context, inq Inquiry) bool {
	if !m.IsConfigured() || m.inquiryEmail == "" {
		return false
	}
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{m.inquiryEmail},
		Subject: fmt.Sprintf("Reservation inquiry %s - %s", inq.Reference, inq.Restaurant),
		Html:    inquiryHTML(inq),
	}
	if _, err := m.client.Emails.Send(params); err != nil {
		m.logger.Warn("inquiry email failed", "reference", inq.Reference, "error", err)
		return false
	}
	return true
}

// SendConfirmation emails the guest a localized confirmation.
func (m *Mailer) SendConfirmation(_ context.Context, inq Inquiry) bool {
	if !m.IsConfigured() || inq.Email == "" {
		return false
	}
	subject := "Your reservation request " + inq.Reference
	if inq.Language == core.LanguageVietnamese {
		subject = "Yêu cầu đặt chỗ của bạn " + inq.Reference
	}
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{inq.Email},
		Subject: subject,
		Html:    confirmationHTML(inq),
	}
	if _, err := m.client.Emails.Send(params); err != nil {
		m.logger.Warn("confirmation email failed", "reference", inq.Reference, "error", err)
		return false
	}
	return true
}

func inquiryHTML(inq Inquiry) string {
	return fmt.Sprintf(
		`<h2>New reservation inquiry</h2>
<p>Reference: <strong>%s</strong></p>
<ul>
<li>Guest: %s</li>
<li>Email: %s</li>
<li>Phone: %s</li>
<li>Restaurant: %s</li>
<li>Party size: %s</li>
<li>Time: %s</li>
<li>Notes: %s</li>
</ul>`,
		inq.Reference, inq.Name, inq.Email, inq.Phone, inq.Restaurant, inq.PartySize, inq.Time, inq.Notes)
}

func confirmationHTML(inq Inquiry) string {
	if inq.Language == core.LanguageVietnamese {
		return fmt.Sprintf(
			`<p>Xin chào %s,</p>
<p>Chúng tôi đã ghi nhận yêu cầu đặt chỗ của bạn tại <strong>%s</strong> (%s người, %s).</p>
<p>Mã tham chiếu: <strong>%s</strong></p>
<p>Nhà hàng sẽ liên hệ xác nhận trong thời gian sớm nhất.</p>`,
			inq.Name, inq.Restaurant, inq.PartySize, inq.Time, inq.Reference)
	}
	return fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We have recorded your reservation request at <strong>%s</strong> (%s guests, %s).</p>
<p>Reference: <strong>%s</strong></p>
<p>The restaurant will be in touch to confirm shortly.</p>`,
		inq.Name, inq.Restaurant, inq.PartySize, inq.Time, inq.Reference)
}

// Recorder is a test double capturing every send in memory.
type Recorder struct {
	Inquiries     []Inquiry
	Confirmations []Inquiry
	Configured    bool
	FailSends     bool
}

// SendInquiry implements Notifier.
func (r *Recorder) SendInquiry(_ context.Context, inq Inquiry) bool {
	r.Inquiries = append(r.Inquiries, inq)
	return r.Configured && !r.FailSends
}

// SendConfirmation implements Notifier.
func (r *Recorder) SendConfirmation(_ context.Context, inq Inquiry) bool {
	r.Confirmations = append(r.Confirmations, inq)
	return r.Configured && !r.FailSends
}

// IsConfigured implements Notifier.
func (r *Recorder) IsConfigured() bool { return r.Configured }
