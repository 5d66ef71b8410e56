package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/steamwatch/internal/presence"
)

// ///////////////////////////////////////////////
// Mail Sink
// ///////////////////////////////////////////////

// Mail is one outgoing message.
type Mail struct {
	From    string
	To      string
	Subject string
	Body    string
	Date    time.Time
}

// Mailer sends mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// MailSink turns events into mails according to the per-tick [Settings].
type MailSink struct {
	mailer Mailer
	from   string
	to     string
	log    *slog.Logger
}

// NewMailSink creates a MailSink. log defaults to [slog.Default].
func NewMailSink(mailer Mailer, from, to string, log *slog.Logger) *MailSink {
	if log == nil {
		log = slog.Default()
	}
	return &MailSink{mailer: mailer, from: from, to: to, log: log}
}

// Name implements [Sink].
func (*MailSink) Name() string { return "mail" }

// Deliver implements [Sink]. Every selected message is attempted; the
// returned error joins the individual failures.
func (s *MailSink) Deliver(ctx context.Context, b Batch) error {
	msgs := Select(b)
	var errs []error
	for _, m := range msgs {
		s.log.Info("sending email notification", "to", s.to, "subject", m.Subject)
		err := s.mailer.Send(ctx, Mail{From: s.from, To: s.to, Subject: m.Subject, Body: m.Body, Date: b.At})
		if err != nil {
			errs = append(errs, fmt.Errorf("sending %q: %w", m.Subject, err))
		}
	}
	return errors.Join(errs...)
}

// Select returns the messages b warrants under b.Settings.
//
//   - Status changes mail when StatusChanges is on, or when ActiveInactive is
//     on and the change starts or ends an online session.
//   - Activity changes mail when ActivityChanges is on and the activity is
//     not ignored.
//   - Authorization failures mail when Errors is on.
func Select(b Batch) []Message {
	var out []Message
	set := b.Settings

	if f := b.Failure; f != nil && f.Auth && set.Errors {
		out = append(out, FailureMessage(b.Account, *f, b.At))
	}

	for _, ev := range b.Events {
		switch e := ev.(type) {
		case presence.StatusChanged:
			if set.StatusChanges || (set.ActiveInactive && (e.WentActive() || e.WentOffline())) {
				out = append(out, StatusMessage(b.Account, e))
			}
		case presence.ActivityChanged:
			if set.ActivityChanges && !ignored(set.IgnoreActivities, e) {
				out = append(out, ActivityMessage(b.Account, e))
			}
		}
	}
	return out
}

// ignored reports whether every activity named in e matches an ignore
// pattern. A switch between an ignored and a watched game still mails.
func ignored(patterns []string, e presence.ActivityChanged) bool {
	if len(patterns) == 0 {
		return false
	}
	var names []string
	if e.Kind != presence.ActivityStarted {
		names = append(names, e.OldName)
	}
	if e.Kind != presence.ActivityStopped {
		names = append(names, e.NewName)
	}
	for _, n := range names {
		if !MatchesAny(patterns, n) {
			return false
		}
	}
	return true
}

// MatchesAny reports whether name matches one of the glob patterns,
// ignoring case. Invalid patterns never match.
func MatchesAny(patterns []string, name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, err := doublestar.Match(strings.ToLower(p), lower); err == nil && ok {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// SMTP Mailer
// ///////////////////////////////////////////////

// SMTP security modes.
const (
	SecurityStartTLS = "starttls"
	SecurityTLS      = "tls"
	SecurityNone     = "none"
)

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	User     string
	Password string
	// Security is one of the Security* constants; empty means STARTTLS.
	Security string
	// Timeout bounds the whole exchange when ctx has no deadline.
	Timeout time.Duration
}

// Send implements [Mailer].
func (m *SMTPMailer) Send(ctx context.Context, msg Mail) error {
	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tlsConf := &tls.Config{ServerName: m.Host, MinVersion: tls.VersionTLS12}
	var conn net.Conn
	var err error
	if m.Security == SecurityTLS {
		d := &tls.Dialer{Config: tlsConf}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if m.Security == "" || m.Security == SecurityStartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return errors.New("smtp server does not support STARTTLS")
		}
		if err := c.StartTLS(tlsConf); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.User != "" {
		if err := c.Auth(smtp.PlainAuth("", m.User, m.Password, m.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(BuildMessage(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	return c.Quit()
}

// BuildMessage renders msg as an RFC 5322 plain-text message with CRLF line
// endings.
func BuildMessage(msg Mail) []byte {
	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}
	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}
	header("From", msg.From)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	buf.WriteString("\r\n")
	return buf.Bytes()
}
