package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"podd/internal/config"
	"podd/internal/podcast"
	"podd/internal/services"
	"podd/internal/version"
)

type smtpService struct {
	client    *mail.Client
	sender    string
	recipient string
	subject   string
}

func newSMTPService(n config.Notifications, subject string, timeout time.Duration) (*smtpService, error) {
	username := strings.TrimSpace(n.SMTPUsername)
	if username == "" {
		username = n.Sender
	}
	opts := []mail.Option{
		mail.WithPort(n.SMTPPort),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if n.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if n.SMTPPassword != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(n.SMTPPassword),
		)
	}
	client, err := mail.NewClient(n.SMTPHost, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageNotify, "build smtp client", "", err)
	}
	return &smtpService{client: client, sender: n.Sender, recipient: n.Recipient, subject: subject}, nil
}

func (s *smtpService) NotifyReport(ctx context.Context, results []podcast.PodcastResult) error {
	if len(results) == 0 {
		return nil
	}
	digest, err := Render(s.subject, results)
	if err != nil {
		return services.Wrap(services.ErrNotification, stageNotify, "render report", "", err)
	}
	return s.send(ctx, digest)
}

func (s *smtpService) TestNotification(ctx context.Context) error {
	return s.send(ctx, testDigest(s.subject))
}

func (s *smtpService) send(ctx context.Context, digest Digest) error {
	msg, err := newMessage(s.sender, s.recipient, digest)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageNotify, "build message", "", err)
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return services.Wrap(services.ErrNotification, stageNotify, "send smtp report", "", err)
	}
	return nil
}

// newMessage builds a multipart/alternative message with the plain-text part
// first and the HTML part as the preferred alternative.
func newMessage(sender, recipient string, digest Digest) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(sender); err != nil {
		return nil, err
	}
	if err := msg.To(recipient); err != nil {
		return nil, err
	}
	msg.Subject(digest.Subject)
	msg.SetUserAgent(version.UserAgent())
	msg.SetBodyString(mail.TypeTextPlain, digest.Text)
	if digest.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, digest.HTML)
	}
	return msg, nil
}

func testDigest(subject string) Digest {
	text := "This is a test message from " + version.UserAgent() + ".\n"
	return Digest{
		Subject: subject + " (test)",
		Text:    text,
		HTML:    "<p>" + text + "</p>",
	}
}
