package notifications

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"

	"podd/internal/config"
	"podd/internal/podcast"
	"podd/internal/services"
)

// sesAPI is the part of *ses.SES the report sender uses.
type sesAPI interface {
	SendEmailWithContext(ctx aws.Context, input *ses.SendEmailInput, opts ...request.Option) (*ses.SendEmailOutput, error)
}

type sesService struct {
	client    sesAPI
	sender    string
	recipient string
	subject   string
}

func newSESService(n config.Notifications, subject string, timeout time.Duration) (*sesService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:     aws.String(n.SESRegion),
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageNotify, "create aws session", "", err)
	}
	return &sesService{client: ses.New(sess), sender: n.Sender, recipient: n.Recipient, subject: subject}, nil
}

func (s *sesService) NotifyReport(ctx context.Context, results []podcast.PodcastResult) error {
	if len(results) == 0 {
		return nil
	}
	digest, err := Render(s.subject, results)
	if err != nil {
		return services.Wrap(services.ErrNotification, stageNotify, "render report", "", err)
	}
	return s.send(ctx, digest)
}

func (s *sesService) TestNotification(ctx context.Context) error {
	return s.send(ctx, testDigest(s.subject))
}

func (s *sesService) send(ctx context.Context, digest Digest) error {
	input := &ses.SendEmailInput{
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(s.recipient)}},
		Message: &ses.Message{
			Subject: &ses.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(digest.Subject),
			},
			Body: &ses.Body{
				Html: &ses.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(digest.HTML),
				},
				Text: &ses.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(digest.Text),
				},
			},
		},
		Source: aws.String(s.sender),
	}
	if _, err := s.client.SendEmailWithContext(ctx, input); err != nil {
		return services.Wrap(services.ErrNotification, stageNotify, "send ses report", "", err)
	}
	return nil
}
