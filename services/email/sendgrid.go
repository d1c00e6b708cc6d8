package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/darasa/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
	maxSendAttempts  = 3
)

const retryDelay = time.Second

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	category   string
	sandbox    bool
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService sends emails through the SendGrid v3 API.
// In test mode messages are accepted by SendGrid's sandbox and never delivered.
func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		category:   strings.ToLower(conf.AppName),
		sandbox:    conf.TestMode,
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				svc.send(*msg)
			}
		}()
	}
}

func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(toSGEmails(msg.To)...)
	p.AddCCs(toSGEmails(msg.Cc)...)
	p.AddBCCs(toSGEmails(msg.Bcc)...)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	// one category per template
	m.AddCategories(svc.category)
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}
	if svc.sandbox {
		settings := sgmail.NewMailSettings()
		settings.SetSandboxMode(sgmail.NewSetting(true))
		m.SetMailSettings(settings)
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func toSGEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, sgmail.NewEmail(addr.Name, addr.Address))
	}
	return emails
}

// retryable reports whether SendGrid asked us to try again later.
func retryable(res *rest.Response) bool {
	return res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError
}

func (svc sendgridService) send(msg core.EmailMessage) {
	body := sgmail.GetRequestBody(svc.prepare(msg))

	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
		req.Method = http.MethodPost
		req.Body = body

		res, err := sendgrid.API(req)
		switch {
		case err != nil:
			svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
			return
		case res.StatusCode < http.StatusBadRequest:
			return
		case retryable(res) && attempt < maxSendAttempts:
			time.Sleep(time.Duration(attempt) * retryDelay)
		default:
			svc.logger.Error(
				fmt.Sprintf("sending email %q - status: %d", msg.Subject, res.StatusCode),
				map[string]interface{}{"body": res.Body, "attempts": attempt},
			)
			return
		}
	}
}
