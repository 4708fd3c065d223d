package followup

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shaiso/followup/internal/domain"
)

// Message — письмо для Notifier.
type Message struct {
	Subject string
	Body    string
}

const (
	followUpSubject = "Pool Service Follow-up"
	welcomeSubject  = "Welcome to Pool Service"
)

var followUpTmpl = template.Must(template.New("followup").Parse(`
<h1>Hello!</h1>
<p>Thank you for your interest in our pool services.</p>
<p>Would you like to schedule a consultation?</p>
<p>Best regards,<br>Pool Service Team</p>
<p style="font-size:small;color:#888">Sent to {{.Email}}</p>
`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<h1>Welcome!</h1>
<p>Thank you for your interest in our pool services.</p>
<p>We'll be in touch with more information soon.</p>
<p style="font-size:small;color:#888">Sent to {{.Email}}</p>
`))

// FollowUpMessage рендерит периодическое follow-up письмо.
func FollowUpMessage(lead *domain.Lead) (Message, error) {
	return render(followUpTmpl, followUpSubject, lead)
}

// WelcomeMessage рендерит приветственное письмо для test-trigger.
func WelcomeMessage(lead *domain.Lead) (Message, error) {
	return render(welcomeTmpl, welcomeSubject, lead)
}

func render(t *template.Template, subject string, lead *domain.Lead) (Message, error) {
	var body bytes.Buffer
	if err := t.Execute(&body, lead); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return Message{Subject: subject, Body: body.String()}, nil
}
