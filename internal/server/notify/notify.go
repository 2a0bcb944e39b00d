// Package notify delivers account emails: verification links, password
// reset links and temporary passwords.
package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Templates renders account emails with links pointing at baseURL.
type Templates struct {
	baseURL string
}

func NewTemplates(baseURL string) Templates {
	return Templates{baseURL: strings.TrimRight(baseURL, "/")}
}

func (t Templates) Verification(to, name, token string) Message {
	link := t.baseURL + "/auth/verify-email?token=" + url.QueryEscape(token)
	return Message{
		To:      to,
		Subject: "Confirm your email address",
		Body: fmt.Sprintf("Hello %s,\n\nplease confirm your email address by opening the link below:\n\n%s\n",
			greeting(name), link),
	}
}

func (t Templates) PasswordReset(to, name, token string, expires time.Time) Message {
	link := t.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hello %s,\n\nuse the link below to choose a new password. It is valid until %s.\n\n%s\n\n"+
			"If you did not ask for a reset you can ignore this email.\n",
			greeting(name), expires.UTC().Format(time.RFC1123), link),
	}
}

func (t Templates) TemporaryPassword(to, name, password string) Message {
	return Message{
		To:      to,
		Subject: "Your new account",
		Body: fmt.Sprintf("Hello %s,\n\nan account was created for you. Sign in at %s with the temporary password\n\n%s\n\n"+
			"and change it right away.\n",
			greeting(name), t.baseURL, password),
	}
}

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
