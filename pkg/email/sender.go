package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"path/filepath"
)

// TemplatesDir is where GenerateBodyFromHTML looks for templates.
var TemplatesDir = "./templates"

type SendEmailInput struct {
	To      []string
	Subject string
	Body    string
}

type Sender interface {
	Send(input SendEmailInput) error
}

func (e *SendEmailInput) GenerateBodyFromHTML(templateFileName string, data interface{}) error {
	t, err := template.ParseFiles(filepath.Join(TemplatesDir, templateFileName))
	if err != nil {
		return fmt.Errorf("parse file failed: %w", err)
	}

	buf := new(bytes.Buffer)
	if err = t.Execute(buf, data); err != nil {
		return fmt.Errorf("email data injection failed: %w", err)
	}

	e.Body = buf.String()

	return nil
}

func (e *SendEmailInput) Validate() error {
	if len(e.To) == 0 {
		return errors.New("empty to")
	}

	if e.Subject == "" || e.Body == "" {
		return errors.New("empty subject/body")
	}

	for _, to := range e.To {
		if !IsEmailValid(to) {
			return fmt.Errorf("invalid to email %q", to)
		}
	}

	return nil
}

func IsEmailValid(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
