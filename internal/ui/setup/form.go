// Package setup collects the mailbox and database secrets interactively
// and stores them in the keyring.
package setup

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/opencart-qa/internal/credential"
	"github.com/nhle/opencart-qa/internal/model"
)

// Keyring entries written by Apply.
const (
	MailPasswordKey  = "mail-app-password"
	MySQLPasswordKey = "mysql-password"
)

// Values holds the answers of the setup form.
type Values struct {
	MailEmail     string
	MailPassword  string
	MySQLPassword string
}

// ValuesFromConfig prefills the form with the non-secret parts of cfg.
func ValuesFromConfig(cfg *model.AppConfig) Values {
	return Values{MailEmail: cfg.Mail.Email}
}

// NewForm builds the credentials form bound to v.
func NewForm(v *Values) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mailbox address").
				Description("Account that receives registration and reset emails").
				Value(&v.MailEmail).
				Validate(validateEmail),
			huh.NewInput().
				Title("Mailbox app password").
				EchoMode(huh.EchoModePassword).
				Value(&v.MailPassword).
				Validate(validateRequired("app password")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("MySQL password").
				Description("Leave empty to keep the current value").
				EchoMode(huh.EchoModePassword).
				Value(&v.MySQLPassword),
		),
	)
}

// Run shows the form and applies the answers to cfg.
func Run(ctx context.Context, secrets *credential.Store, cfg *model.AppConfig) error {
	v := ValuesFromConfig(cfg)
	if err := NewForm(&v).RunWithContext(ctx); err != nil {
		return fmt.Errorf("credentials form: %w", err)
	}
	return Apply(v, secrets, cfg)
}

// Apply writes the secrets in v to the keyring and replaces the matching
// config values with keyring references. An empty MySQL password leaves
// the current value untouched.
func Apply(v Values, secrets *credential.Store, cfg *model.AppConfig) error {
	if err := validateEmail(v.MailEmail); err != nil {
		return err
	}
	if err := validateRequired("app password")(v.MailPassword); err != nil {
		return err
	}

	ref, err := secrets.Set(MailPasswordKey, strings.TrimSpace(v.MailPassword))
	if err != nil {
		return err
	}
	cfg.Mail.Email = strings.TrimSpace(v.MailEmail)
	cfg.Mail.AppPassword = ref

	if v.MySQLPassword != "" {
		ref, err := secrets.Set(MySQLPasswordKey, v.MySQLPassword)
		if err != nil {
			return err
		}
		cfg.MySQL.Password = ref
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("mailbox address is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("%q is not a plain email address", s)
	}
	return nil
}
