package inbox

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nhle/opencart-qa/internal/credential"
	"github.com/nhle/opencart-qa/internal/model"
)

// Subjects sent by the application under test.
const (
	RegistrationSubject = "thank you for registering"
	SetPasswordSubject  = "Set your new password"
)

var (
	// LoginLinkPattern matches the account login link in the registration
	// confirmation email.
	LoginLinkPattern = regexp.MustCompile(`https?://\S+?route=account/login`)

	// SetPasswordLinkPattern matches a set-password link on any host.
	SetPasswordLinkPattern = regexp.MustCompile(`https?://[^\s"'<>]+/setpassword/[^\s"'<>]+`)
)

// LoginLinkFilter finds the login link from the registration confirmation
// email, searching every folder so messages filtered out of INBOX are seen.
func LoginLinkFilter() Filter {
	return Filter{
		Subject:      RegistrationSubject,
		SubjectMatch: SubjectContains,
		Pattern:      LoginLinkPattern,
		Scope:        ScopeAllFolders,
	}
}

// SetPasswordFilter finds the set-password link sent by sender. A nil
// pattern means SetPasswordLinkPattern.
func SetPasswordFilter(sender string, pattern *regexp.Regexp) Filter {
	if pattern == nil {
		pattern = SetPasswordLinkPattern
	}
	return Filter{
		Sender:       sender,
		Subject:      SetPasswordSubject,
		SubjectMatch: SubjectExact,
		Pattern:      pattern,
		Scope:        ScopeFolder,
		Folder:       DefaultFolder,
	}
}

// FilterFromConfig builds a Filter from the mail section. An empty
// link_pattern yields a Filter without a pattern; callers are expected to
// supply one.
func FilterFromConfig(cfg model.MailConfig) (Filter, error) {
	scope, err := ParseScope(cfg.Scope)
	if err != nil {
		return Filter{}, fmt.Errorf("mail.scope: %w", err)
	}

	f := Filter{
		Sender:  strings.TrimSpace(cfg.Sender),
		Subject: cfg.Subject,
		Scope:   scope,
		Folder:  cfg.Folder,
		Limit:   cfg.Limit,
	}

	if cfg.LinkPattern != "" {
		re, err := regexp.Compile(cfg.LinkPattern)
		if err != nil {
			return Filter{}, fmt.Errorf("mail.link_pattern: %w", err)
		}
		f.Pattern = re
	}

	return f, nil
}

// CredentialsFromConfig validates the mail section and resolves a keyring
// reference in app_password through secrets. Port 993 uses implicit TLS;
// any other port upgrades with STARTTLS.
func CredentialsFromConfig(cfg model.MailConfig, secrets *credential.Store) (Credentials, error) {
	if err := cfg.Validate(); err != nil {
		return Credentials{}, err
	}

	password, err := credential.Resolve(secrets, cfg.AppPassword)
	if err != nil {
		return Credentials{}, fmt.Errorf("mail.app_password: %w", err)
	}

	return Credentials{
		Host:     cfg.IMAPServer,
		Port:     cfg.IMAPPort,
		Username: cfg.Email,
		Password: password,
		TLS:      cfg.IMAPPort == 993,
	}, nil
}
