package model

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleINI = `
[environment]
environment = staging
browser = chrome

[rest_api]
base_url = https://demo.opencart.test/
grant_type = password

[mysql]
username = qa
password = secret
host = db.internal
database = qa_runs

[register_users]
first_name = Ada
last_name = Lovelace
email = ada@example.com

[users]
email_address = admin@example.com
password = hunter2

[mail]
sender = noreply@opencart.test
link_pattern = https?://\S+?route=account/login
`

func TestLoadConfigINI(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.ini", sampleINI)

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment.Environment)
	assert.Equal(t, "https://demo.opencart.test/", cfg.RestAPI.BaseURL)
	assert.Equal(t, "password", cfg.RestAPI.GrantType)
	assert.Equal(t, 30, cfg.RestAPI.TimeoutSec)
	assert.Equal(t, "application/json", cfg.ContentType.JSON)

	assert.Equal(t, "mysql", cfg.MySQL.Driver)
	assert.Equal(t, "qa", cfg.MySQL.Username)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, "STARTED", cfg.MySQL.ExecutionStatusStart)
	assert.Equal(t, "COMPLETED", cfg.MySQL.ExecutionStatusEnd)
	assert.NoError(t, cfg.MySQL.Validate())

	assert.Equal(t, "Ada", cfg.RegisterUser.FirstName)
	assert.Equal(t, "admin@example.com", cfg.Users.EmailAddress)

	assert.Equal(t, "imap.gmail.com", cfg.Mail.IMAPServer)
	assert.Equal(t, 993, cfg.Mail.IMAPPort)
	assert.Equal(t, "INBOX", cfg.Mail.Folder)
	assert.Equal(t, 20, cfg.Mail.Limit)
	assert.Equal(t, `https?://\S+?route=account/login`, cfg.Mail.LinkPattern)
}

func TestLoadConfigMissingBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.ini", "[mysql]\nusername = qa\n")

	_, err := LoadConfig(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rest_api.base_url is required")
}

func TestLoadConfigMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("QAKIT_REST_API_BASE_URL", "https://env.opencart.test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.ini"), "")
	require.NoError(t, err)
	assert.Equal(t, "https://env.opencart.test", cfg.RestAPI.BaseURL)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.ini", sampleINI)
	t.Setenv("QAKIT_MYSQL_PASSWORD", "from-env")
	t.Setenv("QAKIT_MYSQL_PORT", "3307")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.MySQL.Password)
	assert.Equal(t, 3307, cfg.MySQL.Port)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.ini", sampleINI)
	envPath := writeFile(t, dir, ".env", `REGISTER_EMAIL=qa.inbox@example.com
REGISTER_EMAIL_APP_PASSWORD=abcdefghijklmnop
IMAP_SERVER=imap.example.com
SUBJECT="Thank you for registering"
`)

	cfg, err := LoadConfig(path, envPath)
	require.NoError(t, err)
	assert.Equal(t, "qa.inbox@example.com", cfg.Mail.Email)
	assert.Equal(t, "abcdefghijklmnop", cfg.Mail.AppPassword)
	assert.Equal(t, "imap.example.com", cfg.Mail.IMAPServer)
	assert.Equal(t, "Thank you for registering", cfg.Mail.Subject)
	assert.NoError(t, cfg.Mail.Validate())
}

func TestLoadConfigMissingDotEnvIgnored(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.ini", sampleINI)

	cfg, err := LoadConfig(path, filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Mail.Email)
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
  "rest_api": {"base_url": "https://json.opencart.test"},
  "mysql": {"driver": "sqlite", "sqlite_path": "runs.db"},
  "mongodb": {"uri": "mongodb://localhost:27017", "database_name": "shop", "collection_name": "users"}
}`)

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "https://json.opencart.test", cfg.RestAPI.BaseURL)
	assert.Equal(t, "sqlite", cfg.MySQL.Driver)
	assert.NoError(t, cfg.MySQL.Validate())
	assert.NoError(t, cfg.MongoDB.Validate())
}

func TestMySQLConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     MySQLConfig
		wantErr string
	}{
		{
			name:    "missing credentials",
			cfg:     MySQLConfig{Driver: "mysql", Port: 3306},
			wantErr: "mysql.username, mysql.password, mysql.host, mysql.database",
		},
		{
			name:    "bad port",
			cfg:     MySQLConfig{Driver: "mysql", Username: "u", Password: "p", Host: "h", Database: "d", Port: 70000},
			wantErr: "mysql.port",
		},
		{
			name:    "sqlite without path",
			cfg:     MySQLConfig{Driver: "sqlite"},
			wantErr: "mysql.sqlite_path",
		},
		{
			name:    "unknown driver",
			cfg:     MySQLConfig{Driver: "oracle"},
			wantErr: "unsupported",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMailConfigValidateScope(t *testing.T) {
	cfg := MailConfig{IMAPServer: "imap.example.com", IMAPPort: 993, Email: "a@b.c", AppPassword: "x", Scope: "everywhere"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail.scope")

	for _, scope := range []string{"all", "All", " ALL ", "Folder", ""} {
		cfg.Scope = scope
		assert.NoError(t, cfg.Validate(), "scope %q", scope)
	}
}

func TestLoadConfigNormalizesScope(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.ini", sampleINI+"scope = All\n")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, cfg.Mail.Scope)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &AppConfig{
		RestAPI: RestAPIConfig{BaseURL: "https://saved.opencart.test", TimeoutSec: 10},
		MySQL:   MySQLConfig{Driver: "sqlite", SQLitePath: "runs.db", Port: 3306},
		Mail:    MailConfig{IMAPServer: "imap.example.com", IMAPPort: 993, Scope: "all", Folder: "INBOX", Limit: 5},
	}

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "https://saved.opencart.test", loaded.RestAPI.BaseURL)
	assert.Equal(t, 10, loaded.RestAPI.TimeoutSec)
	assert.Equal(t, "sqlite", loaded.MySQL.Driver)
	assert.Equal(t, "all", loaded.Mail.Scope)
	assert.Equal(t, 5, loaded.Mail.Limit)
}

func TestLoadEndpoints(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config_end_url.ini", `
[API_POST]
login_url = /api/login
register_url = /api/register

[API_GET]
profile_url = /api/profile

[API_PUT]
set_password_url = /api/setpassword
`)

	eps, err := LoadEndpoints(path)
	require.NoError(t, err)

	login, err := eps.Resolve(http.MethodPost, "login")
	require.NoError(t, err)
	assert.Equal(t, "/api/login", login)

	setPassword, err := eps.Resolve("put", "set_password_url")
	require.NoError(t, err)
	assert.Equal(t, "/api/setpassword", setPassword)

	_, err = eps.Resolve(http.MethodGet, "ledger")
	require.Error(t, err)
	assert.True(t, IsMissingEndpoint(err))
}

func TestLoadEndpointsRequiresLogin(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config_end_url.ini", "[API_GET]\nprofile_url = /api/profile\n")

	_, err := LoadEndpoints(path)
	require.Error(t, err)
	assert.True(t, IsMissingEndpoint(err))
}
