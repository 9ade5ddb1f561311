package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// EnvironmentConfig describes the environment the suite runs against.
type EnvironmentConfig struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Browser     string `mapstructure:"browser" yaml:"browser"`
}

// RestAPIConfig holds the settings for the application's REST API.
type RestAPIConfig struct {
	// BaseURL is the root URL every endpoint path is resolved against.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	GrantType string `mapstructure:"grant_type" yaml:"grant_type"`

	// InsecureSkipVerify disables TLS certificate checks. Staging hosts of
	// the application under test commonly run self-signed certificates.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// ContentTypeConfig holds the Content-Type values sent with requests.
type ContentTypeConfig struct {
	JSON     string `mapstructure:"json" yaml:"json"`
	FormData string `mapstructure:"form_data" yaml:"form_data"`
}

// MySQLConfig holds the connection settings for the run-metadata database.
type MySQLConfig struct {
	// Driver is "mysql" or "sqlite".
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`

	// SQLitePath is used when Driver is "sqlite".
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	ExecutionStatusStart string `mapstructure:"execution_status_start" yaml:"execution_status_start"`
	ExecutionStatusEnd   string `mapstructure:"execution_status_end" yaml:"execution_status_end"`
}

// MongoConfig holds the settings for the application's user collection.
type MongoConfig struct {
	URI            string `mapstructure:"uri" yaml:"uri"`
	DatabaseName   string `mapstructure:"database_name" yaml:"database_name"`
	CollectionName string `mapstructure:"collection_name" yaml:"collection_name"`
}

// RegisterUserConfig is the default identity used by registration tests.
type RegisterUserConfig struct {
	FirstName       string `mapstructure:"first_name" yaml:"first_name"`
	LastName        string `mapstructure:"last_name" yaml:"last_name"`
	Email           string `mapstructure:"email" yaml:"email"`
	Telephone       string `mapstructure:"telephone" yaml:"telephone"`
	Password        string `mapstructure:"password" yaml:"password"`
	PasswordConfirm string `mapstructure:"password_confirm" yaml:"password_confirm"`
}

// LoginConfig holds the credentials of an existing account.
type LoginConfig struct {
	EmailAddress string `mapstructure:"email_address" yaml:"email_address"`
	Password     string `mapstructure:"password" yaml:"password"`
}

// MailConfig holds the mailbox used to receive application emails.
type MailConfig struct {
	IMAPServer string `mapstructure:"imap_server" yaml:"imap_server"`
	IMAPPort   int    `mapstructure:"imap_port" yaml:"imap_port"`
	Email      string `mapstructure:"email" yaml:"email"`

	// AppPassword may be a literal or a "keyring:<key>" reference.
	AppPassword string `mapstructure:"app_password" yaml:"app_password"`

	Subject     string `mapstructure:"subject" yaml:"subject"`
	Sender      string `mapstructure:"sender" yaml:"sender"`
	LinkPattern string `mapstructure:"link_pattern" yaml:"link_pattern"`

	// Scope is "folder" (search Folder only) or "all" (every folder).
	Scope  string `mapstructure:"scope" yaml:"scope"`
	Folder string `mapstructure:"folder" yaml:"folder"`
	Limit  int    `mapstructure:"limit" yaml:"limit"`
}

// ExcelConfig holds the paths of the fixture workbooks.
type ExcelConfig struct {
	RegisteredUsersPath string `mapstructure:"registered_users_path" yaml:"registered_users_path"`
	UserDataPath        string `mapstructure:"user_data_path" yaml:"user_data_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Environment  EnvironmentConfig  `mapstructure:"environment" yaml:"environment"`
	RestAPI      RestAPIConfig      `mapstructure:"rest_api" yaml:"rest_api"`
	ContentType  ContentTypeConfig  `mapstructure:"content_type" yaml:"content_type"`
	MySQL        MySQLConfig        `mapstructure:"mysql" yaml:"mysql"`
	MongoDB      MongoConfig        `mapstructure:"mongodb" yaml:"mongodb"`
	RegisterUser RegisterUserConfig `mapstructure:"register_users" yaml:"register_users"`
	Users        LoginConfig        `mapstructure:"users" yaml:"users"`
	Mail         MailConfig         `mapstructure:"mail" yaml:"mail"`
	Excel        ExcelConfig        `mapstructure:"excel" yaml:"excel"`
}

// envPrefix is the prefix for environment variable overrides, e.g.
// QAKIT_MYSQL_PASSWORD overrides mysql.password.
const envPrefix = "QAKIT"

// configDefaults lists every known key. Keys must be registered with viper
// for AutomaticEnv to apply to them during Unmarshal.
var configDefaults = map[string]any{
	"environment.environment": "",
	"environment.browser":     "",

	"rest_api.base_url":             "",
	"rest_api.grant_type":           "",
	"rest_api.insecure_skip_verify": false,
	"rest_api.timeout_sec":          30,

	"content_type.json":      "application/json",
	"content_type.form_data": "application/x-www-form-urlencoded",

	"mysql.driver":                 "mysql",
	"mysql.username":               "",
	"mysql.password":               "",
	"mysql.host":                   "",
	"mysql.port":                   3306,
	"mysql.database":               "",
	"mysql.sqlite_path":            "",
	"mysql.execution_status_start": "STARTED",
	"mysql.execution_status_end":   "COMPLETED",

	"mongodb.uri":             "",
	"mongodb.database_name":   "",
	"mongodb.collection_name": "",

	"register_users.first_name":       "",
	"register_users.last_name":        "",
	"register_users.email":            "",
	"register_users.telephone":        "",
	"register_users.password":         "",
	"register_users.password_confirm": "",

	"users.email_address": "",
	"users.password":      "",

	"mail.imap_server":  "imap.gmail.com",
	"mail.imap_port":    993,
	"mail.email":        "",
	"mail.app_password": "",
	"mail.subject":      "",
	"mail.sender":       "",
	"mail.link_pattern": "",
	"mail.scope":        "folder",
	"mail.folder":       "INBOX",
	"mail.limit":        20,

	"excel.registered_users_path": "registered_users.xlsx",
	"excel.user_data_path":        "user_data.xlsx",
}

// dotenvKeys maps the legacy .env variables onto config keys.
var dotenvKeys = map[string]string{
	"register_email":              "mail.email",
	"register_email_app_password": "mail.app_password",
	"imap_server":                 "mail.imap_server",
	"subject":                     "mail.subject",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ./configs/config.ini.
func DefaultConfigPath() string {
	return filepath.Join("configs", "config.ini")
}

// DefaultEndpointsPath returns the default path of the endpoint catalogue.
func DefaultEndpointsPath() string {
	return filepath.Join("configs", "config_end_url.ini")
}

// newViper returns a viper instance with every default registered and
// environment overrides enabled.
func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from path (INI, JSON, YAML or TOML),
// overlays the optional dotenv file and QAKIT_* environment variables, and
// validates the result. A missing config file is not an error as long as
// the required keys arrive from the environment.
func LoadConfig(path, dotenvPath string) (*AppConfig, error) {
	v := newViper()

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	if err := mergeDotEnv(v, dotenvPath); err != nil {
		return nil, err
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Mail.Scope = NormalizeScope(cfg.Mail.Scope)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// readConfigFile loads path into v. INI files are parsed with go-ini and
// merged as a config map so that environment overrides keep precedence.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		settings, err := readINI(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return fmt.Errorf("merging config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	return nil
}

// readINI parses an INI file into a nested section → key → value map with
// lower-cased names.
func readINI(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, err
	}

	settings := make(map[string]any)
	for _, section := range file.Sections() {
		keys := section.Keys()
		if len(keys) == 0 {
			continue
		}
		values := make(map[string]any, len(keys))
		for _, key := range keys {
			values[strings.ToLower(key.Name())] = key.Value()
		}
		settings[strings.ToLower(section.Name())] = values
	}

	return settings, nil
}

// mergeDotEnv overlays the legacy .env variables. A missing file is ignored.
func mergeDotEnv(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading env file %s: %w", path, err)
	}

	overlay := make(map[string]any)
	for envKey, cfgKey := range dotenvKeys {
		if !ev.IsSet(envKey) {
			continue
		}
		section, key, _ := strings.Cut(cfgKey, ".")
		values, ok := overlay[section].(map[string]any)
		if !ok {
			values = make(map[string]any)
			overlay[section] = values
		}
		values[key] = ev.GetString(envKey)
	}

	if len(overlay) == 0 {
		return nil
	}
	if err := v.MergeConfigMap(overlay); err != nil {
		return fmt.Errorf("merging env file %s: %w", path, err)
	}
	return nil
}

// Validate checks the keys every command depends on.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.RestAPI.BaseURL) == "" {
		return errors.New("rest_api.base_url is required")
	}
	if c.RestAPI.TimeoutSec < 0 {
		return errors.New("rest_api.timeout_sec must not be negative")
	}
	return nil
}

// Validate checks the database settings for the configured driver.
func (c MySQLConfig) Validate() error {
	switch c.Driver {
	case "mysql":
		var missing []string
		if c.Username == "" {
			missing = append(missing, "mysql.username")
		}
		if c.Password == "" {
			missing = append(missing, "mysql.password")
		}
		if c.Host == "" {
			missing = append(missing, "mysql.host")
		}
		if c.Database == "" {
			missing = append(missing, "mysql.database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required database settings: %s", strings.Join(missing, ", "))
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("mysql.port must be between 1 and 65535, got %d", c.Port)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("mysql.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported mysql.driver %q", c.Driver)
	}
	return nil
}

// Validate checks the mailbox settings.
func (c MailConfig) Validate() error {
	if c.IMAPServer == "" {
		return errors.New("mail.imap_server is required")
	}
	if c.IMAPPort <= 0 || c.IMAPPort > 65535 {
		return fmt.Errorf("mail.imap_port must be between 1 and 65535, got %d", c.IMAPPort)
	}
	if c.Email == "" {
		return errors.New("mail.email is required (or REGISTER_EMAIL in .env)")
	}
	if c.AppPassword == "" {
		return errors.New("mail.app_password is required (or REGISTER_EMAIL_APP_PASSWORD in .env)")
	}
	switch NormalizeScope(c.Scope) {
	case ScopeFolder, ScopeAll:
	default:
		return fmt.Errorf("mail.scope must be \"folder\" or \"all\", got %q", c.Scope)
	}
	return nil
}

// Values of mail.scope.
const (
	ScopeFolder = "folder"
	ScopeAll    = "all"
)

// NormalizeScope trims and lower-cases a mail.scope value. Empty means
// ScopeFolder.
func NormalizeScope(scope string) string {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		return ScopeFolder
	}
	return scope
}

// Validate checks the MongoDB settings.
func (c MongoConfig) Validate() error {
	if c.URI == "" {
		return errors.New("mongodb.uri is required")
	}
	if c.DatabaseName == "" {
		return errors.New("mongodb.database_name is required")
	}
	if c.CollectionName == "" {
		return errors.New("mongodb.collection_name is required")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("environment", cfg.Environment)
	v.Set("rest_api", cfg.RestAPI)
	v.Set("content_type", cfg.ContentType)
	v.Set("mysql", cfg.MySQL)
	v.Set("mongodb", cfg.MongoDB)
	v.Set("register_users", cfg.RegisterUser)
	v.Set("users", cfg.Users)
	v.Set("mail", cfg.Mail)
	v.Set("excel", cfg.Excel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
