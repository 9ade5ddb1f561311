package store

// migration holds a single schema migration with its target version and
// the statements that apply it. Statements run one at a time because the
// MySQL driver rejects multi-statement Exec by default.
type migration struct {
	version    int
	statements []string
}

const createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
)`

// sqliteMigrations is the ordered list of SQLite schema migrations.
var sqliteMigrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS test_execution_reports (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id               TEXT NOT NULL UNIQUE,
	name                 TEXT NOT NULL,
	execution_start_time DATETIME NOT NULL,
	execution_end_time   DATETIME NULL,
	execution_status     TEXT NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS user_data (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	business_name TEXT NOT NULL DEFAULT '',
	username      TEXT NOT NULL,
	password      TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT ''
)`,
			`CREATE TABLE IF NOT EXISTS registered_users (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	firstname        TEXT NOT NULL,
	lastname         TEXT NOT NULL,
	email            TEXT NOT NULL UNIQUE,
	telephone        TEXT NOT NULL DEFAULT '',
	password         TEXT NOT NULL,
	confirm_password TEXT NOT NULL,
	created_at       DATETIME NOT NULL
)`,
			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_reports_start ON test_execution_reports(execution_start_time)`,
			`CREATE INDEX IF NOT EXISTS idx_user_data_username ON user_data(username)`,
			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
}

// mysqlMigrations mirrors sqliteMigrations in MySQL syntax.
var mysqlMigrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS test_execution_reports (
	id                   INT AUTO_INCREMENT PRIMARY KEY,
	run_id               VARCHAR(36) NOT NULL UNIQUE,
	name                 VARCHAR(255) NOT NULL,
	execution_start_time DATETIME NOT NULL,
	execution_end_time   DATETIME NULL,
	execution_status     VARCHAR(50) NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS user_data (
	id            INT AUTO_INCREMENT PRIMARY KEY,
	business_name VARCHAR(255) NOT NULL DEFAULT '',
	username      VARCHAR(255) NOT NULL,
	password      VARCHAR(255) NOT NULL,
	email         VARCHAR(255) NOT NULL DEFAULT ''
)`,
			`CREATE TABLE IF NOT EXISTS registered_users (
	id               INT AUTO_INCREMENT PRIMARY KEY,
	firstname        VARCHAR(100) NOT NULL,
	lastname         VARCHAR(100) NOT NULL,
	email            VARCHAR(255) NOT NULL UNIQUE,
	telephone        VARCHAR(15) NOT NULL DEFAULT '',
	password         TEXT NOT NULL,
	confirm_password TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE INDEX idx_reports_start ON test_execution_reports(execution_start_time)`,
			`CREATE INDEX idx_user_data_username ON user_data(username)`,
			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
}
