package postgres

import (
	"io/fs"
	"os"

	"gopkg.in/ini.v1"
)

// DefaultConfigResource is the conventional name of the connection properties resource.
const DefaultConfigResource = "db.properties"

// PgConfig holds the configuration settings required to connect to a PostgreSQL database.
// Every field is optional; an absent key leaves the zero value.
type PgConfig struct {
	Host                    string // Host is the database server address (e.g., "localhost" or an IP). Empty means the driver default.
	Port                    string // Port is only used when Host is set.
	DBName                  string // DBName is the name of the specific database to connect to.
	Schema                  string // Schema specifies the schema within the database (often "public").
	User                    string // User is the username for authenticating to the database.
	Password                string // Password is the password for the specified User.
	MaxOpenConnections      int    // MaxOpenConnections defines the maximum number of open connections; zero means defaultMaxPool.
	ConnectionMaxLifetimeMS int    // ConnectionMaxLifetimeMS sets the maximum time (in milliseconds) a connection can be reused.
	LogMode                 bool   // LogMode enables or disables SQL query logging (true for enabled).
	SSLMode                 string // SSLMode enables or disables SSL connection (e.g., "disable").
	ConnectRetries          int    // ConnectRetries is the number of extra open attempts after the first failure.
	RetryIntervalMS         int    // RetryIntervalMS is the pause between open attempts.
}

// Recognized keys of the properties resource.
const (
	keyHost                    = "host"
	keyPort                    = "port"
	keyUser                    = "user"
	keyPassword                = "password"
	keyDBName                  = "dbname"
	keySchema                  = "schema"
	keySSLMode                 = "sslmode"
	keyMaxOpenConnections      = "max_open_connections"
	keyConnectionMaxLifetimeMS = "connection_max_lifetime_ms"
	keyLogMode                 = "log_mode"
	keyConnectRetries          = "connect_retries"
	keyRetryIntervalMS         = "retry_interval_ms"
)

// LoadConfig reads the properties file at path.
func LoadConfig(path string) (*PgConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configurationError("%s could not be read: %v", path, err)
	}
	return ParseConfig(data)
}

// LoadConfigFS reads the named properties resource from fsys, e.g. an embed.FS.
func LoadConfigFS(fsys fs.FS, name string) (*PgConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, configurationError("%s could not be read: %v", name, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses key/value properties. Keys live outside any section;
// "#" and ";" start comment lines.
func ParseConfig(data []byte) (*PgConfig, error) {
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, configurationError("malformed properties: %v", err)
	}

	section := file.Section(ini.DefaultSection)
	cfg := &PgConfig{
		Host:     section.Key(keyHost).String(),
		Port:     section.Key(keyPort).String(),
		User:     section.Key(keyUser).String(),
		Password: section.Key(keyPassword).String(),
		DBName:   section.Key(keyDBName).String(),
		Schema:   section.Key(keySchema).String(),
		SSLMode:  section.Key(keySSLMode).String(),
	}

	ints := []struct {
		key string
		dst *int
	}{
		{keyMaxOpenConnections, &cfg.MaxOpenConnections},
		{keyConnectionMaxLifetimeMS, &cfg.ConnectionMaxLifetimeMS},
		{keyConnectRetries, &cfg.ConnectRetries},
		{keyRetryIntervalMS, &cfg.RetryIntervalMS},
	}
	for _, field := range ints {
		if !section.HasKey(field.key) {
			continue
		}
		v, err := section.Key(field.key).Int()
		if err != nil || v < 0 {
			return nil, configurationError("%s must be a non-negative integer, got %q", field.key, section.Key(field.key).String())
		}
		*field.dst = v
	}

	if section.HasKey(keyLogMode) {
		v, err := section.Key(keyLogMode).Bool()
		if err != nil {
			return nil, configurationError("%s must be a boolean, got %q", keyLogMode, section.Key(keyLogMode).String())
		}
		cfg.LogMode = v
	}

	return cfg, nil
}
