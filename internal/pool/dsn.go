package pool

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/askdb/askdb/internal/errors"
)

// Descriptor identifies the target database. Driver selects the DSN form;
// TrustedConnection switches SQL Server to integrated auth, in which case
// Username and Password are ignored.
type Descriptor struct {
	Driver                 string
	Server                 string
	Port                   int
	Database               string
	Username               string
	Password               string
	TrustedConnection      bool
	Encrypt                bool
	TrustServerCertificate bool
}

// Redacted renders the descriptor for logs with credentials masked.
func (d Descriptor) Redacted() string {
	auth := "sql-auth"
	if d.TrustedConnection {
		auth = "trusted-connection"
	}

	return fmt.Sprintf("%s://%s/%s (%s)", d.Driver, d.Server, d.Database, auth)
}

// BuildDSN translates a descriptor into a registered driver name and its
// connection string. The returned DSN may embed the password and must never
// be logged.
func BuildDSN(d Descriptor) (string, string, error) {
	switch strings.ToLower(d.Driver) {
	case "mssql":
		return buildSQLServerDSN(d)
	case "postgres":
		return buildPostgresDSN(d)
	case "mysql":
		return buildMySQLDSN(d)
	case "sqlite":
		if d.Database == "" {
			return "", "", errors.New(errors.ErrTypePoolInit, "sqlite requires a database path (or :memory:)")
		}

		return "sqlite3", d.Database, nil
	case "duckdb":
		// An empty path opens an in-memory database.
		return "duckdb", d.Database, nil
	default:
		return "", "", errors.Newf(errors.ErrTypePoolInit, "unsupported driver %s", d.Driver)
	}
}

// buildSQLServerDSN produces a sqlserver:// URL. A server of the form
// HOST\INSTANCE addresses a named instance; TrustedConnection drops
// credentials in favor of integrated auth.
func buildSQLServerDSN(d Descriptor) (string, string, error) {
	if d.Server == "" || d.Database == "" {
		return "", "", errors.New(errors.ErrTypePoolInit, "mssql requires server and database")
	}

	host := d.Server
	instance := ""

	if i := strings.IndexByte(host, '\\'); i >= 0 {
		instance = host[i+1:]
		host = host[:i]
	}

	if d.Port > 0 {
		host = fmt.Sprintf("%s:%d", host, d.Port)
	}

	query := url.Values{}
	query.Set("database", d.Database)

	if d.Encrypt {
		query.Set("encrypt", "true")
	} else {
		query.Set("encrypt", "disable")
	}

	if d.TrustServerCertificate {
		query.Set("TrustServerCertificate", "true")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		RawQuery: query.Encode(),
	}

	if instance != "" {
		u.Path = instance
	}

	if d.TrustedConnection {
		query.Set("trusted_connection", "yes")
		u.RawQuery = query.Encode()
	} else {
		if d.Username == "" {
			return "", "", errors.New(errors.ErrTypePoolInit, "mssql requires a username unless trusted_connection is set")
		}

		u.User = url.UserPassword(d.Username, d.Password)
	}

	return "sqlserver", u.String(), nil
}

func buildPostgresDSN(d Descriptor) (string, string, error) {
	if d.Server == "" || d.Database == "" {
		return "", "", errors.New(errors.ErrTypePoolInit, "postgres requires server and database")
	}

	port := d.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if d.Encrypt {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Server, port),
		Path:     d.Database,
		RawQuery: "sslmode=" + sslmode,
	}

	return "pgx", u.String(), nil
}

func buildMySQLDSN(d Descriptor) (string, string, error) {
	if d.Server == "" || d.Database == "" {
		return "", "", errors.New(errors.ErrTypePoolInit, "mysql requires server and database")
	}

	port := d.Port
	if port == 0 {
		port = 3306
	}

	params := "parseTime=true"
	if d.Encrypt {
		params += "&tls=true"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		d.Username, d.Password, d.Server, port, d.Database, params)

	return "mysql", dsn, nil
}
