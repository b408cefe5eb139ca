package dialect

import (
	"net/url"
	"strconv"
	"strings"
)

const memoryConnectionString = "file::memory:?cache=shared"

// serverTemplates covers the generic "credentials@host:port/database" family.
// {port} expands to ":<port>" or to nothing when the descriptor has no port.
var serverTemplates = map[DatabaseType]string{
	TypePostgres: "postgres://{userinfo}{host}{port}/{database}",
	TypeMySQL:    "mysql://{userinfo}{host}{port}/{database}",
	TypeMySQLTCP: "{userinfo}tcp({host}{port})/{database}",
}

// SQL Server picks a whole template by whether a port is set.
const (
	sqlServerWithPort    = "sqlserver://{userinfo}{host}:{port}/{database}?driver={driver}&TrustServerCertificate=yes&Encrypt=no"
	sqlServerWithoutPort = "sqlserver://{userinfo}{host}/{database}?driver={driver}&TrustServerCertificate=yes&Encrypt=no"
)

// ConnectionString renders the connection string for d. It depends only on d.
func ConnectionString(d Descriptor) (string, error) {
	switch d.Type {
	case TypeMemory:
		return memoryConnectionString, nil
	case TypeSQLite:
		return "file:" + d.Database, nil
	case TypeSQLServer:
		template := sqlServerWithoutPort
		port := ""
		if d.Port != nil {
			template = sqlServerWithPort
			port = strconv.Itoa(*d.Port)
		}
		driver := d.Driver
		if driver == "" {
			driver = DefaultSQLServerDriver
		}
		return expand(template, d, port, strings.ReplaceAll(driver, " ", "+")), nil
	}

	template, ok := serverTemplates[d.Type]
	if !ok {
		return "", &UnsupportedDatabaseTypeError{Type: d.Type}
	}
	port := ""
	if d.Port != nil {
		port = ":" + strconv.Itoa(*d.Port)
	}
	return expand(template, d, port, ""), nil
}

func expand(template string, d Descriptor, port, driver string) string {
	return strings.NewReplacer(
		"{userinfo}", userinfo(d.Credentials),
		"{host}", d.Host,
		"{port}", port,
		"{database}", d.Database,
		"{driver}", driver,
	).Replace(template)
}

// userinfo renders "user:password@" with URL escaping, or "" without a user.
func userinfo(c Credentials) string {
	if c.User == "" {
		return ""
	}
	if c.Password == "" {
		return url.User(c.User).String() + "@"
	}
	return url.UserPassword(c.User, c.Password).String() + "@"
}
