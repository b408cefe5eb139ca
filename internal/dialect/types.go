package dialect

// DatabaseType is the configuration key of a database engine.
type DatabaseType string

const (
	// TypeMemory is a file-less in-memory SQLite database.
	TypeMemory DatabaseType = "memory"
	// TypeSQLite is a single-file SQLite database; Descriptor.Database is the path.
	TypeSQLite DatabaseType = "sqlite"
	// TypePostgres is PostgreSQL.
	TypePostgres DatabaseType = "postgresql"
	// TypeMySQL is MySQL in URL form.
	TypeMySQL DatabaseType = "mysql"
	// TypeMySQLTCP is MySQL in the go-sql-driver DSN form ("user:pw@tcp(host:port)/db").
	TypeMySQLTCP DatabaseType = "mysql+tcp"
	// TypeSQLServer is Microsoft SQL Server, reached through a named ODBC driver.
	TypeSQLServer DatabaseType = "mssql"
)

// KnownTypes lists every type with a connection template, in a fixed order.
var KnownTypes = []DatabaseType{
	TypeMemory,
	TypeSQLite,
	TypePostgres,
	TypeMySQL,
	TypeMySQLTCP,
	TypeSQLServer,
}

// DefaultSQLServerDriver is used when an mssql descriptor names no driver.
const DefaultSQLServerDriver = "ODBC+Driver+17+for+SQL+Server"

// Credentials are the user and password for a server database.
type Credentials struct {
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
}

// Descriptor describes one database the pipeline talks to.
type Descriptor struct {
	// Name is the logical name used in logs and on the command line.
	Name        string       `yaml:"name" json:"name"`
	Type        DatabaseType `yaml:"type" json:"type"`
	Host        string       `yaml:"host,omitempty" json:"host,omitempty"`
	Port        *int         `yaml:"port,omitempty" json:"port,omitempty"`
	Database    string       `yaml:"database" json:"database"`
	Credentials Credentials  `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	Driver      string       `yaml:"driver,omitempty" json:"driver,omitempty"`
}
