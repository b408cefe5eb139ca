package source

import (
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/roach88/doxetl/internal/dialect"
)

// driverDSN renders desc in the form its linked driver parses. The resolver's
// connection strings are used as is where the driver accepts them; MySQL and
// SQL Server are rebuilt for go-sql-driver/mysql and go-mssqldb.
func driverDSN(res *dialect.Resolver, desc dialect.Descriptor) (string, error) {
	// Unsupported types fail here whatever the driver.
	dsn, err := res.ConnectionString(desc)
	if err != nil {
		return "", err
	}

	switch desc.Type {
	case dialect.TypeMySQL, dialect.TypeMySQLTCP:
		cfg := mysql.NewConfig()
		cfg.User = desc.Credentials.User
		cfg.Passwd = desc.Credentials.Password
		cfg.Net = "tcp"
		cfg.Addr = hostPort(desc)
		cfg.DBName = desc.Database
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	case dialect.TypeSQLServer:
		q := url.Values{}
		q.Set("database", desc.Database)
		q.Set("encrypt", "disable")
		q.Set("TrustServerCertificate", "true")
		u := url.URL{Scheme: "sqlserver", Host: hostPort(desc), RawQuery: q.Encode()}
		if desc.Credentials.User != "" {
			u.User = url.UserPassword(desc.Credentials.User, desc.Credentials.Password)
		}
		return u.String(), nil
	}
	return dsn, nil
}

func hostPort(desc dialect.Descriptor) string {
	if desc.Port == nil {
		return desc.Host
	}
	return net.JoinHostPort(desc.Host, strconv.Itoa(*desc.Port))
}
