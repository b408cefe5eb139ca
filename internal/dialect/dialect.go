package dialect

import (
	"strconv"
	"strings"
)

// BindStyle is how a dialect writes positional query parameters.
type BindStyle int

const (
	BindQuestion BindStyle = iota // ?
	BindDollar                    // $1, $2, ...
	BindAtP                       // @p1, @p2, ...
)

// Dialect is the SQL syntax variant of an engine.
type Dialect struct {
	// Key is the canonical dialect name ("postgres", "mysql", "tsql", "sqlite").
	Key string
	// Driver is the database/sql driver registered for this dialect in this
	// binary, or "" when none is linked in.
	Driver string

	Bind       BindStyle
	quoteOpen  string
	quoteClose string
}

// Dialects returns the dialects known to this build, keyed by canonical key.
func Dialects() map[string]Dialect {
	return map[string]Dialect{
		"postgres": {Key: "postgres", Driver: "pgx", Bind: BindDollar, quoteOpen: `"`, quoteClose: `"`},
		"mysql":    {Key: "mysql", Driver: "mysql", Bind: BindQuestion, quoteOpen: "`", quoteClose: "`"},
		"tsql":     {Key: "tsql", Driver: "sqlserver", Bind: BindAtP, quoteOpen: "[", quoteClose: "]"},
		"sqlite":   {Key: "sqlite", Driver: "sqlite3", Bind: BindQuestion, quoteOpen: `"`, quoteClose: `"`},
	}
}

// QuoteIdent quotes an identifier, doubling any closing quote inside it.
func (d Dialect) QuoteIdent(name string) string {
	return d.quoteOpen + strings.ReplaceAll(name, d.quoteClose, d.quoteClose+d.quoteClose) + d.quoteClose
}

// Placeholder returns the n-th (1-based) positional parameter marker.
func (d Dialect) Placeholder(n int) string {
	switch d.Bind {
	case BindDollar:
		return "$" + strconv.Itoa(n)
	case BindAtP:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// Rebind rewrites the '?' markers of query into this dialect's bind style.
// Markers inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d.Bind == BindQuestion {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == '?' && !inString:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
