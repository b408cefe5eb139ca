package dialect

import "strings"

// Rule derives a dialect key from a database type name. resolve re-enters
// the full rule table, for rules that reduce a name and start over.
type Rule struct {
	Name  string
	Apply func(typeName string, resolve func(string) string) (key string, ok bool)
}

// AliasRule maps type names whose canonical dialect has a different name.
func AliasRule(aliases map[string]string) Rule {
	return Rule{
		Name: "alias",
		Apply: func(typeName string, _ func(string) string) (string, bool) {
			key, ok := aliases[typeName]
			return key, ok
		},
	}
}

// CompoundRule strips a "+driver" suffix and resolves the vendor part.
func CompoundRule() Rule {
	return Rule{
		Name: "compound",
		Apply: func(typeName string, resolve func(string) string) (string, bool) {
			vendor, _, ok := strings.Cut(typeName, "+")
			if !ok {
				return "", false
			}
			return resolve(vendor), true
		},
	}
}

// FamilyRule maps any type name containing a vendor substring to its dialect.
// Families are checked in slice order.
func FamilyRule(families [][2]string) Rule {
	return Rule{
		Name: "family",
		Apply: func(typeName string, _ func(string) string) (string, bool) {
			for _, f := range families {
				if strings.Contains(typeName, f[0]) {
					return f[1], true
				}
			}
			return "", false
		},
	}
}

// VerbatimRule uses the type name itself as the dialect key.
func VerbatimRule() Rule {
	return Rule{
		Name: "verbatim",
		Apply: func(typeName string, _ func(string) string) (string, bool) {
			return typeName, true
		},
	}
}

// DefaultRules is the rule table used by NewDefaultResolver.
func DefaultRules() []Rule {
	return []Rule{
		AliasRule(map[string]string{
			string(TypeSQLServer): "tsql",
			string(TypeMemory):    "sqlite",
		}),
		CompoundRule(),
		FamilyRule([][2]string{
			{"postgres", "postgres"},
			{"sqlserver", "tsql"},
			{"maria", "mysql"},
		}),
		VerbatimRule(),
	}
}

// DeriveKey runs typeName through rules and returns the first match.
// It returns "" when no rule matches.
func DeriveKey(rules []Rule, typeName string) string {
	var resolve func(string) string
	resolve = func(name string) string {
		for _, r := range rules {
			if key, ok := r.Apply(name, resolve); ok {
				return key
			}
		}
		return ""
	}
	return resolve(typeName)
}
