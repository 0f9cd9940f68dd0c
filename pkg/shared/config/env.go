package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} or ${VAR:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// LookupFunc resolves a variable name. ok reports whether the variable is set.
type LookupFunc func(name string) (value string, ok bool)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references using the process environment.
//
//	input := "base_url: ${OPENAI_BASE_URL:-https://api.openai.com}"
//	// OPENAI_BASE_URL unset -> "base_url: https://api.openai.com"
func ExpandEnv(input string) string {
	return Expand(input, os.LookupEnv)
}

// Expand replaces variable references using lookup.
// A variable that is unset or empty takes its default, or "" when it has none.
func Expand(input string, lookup LookupFunc) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 4 {
			return match
		}

		if value, ok := lookup(parts[1]); ok && value != "" {
			return value
		}
		if parts[2] != "" {
			return parts[3]
		}
		return ""
	})
}

// ExpandEnvBytes expands file contents before YAML/JSON unmarshaling
func ExpandEnvBytes(input []byte) []byte {
	return []byte(ExpandEnv(string(input)))
}

// ExpandBytes is Expand for file contents
func ExpandBytes(input []byte, lookup LookupFunc) []byte {
	return []byte(Expand(string(input), lookup))
}

// Reference is one ${VAR} occurrence in a config file
type Reference struct {
	Name       string
	HasDefault bool
}

// References lists the distinct variables referenced in input, in order of first use.
// A variable counts as defaulted if any of its references carries a default.
func References(input string) []Reference {
	var refs []Reference
	index := make(map[string]int)

	for _, match := range envVarPattern.FindAllStringSubmatch(input, -1) {
		name := match[1]
		hasDefault := match[2] != ""
		if i, seen := index[name]; seen {
			refs[i].HasDefault = refs[i].HasDefault || hasDefault
			continue
		}
		index[name] = len(refs)
		refs = append(refs, Reference{Name: name, HasDefault: hasDefault})
	}

	return refs
}

// MissingVars returns the referenced variables that have no default and
// resolve to an empty value through lookup
func MissingVars(input string, lookup LookupFunc) []string {
	missing := make([]string, 0)
	for _, ref := range References(input) {
		if ref.HasDefault {
			continue
		}
		if value, ok := lookup(ref.Name); !ok || value == "" {
			missing = append(missing, ref.Name)
		}
	}
	return missing
}
