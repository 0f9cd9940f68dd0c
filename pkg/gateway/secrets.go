package gateway

import (
	"fmt"
	"sort"
	"strings"
)

// ProxyTokenName is the default name of the shared inbound credential
const ProxyTokenName = "PROXY_TOKEN"

// ProxySecrets holds the shared proxy token and the upstream credentials.
// It is immutable after construction and safe for concurrent use.
type ProxySecrets struct {
	proxyToken  string
	credentials map[string]string
}

// NewProxySecrets copies credentials (keyed by credential name) into a new value
func NewProxySecrets(proxyToken string, credentials map[string]string) *ProxySecrets {
	creds := make(map[string]string, len(credentials))
	for name, value := range credentials {
		creds[name] = value
	}
	return &ProxySecrets{proxyToken: proxyToken, credentials: creds}
}

// ProxyToken returns the shared token callers must present
func (s *ProxySecrets) ProxyToken() string {
	if s == nil {
		return ""
	}
	return s.proxyToken
}

// Credential returns the named upstream credential; ok is false when it is unset or empty
func (s *ProxySecrets) Credential(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	value := s.credentials[name]
	return value, value != ""
}

// MissingCredentials lists the table's credential names that are not configured
func (s *ProxySecrets) MissingCredentials(table *ServiceTable) []string {
	var missing []string
	for _, name := range table.CredentialNames() {
		if _, ok := s.Credential(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// String never reveals secret values
func (s *ProxySecrets) String() string {
	if s == nil {
		return "ProxySecrets(nil)"
	}
	names := make([]string, 0, len(s.credentials))
	for name, value := range s.credentials {
		state := "unset"
		if value != "" {
			state = "set"
		}
		names = append(names, name+"="+state)
	}
	sort.Strings(names)

	token := "unset"
	if s.proxyToken != "" {
		token = "set"
	}
	return fmt.Sprintf("ProxySecrets(proxy_token=%s %s)", token, strings.Join(names, " "))
}
