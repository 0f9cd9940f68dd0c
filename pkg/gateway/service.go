// Package gateway implements the authenticating reverse proxy in front of the
// upstream AI APIs: bearer-token check, first-segment service routing and
// credential-injecting forwarding.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AuthKind selects how a service's credential is attached to outbound requests
type AuthKind int

const (
	// AuthGoogleAPIKey sets X-goog-api-key (Gemini)
	AuthGoogleAPIKey AuthKind = iota + 1
	// AuthBearer sets Authorization: Bearer (OpenAI)
	AuthBearer
	// AuthAnthropic sets x-api-key and anthropic-version (Anthropic)
	AuthAnthropic
)

// DefaultAnthropicVersion is sent as anthropic-version unless a service overrides it
const DefaultAnthropicVersion = "2023-06-01"

var authKindNames = map[AuthKind]string{
	AuthGoogleAPIKey: "google_api_key",
	AuthBearer:       "bearer",
	AuthAnthropic:    "anthropic",
}

// String returns the configuration name of the kind
func (k AuthKind) String() string {
	if name, ok := authKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("AuthKind(%d)", int(k))
}

// ParseAuthKind parses a configuration name ("google_api_key", "bearer", "anthropic")
func ParseAuthKind(s string) (AuthKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for kind, n := range authKindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAuthKind, s)
}

var (
	// ErrServiceNameRequired is returned when a service has no name
	ErrServiceNameRequired = errors.New("service name is required")
	// ErrServiceNameInvalid is returned when a service name cannot be a single path segment
	ErrServiceNameInvalid = errors.New("service name must not contain '/'")
	// ErrDuplicateService is returned when two services share a name
	ErrDuplicateService = errors.New("duplicate service name")
	// ErrInvalidBaseURL is returned when a base URL is not a bare http(s) origin
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) origin without path")
	// ErrCredentialNameRequired is returned when a service names no credential
	ErrCredentialNameRequired = errors.New("credential name is required")
	// ErrUnknownAuthKind is returned for an unsupported credential scheme
	ErrUnknownAuthKind = errors.New("unknown auth kind")
	// ErrNoServices is returned when a service table would be empty
	ErrNoServices = errors.New("at least one service is required")
)

// ServiceDescriptor describes one upstream API reachable under /{Name}/...
type ServiceDescriptor struct {
	Name             string
	BaseURL          string
	Auth             AuthKind
	CredentialName   string // secret holding the upstream key, e.g. OPENAI_API_KEY
	AnthropicVersion string // AuthAnthropic only; empty means DefaultAnthropicVersion
}

// Validate checks the descriptor invariants
func (d ServiceDescriptor) Validate() error {
	if d.Name == "" {
		return ErrServiceNameRequired
	}
	if strings.Contains(d.Name, "/") {
		return fmt.Errorf("%w: %q", ErrServiceNameInvalid, d.Name)
	}
	if err := validateBaseURL(d.BaseURL); err != nil {
		return fmt.Errorf("service %s: %w", d.Name, err)
	}
	if _, ok := authKindNames[d.Auth]; !ok {
		return fmt.Errorf("service %s: %w: %v", d.Name, ErrUnknownAuthKind, d.Auth)
	}
	if d.CredentialName == "" {
		return fmt.Errorf("service %s: %w", d.Name, ErrCredentialNameRequired)
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return nil
}

// InjectCredentials sets the upstream auth header(s) for this service.
// The credential is read from secrets under the service's own CredentialName only.
func (d ServiceDescriptor) InjectCredentials(h http.Header, secrets *ProxySecrets) {
	key, _ := secrets.Credential(d.CredentialName)

	switch d.Auth {
	case AuthGoogleAPIKey:
		h.Set("X-goog-api-key", key)
	case AuthBearer:
		h.Set("Authorization", "Bearer "+key)
	case AuthAnthropic:
		version := d.AnthropicVersion
		if version == "" {
			version = DefaultAnthropicVersion
		}
		h.Set("x-api-key", key)
		h.Set("anthropic-version", version)
	}
}

// DefaultServices returns the reference service table: gemini, openai, anthropic
func DefaultServices() []ServiceDescriptor {
	return []ServiceDescriptor{
		{
			Name:           "gemini",
			BaseURL:        "https://generativelanguage.googleapis.com",
			Auth:           AuthGoogleAPIKey,
			CredentialName: "GEMINI_API_KEY",
		},
		{
			Name:           "openai",
			BaseURL:        "https://api.openai.com",
			Auth:           AuthBearer,
			CredentialName: "OPENAI_API_KEY",
		},
		{
			Name:             "anthropic",
			BaseURL:          "https://api.anthropic.com",
			Auth:             AuthAnthropic,
			CredentialName:   "ANTHROPIC_API_KEY",
			AnthropicVersion: DefaultAnthropicVersion,
		},
	}
}

// ServiceTable is an immutable, ordered set of services keyed by name
type ServiceTable struct {
	services []ServiceDescriptor
	index    map[string]int
}

// NewServiceTable validates the descriptors and builds a table in declaration order
func NewServiceTable(services ...ServiceDescriptor) (*ServiceTable, error) {
	if len(services) == 0 {
		return nil, ErrNoServices
	}

	t := &ServiceTable{
		services: make([]ServiceDescriptor, 0, len(services)),
		index:    make(map[string]int, len(services)),
	}
	for _, svc := range services {
		if err := svc.Validate(); err != nil {
			return nil, err
		}
		if _, exists := t.index[svc.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateService, svc.Name)
		}
		svc.BaseURL = strings.TrimSuffix(svc.BaseURL, "/")
		t.index[svc.Name] = len(t.services)
		t.services = append(t.services, svc)
	}
	return t, nil
}

// DefaultServiceTable returns the reference table
func DefaultServiceTable() *ServiceTable {
	t, err := NewServiceTable(DefaultServices()...)
	if err != nil {
		panic(fmt.Sprintf("gateway: invalid default service table: %v", err))
	}
	return t
}

// Lookup finds a service by exact, case-sensitive name
func (t *ServiceTable) Lookup(name string) (ServiceDescriptor, bool) {
	i, ok := t.index[name]
	if !ok {
		return ServiceDescriptor{}, false
	}
	return t.services[i], true
}

// Names returns the service names in declaration order
func (t *ServiceTable) Names() []string {
	names := make([]string, len(t.services))
	for i, svc := range t.services {
		names[i] = svc.Name
	}
	return names
}

// Services returns a copy of the descriptors in declaration order
func (t *ServiceTable) Services() []ServiceDescriptor {
	return append([]ServiceDescriptor(nil), t.services...)
}

// CredentialNames returns the distinct credential names in declaration order
func (t *ServiceTable) CredentialNames() []string {
	seen := make(map[string]bool, len(t.services))
	names := make([]string, 0, len(t.services))
	for _, svc := range t.services {
		if !seen[svc.CredentialName] {
			seen[svc.CredentialName] = true
			names = append(names, svc.CredentialName)
		}
	}
	return names
}
