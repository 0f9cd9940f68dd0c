package gateway

import "strings"

// Route is a resolved inbound request: the target service and the upstream path
type Route struct {
	Service  ServiceDescriptor
	Path     string // always starts with "/"
	RawQuery string // without the leading "?"
}

// TargetURL joins the service origin, upstream path and query string
func (r Route) TargetURL() string {
	target := r.Service.BaseURL + r.Path
	if r.RawQuery != "" {
		target += "?" + r.RawQuery
	}
	return target
}

// Router maps /{service}/{rest...} onto the service table
type Router struct {
	table   *ServiceTable
	secrets *ProxySecrets
}

// NewRouter creates a router over an immutable table and secrets
func NewRouter(table *ServiceTable, secrets *ProxySecrets) *Router {
	return &Router{table: table, secrets: secrets}
}

// Route resolves an escaped request path. It fails with *UnknownServiceError
// when the first segment names no service and with *ServiceUnavailableError
// when the service's credential is not configured.
func (rt *Router) Route(path, rawQuery string) (Route, error) {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	name := segments[0]

	svc, ok := rt.table.Lookup(name)
	if !ok {
		return Route{}, &UnknownServiceError{Name: name, Available: rt.table.Names()}
	}

	route := Route{
		Service:  svc,
		Path:     "/" + strings.Join(segments[1:], "/"),
		RawQuery: rawQuery,
	}

	if _, ok := rt.secrets.Credential(svc.CredentialName); !ok {
		return Route{}, &ServiceUnavailableError{Service: svc.Name, Credential: svc.CredentialName}
	}

	return route, nil
}
