package gateway

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/oaustegard/cf-api-gateway/pkg/shared/logging"
)

const copyBufferSize = 32 * 1024

// errStreamedBodyRedirect is reported when the upstream asks to replay a
// request body that was streamed and cannot be sent again
var errStreamedBodyRedirect = errors.New("cannot follow redirect with streamed request body")

// Forwarder sends routed requests upstream and streams the responses back
type Forwarder struct {
	client  *http.Client
	secrets *ProxySecrets
	logger  logging.Logger
	buffers *bufferPool
}

// NewForwarder creates a forwarder. A nil client means a client with the
// default transport and redirect policy and no timeout.
func NewForwarder(client *http.Client, secrets *ProxySecrets, logger logging.Logger) *Forwarder {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = logging.NewSimpleLogger("forwarder", logging.LevelInfo, true)
	}
	return &Forwarder{
		client:  client,
		secrets: secrets,
		logger:  logger,
		buffers: newBufferPool(),
	}
}

// NewUpstreamRequest builds the outbound request for route from the inbound request r.
// Authorization and Host are never forwarded; the service credential is injected instead.
// GET and HEAD requests are sent without a body.
func (f *Forwarder) NewUpstreamRequest(r *http.Request, route Route) (*http.Request, error) {
	var body io.Reader = http.NoBody
	contentLength := int64(0)
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil && r.ContentLength != 0 {
		body = r.Body
		contentLength = r.ContentLength
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, route.TargetURL(), body)
	if err != nil {
		return nil, err
	}
	out.ContentLength = contentLength

	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	out.Header.Del("Authorization")
	out.Header.Del("Host")
	route.Service.InjectCredentials(out.Header, f.secrets)

	return out, nil
}

// Forward issues the upstream call and relays status, headers and body.
// A transport failure is returned as *UpstreamError before anything is written to w.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, route Route) error {
	out, err := f.NewUpstreamRequest(r, route)
	if err != nil {
		return &UpstreamError{Service: route.Service.Name, Err: err}
	}

	resp, err := f.client.Do(out)
	if err != nil {
		return &UpstreamError{Service: route.Service.Name, Err: err}
	}
	if unfollowedRedirect(resp, out) {
		_ = resp.Body.Close()
		return &UpstreamError{Service: route.Service.Name, Err: errStreamedBodyRedirect}
	}
	defer func() { _ = resp.Body.Close() }()

	header := w.Header()
	for key, values := range resp.Header {
		header[key] = append([]string(nil), values...)
	}
	header.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(resp.StatusCode)

	if _, err := f.copyBody(w, resp.Body); err != nil {
		// Status is already sent; the caller sees a truncated body.
		f.logger.Warn("Response relay interrupted", "service", route.Service.Name, "error", err)
	}
	return nil
}

// unfollowedRedirect reports a 307/308 the client handed back because the
// streamed request body could not be replayed
func unfollowedRedirect(resp *http.Response, out *http.Request) bool {
	if resp.StatusCode != http.StatusTemporaryRedirect && resp.StatusCode != http.StatusPermanentRedirect {
		return false
	}
	if resp.Header.Get("Location") == "" {
		return false
	}
	return out.Body != nil && out.Body != http.NoBody && out.GetBody == nil
}

// copyBody streams src to w, flushing after every chunk so SSE events reach the caller promptly
func (f *Forwarder) copyBody(w http.ResponseWriter, src io.Reader) (int64, error) {
	buf := f.buffers.Get()
	defer f.buffers.Put(buf)

	rc := http.NewResponseController(w)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, err
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// bufferPool reuses 32KB copy buffers across requests
type bufferPool struct {
	pool sync.Pool
}

func newBufferPool() *bufferPool {
	return &bufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, copyBufferSize)
				return &b
			},
		},
	}
}

func (bp *bufferPool) Get() []byte {
	return *bp.pool.Get().(*[]byte)
}

func (bp *bufferPool) Put(b []byte) {
	// Only pool buffers of the expected size
	if cap(b) != copyBufferSize {
		return
	}
	b = b[:cap(b)]
	bp.pool.Put(&b)
}
