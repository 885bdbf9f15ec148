package epubifyer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// defaultMaxResponseBytes caps how much of any single HTTP response body
// is read. 0 means unlimited.
const defaultMaxResponseBytes int64 = 128 * 1024 * 1024

const fetchTimeout = 30 * time.Second

// fetcher performs the outbound HTTP requests for remote images, covers
// and article pages. The default client mimics a browser's TLS
// fingerprint; a custom client replaces it wholesale.
type fetcher struct {
	client       *http.Client
	userAgent    string
	maxBytes     int64
	allowPrivate bool
	maxRetries   uint64
}

func newFetcher() *fetcher {
	return &fetcher{
		userAgent:  defaultUA,
		maxBytes:   defaultMaxResponseBytes,
		maxRetries: 2,
	}
}

func (f *fetcher) httpClient() *http.Client {
	if f.client == nil {
		f.client = newBrowserClient(fetchTimeout, f.allowPrivate)
	}
	return f.client
}

// fetch downloads rawURL and returns the body and the bare media type
// from the Content-Type header (parameters stripped, may be empty).
// Transport errors are retried with exponential backoff; HTTP error
// statuses and oversized bodies are not.
func (f *fetcher) fetch(rawURL string) ([]byte, string, error) {
	var body []byte
	var ctype string

	op := func() error {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("invalid URL %q: %w", rawURL, err))
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")

		resp, err := f.httpClient().Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL))
		}

		data, err := readLimited(resp.Body, f.maxBytes)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("reading %s: %w", rawURL, err))
		}

		body = data
		ctype = bareMediaType(resp.Header.Get("Content-Type"))
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, "", err
	}
	return body, ctype, nil
}

// bareMediaType strips parameters and whitespace from a Content-Type value.
func bareMediaType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// readLimited reads up to limit bytes from r and rejects longer bodies.
// A limit of 0 reads without bound.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	// Read limit+1 bytes so overflow is detectable without a custom reader.
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return data, nil
}

// utlsConn wraps a utls.UConn and satisfies net.Conn + the
// ConnectionState interface that net/http2 needs.
type utlsConn struct {
	*utls.UConn
}

func (c *utlsConn) ConnectionState() tls.ConnectionState {
	cs := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:                    cs.Version,
		HandshakeComplete:          cs.HandshakeComplete,
		CipherSuite:                cs.CipherSuite,
		NegotiatedProtocol:         cs.NegotiatedProtocol,
		NegotiatedProtocolIsMutual: cs.NegotiatedProtocolIsMutual,
		ServerName:                 cs.ServerName,
		PeerCertificates:           cs.PeerCertificates,
		VerifiedChains:             cs.VerifiedChains,
		OCSPResponse:               cs.OCSPResponse,
		TLSUnique:                  cs.TLSUnique,
	}
}

// newBrowserClient creates an HTTP client that mimics a real browser's
// TLS fingerprint using utls. Supports both HTTP/1.1 and HTTP/2.
func newBrowserClient(timeout time.Duration, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}

	rt := &browserTransport{
		dialer:       dialer,
		h1:           &http.Transport{DialContext: safeDialContext(dialer, allowPrivate)},
		h2:           &http2.Transport{},
		allowPrivate: allowPrivate,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}

// browserTransport dials with utls and routes to an HTTP/1.1 or HTTP/2
// transport based on ALPN negotiation.
type browserTransport struct {
	dialer       *net.Dialer
	h1           *http.Transport
	h2           *http2.Transport
	allowPrivate bool
}

func (bt *browserTransport) dialUTLS(ctx context.Context, network, addr string) (net.Conn, string, error) {
	conn, err := safeDialContext(bt.dialer, bt.allowPrivate)(ctx, network, addr)
	if err != nil {
		return nil, "", err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
	}, utls.HelloFirefox_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, "", err
	}

	alpn := tlsConn.ConnectionState().NegotiatedProtocol
	return &utlsConn{tlsConn}, alpn, nil
}

func (bt *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return bt.h1.RoundTrip(req)
	}

	addr := req.URL.Host
	if !hasPort(addr) {
		addr = addr + ":443"
	}

	conn, alpn, err := bt.dialUTLS(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if alpn == "h2" {
		h2conn, err := bt.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return h2conn.RoundTrip(req)
	}

	// For HTTP/1.1, inject the TLS conn into a one-shot transport.
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return conn, nil
		},
	}
	return transport.RoundTrip(req)
}

func hasPort(host string) bool {
	_, _, err := net.SplitHostPort(host)
	return err == nil
}
