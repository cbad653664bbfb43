package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the proxy handshake probe.
const checkProxyTimeout = 2 * time.Second

// Options configures NewHTTPClient.
type Options struct {
	// Timeout caps each request. Zero means no client-level cap; stage
	// contexts still apply.
	Timeout time.Duration

	// ProxyAddress is a SOCKS5 proxy in "host:port" form. Empty means direct.
	ProxyAddress string

	// UserAgent is set on requests that do not carry one.
	UserAgent string

	// Headers are added to every request.
	Headers map[string]string
}

// NewHTTPClient returns an HTTP client for API traffic.
func NewHTTPClient(opts Options) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport

	if opts.ProxyAddress != "" {
		if !isValidProxyAddress(opts.ProxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	var rt http.RoundTripper = transport
	if opts.UserAgent != "" || len(opts.Headers) > 0 {
		rt = &headerInjectingTransport{
			base:      transport,
			userAgent: opts.UserAgent,
			headers:   opts.Headers,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
	}, nil
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// CheckProxy performs a SOCKS5 greeting against address and reports whether
// it accepts unauthenticated clients. No CONNECT is issued.
func CheckProxy(ctx context.Context, address string) error {
	if !isValidProxyAddress(address) {
		return ErrInvalidProxyAddress
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}

	// version 5, one method, "no authentication"
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return ErrProxyNotSOCKS5
	}
	if resp[0] != 0x05 || resp[1] != 0x00 {
		return ErrProxyNotSOCKS5
	}
	return nil
}

// headerInjectingTransport adds fixed headers to every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}

	return t.base.RoundTrip(clone)
}
