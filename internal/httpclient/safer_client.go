// Package httpclient is the HTTP transport shared by the resource fetcher
// and the action dispatcher. It refuses schemes other than http(s) and,
// when asked, refuses to dial loopback, private and link-local addresses
// so a hostile api.base_url or redirect cannot reach internal services.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/hirepanel/errors"
)

// Options configures a SaferClient
type Options struct {
	Timeout time.Duration
	// BlockPrivateIP rejects loopback and private destinations. Off by
	// default because the API usually runs on localhost during development.
	BlockPrivateIP bool
	MaxRedirects   int
}

// SaferClient wraps http.Client with destination checks
type SaferClient struct {
	*http.Client
	blockPrivateIP bool
	maxRedirects   int
}

// New creates a client from opts
func New(opts Options) *SaferClient {
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 10
	}

	c := &SaferClient{
		Client:         &http.Client{Timeout: opts.Timeout},
		blockPrivateIP: opts.BlockPrivateIP,
		maxRedirects:   opts.MaxRedirects,
	}

	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		if err := c.check(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		// the Authorization header must not follow a redirect to another host
		if len(via) > 0 && req.URL.Host != via[0].URL.Host {
			req.Header.Del("Authorization")
		}
		return nil
	}

	if c.blockPrivateIP {
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		c.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, a := range addrs {
					if IsPrivate(a) {
						return nil, errors.Newf("private address blocked: %s", a)
					}
				}
				return dialer.DialContext(ctx, network, addr)
			},
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	return c
}

// Wrap adapts an existing client (httptest servers) without private
// address blocking
func Wrap(client *http.Client) *SaferClient {
	return &SaferClient{Client: client, maxRedirects: 10}
}

func (c *SaferClient) check(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return errors.Newf("scheme %q not allowed", u.Scheme)
	}
	if u.User != nil {
		return errors.New("URL must not carry credentials")
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("URL missing hostname")
	}
	if !c.blockPrivateIP {
		return nil
	}
	if isLocalhost(host) {
		return errors.New("localhost access blocked")
	}
	if a, err := netip.ParseAddr(host); err == nil && IsPrivate(a) {
		return errors.Newf("private address blocked: %s", host)
	}
	return nil
}

// ValidateURL parses and checks raw
func (c *SaferClient) ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.check(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Do checks the request URL and sends it
func (c *SaferClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.check(req.URL); err != nil {
		return nil, errors.Wrap(err, "request blocked")
	}
	return c.Client.Do(req)
}

var documentation = netip.MustParsePrefix("2001:db8::/32")

// IsPrivate reports loopback, RFC 1918 / unique-local, link-local,
// multicast, unspecified and reserved addresses
func IsPrivate(a netip.Addr) bool {
	a = a.Unmap()
	if a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() ||
		a.IsMulticast() || a.IsUnspecified() || a.IsInterfaceLocalMulticast() {
		return true
	}
	if a.Is4() {
		b := a.As4()
		// 0.0.0.0/8 and 240.0.0.0/4
		return b[0] == 0 || b[0] >= 240
	}
	// deprecated site-local fec0::/10
	b := a.As16()
	if b[0] == 0xfe && b[1]&0xc0 == 0xc0 {
		return true
	}
	return documentation.Contains(a)
}

func isLocalhost(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" || host == "localhost.localdomain" || strings.HasSuffix(host, ".localhost")
}
