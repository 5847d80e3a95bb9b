package mx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// ErrNoRecords is returned when the domain exists but publishes no MX records,
// or when the nameserver answers NXDOMAIN.
var ErrNoRecords = errors.New("no MX records found")

// Client defines the interface for resolving mail-exchange records
type Client interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

type systemClient struct {
	resolver *net.Resolver
}

// NewSystemClient creates a client backed by the host's resolver configuration
func NewSystemClient() Client {
	return &systemClient{resolver: net.DefaultResolver}
}

func (c *systemClient) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	records, err := c.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoRecords, domain)
		}
		return nil, fmt.Errorf("error resolving MX for %s: %w", domain, err)
	}
	return sortRecords(records, domain)
}

type clientImpl struct {
	client *dns.Client
	server string
}

// NewClient creates a client that queries the given nameserver directly.
// A server without a port uses 53.
func NewClient(server string, timeout time.Duration) Client {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &clientImpl{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
	}
}

func (c *clientImpl) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	if _, ok := dns.IsDomainName(domain); !ok {
		return nil, fmt.Errorf("invalid domain name: %q", domain)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	resp, _, err := c.client.ExchangeContext(ctx, msg, c.server)
	if err != nil {
		return nil, fmt.Errorf("error querying %s for MX of %s: %w", c.server, domain, err)
	}
	// Retry over TCP when the UDP answer was cut short.
	if resp.Truncated {
		tcp := &dns.Client{Net: "tcp", Timeout: c.client.Timeout}
		resp, _, err = tcp.ExchangeContext(ctx, msg, c.server)
		if err != nil {
			return nil, fmt.Errorf("error querying %s over tcp for MX of %s: %w", c.server, domain, err)
		}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, fmt.Errorf("%w: %s", ErrNoRecords, domain)
	default:
		return nil, fmt.Errorf("nameserver %s answered %s for %s", c.server, dns.RcodeToString[resp.Rcode], domain)
	}

	var records []*net.MX
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			records = append(records, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	return sortRecords(records, domain)
}

// sortRecords orders records by preference and strips the trailing root dot.
func sortRecords(records []*net.MX, domain string) ([]*net.MX, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecords, domain)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})
	for _, r := range records {
		if r.Host != "." {
			r.Host = strings.TrimSuffix(r.Host, ".")
		}
	}
	return records, nil
}
