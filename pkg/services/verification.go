package services

import (
	"context"
	"log"

	"github.com/fovea/waitlist/pkg/clients/mx"
)

// DomainVerifier answers whether a domain can receive mail.
type DomainVerifier interface {
	HasMailExchange(ctx context.Context, domain string) bool
}

// MailDomainVerifier checks for usable MX records. Lookup failures of any
// kind count as "no mail exchange".
type MailDomainVerifier struct {
	client mx.Client
}

func NewMailDomainVerifier(client mx.Client) *MailDomainVerifier {
	return &MailDomainVerifier{client: client}
}

func (v *MailDomainVerifier) HasMailExchange(ctx context.Context, domain string) bool {
	if domain == "" {
		return false
	}

	records, err := v.client.LookupMX(ctx, domain)
	if err != nil {
		log.Printf("MX lookup failed for %s: %v", domain, err)
		return false
	}

	// A lone "." host is a null MX: the domain explicitly accepts no mail.
	for _, r := range records {
		if r.Host != "" && r.Host != "." {
			return true
		}
	}
	log.Printf("Domain %s publishes a null MX", domain)
	return false
}
