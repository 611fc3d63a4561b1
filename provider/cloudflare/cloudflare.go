package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudflare/cloudflare-go"

	"github.com/evanofslack/ddns-sync/metrics"
	"github.com/evanofslack/ddns-sync/provider"
)

const defaultRequestTimeout = 30 * time.Second

// CloudflareProvider manages DNS records in a single Cloudflare zone through
// the v4 API. Every request is bounded by a per-call timeout; a timeout
// surfaces as an ordinary provider error and is retried on the next pass.
type CloudflareProvider struct {
	client  *cloudflare.API
	timeout time.Duration
	metrics *metrics.Metrics
}

func New(token string, m *metrics.Metrics, opts ...cloudflare.Option) (*CloudflareProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}

	client, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create cloudflare client: %w", err)
	}

	return &CloudflareProvider{
		client:  client,
		timeout: defaultRequestTimeout,
		metrics: m,
	}, nil
}

func (p *CloudflareProvider) FindRecord(ctx context.Context, zone, name, recordType string) (*provider.Record, error) {
	slog.Debug("Looking up DNS record", "zone", zone, "name", name, "type", recordType)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := cloudflare.ListDNSRecordsParams{
		Name: name,
		Type: recordType,
	}

	records, _, err := p.client.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zone), params)
	if err != nil {
		p.metrics.IncProviderRequest("read", false)
		return nil, fmt.Errorf("list DNS records: %w", classify(err))
	}
	p.metrics.IncProviderRequest("read", true)

	if len(records) == 0 {
		return nil, nil
	}
	if len(records) > 1 {
		slog.Warn("Multiple records match, using first",
			"zone", zone, "name", name, "type", recordType, "count", len(records))
	}

	r := records[0]
	rec := &provider.Record{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		TTL:     r.TTL,
	}
	if r.Proxied != nil {
		rec.Proxied = *r.Proxied
	}
	return rec, nil
}

func (p *CloudflareProvider) CreateRecord(ctx context.Context, zone string, record provider.Record) error {
	slog.Info("Creating DNS record",
		"zone", zone, "name", record.Name, "type", record.Type, "content", record.Content)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := cloudflare.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     record.TTL,
		Proxied: cloudflare.BoolPtr(record.Proxied),
	}

	if _, err := p.client.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zone), params); err != nil {
		p.metrics.IncProviderRequest("create", false)
		return fmt.Errorf("create DNS record: %w", classify(err))
	}

	p.metrics.IncProviderRequest("create", true)
	return nil
}

func (p *CloudflareProvider) UpdateRecord(ctx context.Context, zone string, record provider.Record) error {
	slog.Info("Updating DNS record",
		"zone", zone, "name", record.Name, "type", record.Type, "content", record.Content)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     record.TTL,
		Proxied: cloudflare.BoolPtr(record.Proxied),
	}

	if _, err := p.client.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zone), params); err != nil {
		p.metrics.IncProviderRequest("update", false)
		return fmt.Errorf("update DNS record: %w", classify(err))
	}

	p.metrics.IncProviderRequest("update", true)
	return nil
}

// classify maps credential rejections onto provider.ErrAuthentication so the
// engine can report them distinctly. The API's own error text, including its
// structured error list, rides along untouched.
func classify(err error) error {
	var authnErr *cloudflare.AuthenticationError
	var authzErr *cloudflare.AuthorizationError
	if errors.As(err, &authnErr) || errors.As(err, &authzErr) {
		return fmt.Errorf("%w: %w", provider.ErrAuthentication, err)
	}
	return err
}
