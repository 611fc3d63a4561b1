package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/evanofslack/ddns-sync/metrics"
	"github.com/evanofslack/ddns-sync/provider"
	"github.com/evanofslack/ddns-sync/resolver"
	"github.com/evanofslack/ddns-sync/state"
)

type AddressResolver interface {
	Resolve(ctx context.Context, version resolver.Version) (resolver.ResolvedAddress, error)
}

// Settings are the process-wide record attributes shared by all targets.
// Immutable for the lifetime of the engine.
type Settings struct {
	Zone    string
	TTL     int
	Proxied bool
}

type Engine interface {
	RunPass(ctx context.Context, targets []Target) Results
}

type engine struct {
	resolver AddressResolver
	provider provider.Provider
	history  state.Manager
	settings Settings
	metrics  *metrics.Metrics
}

func NewEngine(r AddressResolver, p provider.Provider, h state.Manager, settings Settings, metrics *metrics.Metrics) *engine {
	return &engine{
		resolver: r,
		provider: p,
		history:  h,
		settings: settings,
		metrics:  metrics,
	}
}

// RunPass resolves the public address once per record type present among the
// targets, then reconciles each target sequentially in the given order. No
// target's failure stops the others; every target gets an outcome.
func (e *engine) RunPass(ctx context.Context, targets []Target) Results {
	results := make(Results, len(targets))

	addresses := make(map[string]string)
	resolveErrs := make(map[string]error)
	for _, version := range versionsNeeded(targets) {
		resolved, err := e.resolver.Resolve(ctx, version)
		if err != nil {
			slog.Error("Failed to resolve public address", "version", version, "error", err)
			resolveErrs[recordType(version)] = err
			continue
		}
		slog.Info("Resolved public address",
			"version", version, "address", resolved.Addr, "source", resolved.Source)
		addresses[recordType(version)] = resolved.Addr.String()
	}

	for i, target := range targets {
		// Shutdown is honored between targets; in-flight calls finish,
		// remaining targets are not attempted.
		if err := ctx.Err(); err != nil {
			for _, remaining := range targets[i:] {
				results[remaining] = Outcome{Kind: Failed, Err: err}
			}
			break
		}

		if err, ok := resolveErrs[target.Type]; ok {
			results[target] = Outcome{Kind: Failed, Err: err}
		} else {
			results[target] = e.reconcileTarget(ctx, target, addresses[target.Type])
		}

		outcome := results[target]
		e.metrics.IncRecordOutcome(string(outcome.Kind))
		e.report(ctx, target, outcome)
	}
	return results
}

func (e *engine) reconcileTarget(ctx context.Context, target Target, address string) Outcome {
	existing, err := e.provider.FindRecord(ctx, e.settings.Zone, target.Domain, target.Type)
	if err != nil {
		return Outcome{Kind: Failed, Err: err}
	}

	desired := provider.Record{
		Name:    target.Domain,
		Type:    target.Type,
		Content: address,
		TTL:     e.settings.TTL,
		Proxied: e.settings.Proxied,
	}

	if existing == nil {
		if err := e.provider.CreateRecord(ctx, e.settings.Zone, desired); err != nil {
			return Outcome{Kind: Failed, Err: err}
		}
		return Outcome{Kind: Created, New: address}
	}

	current := strings.TrimSpace(existing.Content)
	if current == address {
		// Skip the write entirely to spare the provider's rate limits.
		return Outcome{Kind: Unchanged, New: address}
	}

	desired.ID = existing.ID
	if err := e.provider.UpdateRecord(ctx, e.settings.Zone, desired); err != nil {
		return Outcome{Kind: Failed, Err: err}
	}
	return Outcome{Kind: Updated, Old: current, New: address}
}

func (e *engine) report(ctx context.Context, target Target, outcome Outcome) {
	switch outcome.Kind {
	case Unchanged:
		slog.Info("Record up to date", "domain", target.Domain, "type", target.Type, "content", outcome.New)
	case Updated:
		slog.Info("Record updated",
			"domain", target.Domain, "type", target.Type, "old", outcome.Old, "new", outcome.New)
	case Created:
		slog.Info("Record created", "domain", target.Domain, "type", target.Type, "content", outcome.New)
	case Failed:
		slog.Error("Record reconciliation failed",
			"domain", target.Domain, "type", target.Type, "error", outcome.Err)
	}

	if e.history == nil || (outcome.Kind != Updated && outcome.Kind != Created) {
		return
	}
	event := state.Event{
		Domain: target.Domain,
		Type:   target.Type,
		Old:    outcome.Old,
		New:    outcome.New,
		Op:     string(outcome.Kind),
		Time:   time.Now().Unix(),
	}
	if err := e.history.RecordEvent(ctx, event); err != nil {
		slog.Warn("Failed to record change history", "domain", target.Domain, "error", err)
	}
}

// versionsNeeded returns the distinct IP versions required by the target set,
// in first-appearance order.
func versionsNeeded(targets []Target) []resolver.Version {
	var versions []resolver.Version
	seen := make(map[resolver.Version]bool)
	for _, t := range targets {
		v := ipVersion(t.Type)
		if !seen[v] {
			seen[v] = true
			versions = append(versions, v)
		}
	}
	return versions
}

func ipVersion(recordType string) resolver.Version {
	if recordType == "AAAA" {
		return resolver.IPv6
	}
	return resolver.IPv4
}

func recordType(version resolver.Version) string {
	if version == resolver.IPv6 {
		return "AAAA"
	}
	return "A"
}
