package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vendix/platform/internal/events"
	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/store"
)

// Verification pre-condition errors. DNS lookup failures are never errors;
// they are folded into the per-check results.
var (
	// ErrNotVerifiable is returned when the domain type is not externally
	// DNS-controlled.
	ErrNotVerifiable = errors.New("domain type is not verifiable")

	// ErrInvalidCheck is returned for an unknown check selector.
	ErrInvalidCheck = errors.New("invalid DNS check")
)

// CheckKind selects a DNS check to run.
type CheckKind string

const (
	CheckTXT   CheckKind = "txt"
	CheckCNAME CheckKind = "cname"
	CheckA     CheckKind = "a"
	CheckAAAA  CheckKind = "aaaa"
)

// checkOrder is the canonical reporting order.
var checkOrder = []CheckKind{CheckTXT, CheckCNAME, CheckA, CheckAAAA}

// DefaultChecks is the check set used when the caller specifies none.
var DefaultChecks = []CheckKind{CheckTXT, CheckCNAME}

// ErrCodeDNSCheckFailed marks a verify result whose required checks did not
// all pass. It is data, not an exception: failed DNS is an expected,
// user-actionable outcome.
const ErrCodeDNSCheckFailed = "DNS_CHECK_FAILED"

// Next actions signaled by a verify result.
const (
	// NextActionNone means nothing is pending for the caller.
	NextActionNone = "none"
	// NextActionIssueCertificate tells the certificate pipeline to pick the
	// domain up; the verifier itself never advances past pending_ssl.
	NextActionIssueCertificate = "issue_certificate"
)

// CheckResult is the outcome of a single DNS check.
type CheckResult struct {
	Kind     CheckKind `json:"kind"`
	Passed   bool      `json:"passed"`
	Required bool      `json:"required"`
	Expected string    `json:"expected,omitempty"`
	Found    []string  `json:"found,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Options tune a single verification call.
type Options struct {
	// Checks selects the checks to run; empty means DefaultChecks.
	Checks []CheckKind
	// ExpectedCNAME overrides the platform edge target for the cname check.
	ExpectedCNAME string
	// ExpectedA overrides the platform ingress allow-list for the a check.
	ExpectedA []string
	// Force re-runs checks even for an active domain.
	Force bool
}

// Result is the structured diagnostic returned by every verification call.
type Result struct {
	Hostname       string                    `json:"hostname"`
	StatusBefore   models.DomainStatus       `json:"statusBefore"`
	StatusAfter    models.DomainStatus       `json:"statusAfter"`
	SSLStatus      models.SSLStatus          `json:"sslStatus"`
	Verified       bool                      `json:"verified"`
	NextAction     string                    `json:"nextAction"`
	Checks         map[CheckKind]CheckResult `json:"checks"`
	SuggestedFixes []string                  `json:"suggestedFixes"`
	ErrorCode      string                    `json:"errorCode,omitempty"`
	CheckedAt      time.Time                 `json:"checkedAt"`
}

// Verifier runs DNS ownership and routing checks against domain records and
// drives the pending_dns / failed_dns / pending_ssl lifecycle.
type Verifier struct {
	store      store.Store
	resolver   Resolver
	channel    events.Channel
	edgeCNAME  string
	ingressIPs []string
	logger     *slog.Logger
}

// NewVerifier creates a Verifier. edgeCNAME is the platform edge target
// external domains must point at; ingressIPs is the A-record allow-list.
func NewVerifier(st store.Store, resolver Resolver, channel events.Channel, edgeCNAME string, ingressIPs []string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		store:      st,
		resolver:   resolver,
		channel:    channel,
		edgeCNAME:  models.NormalizeHostname(edgeCNAME),
		ingressIPs: ingressIPs,
		logger:     logger,
	}
}

// Verify runs the requested checks for hostname and applies the resulting
// status transition. Every requested check runs to completion so the caller
// gets a full diagnostic, not a fastest rejection.
func (v *Verifier) Verify(ctx context.Context, hostname string, opts Options) (*Result, error) {
	hostname = models.NormalizeHostname(hostname)

	record, err := v.store.Domains().GetByHostname(ctx, hostname)
	if err != nil {
		return nil, err
	}
	if !record.Verifiable() {
		return nil, fmt.Errorf("%w: %s", ErrNotVerifiable, record.DomainType)
	}

	// An already-active domain needs no lookups unless the caller forces a
	// re-check.
	if record.Status == models.StatusActive && !opts.Force {
		return &Result{
			Hostname:       hostname,
			StatusBefore:   record.Status,
			StatusAfter:    record.Status,
			SSLStatus:      record.SSLStatus,
			Verified:       true,
			NextAction:     NextActionNone,
			Checks:         map[CheckKind]CheckResult{},
			SuggestedFixes: []string{},
			CheckedAt:      time.Now().UTC(),
		}, nil
	}

	kinds, err := normalizeChecks(opts.Checks)
	if err != nil {
		return nil, err
	}

	expectedCNAME := v.edgeCNAME
	if opts.ExpectedCNAME != "" {
		expectedCNAME = models.NormalizeHostname(opts.ExpectedCNAME)
	}
	expectedA := v.ingressIPs
	if len(opts.ExpectedA) > 0 {
		expectedA = opts.ExpectedA
	}

	// The checks are independent of one another; run them concurrently and
	// aggregate afterwards.
	results := make(map[CheckKind]CheckResult, len(kinds))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, kind := range kinds {
		wg.Add(1)
		go func(kind CheckKind) {
			defer wg.Done()
			res := v.runCheck(ctx, kind, record, expectedCNAME, expectedA)
			mu.Lock()
			results[kind] = res
			mu.Unlock()
		}(kind)
	}
	wg.Wait()

	allPassed := true
	var fixes []string
	for _, kind := range checkOrder {
		res, ok := results[kind]
		if !ok || !res.Required {
			continue
		}
		if !res.Passed {
			allPassed = false
			fixes = append(fixes, v.suggestedFix(kind, record, expectedCNAME, expectedA))
		}
	}

	statusBefore := record.Status
	statusAfter := statusBefore
	nextAction := NextActionNone
	switch {
	case allPassed && (statusBefore == models.StatusPendingDNS || statusBefore == models.StatusFailedDNS):
		statusAfter = models.StatusPendingSSL
		nextAction = NextActionIssueCertificate
	case !allPassed && statusBefore != models.StatusActive:
		statusAfter = models.StatusFailedDNS
	}

	now := time.Now().UTC()
	record.Status = statusAfter
	record.LastVerifiedAt = &now
	record.LastError = ""
	if len(fixes) > 0 {
		record.LastError = fixes[0]
	}
	if err := v.store.Domains().Update(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting verification outcome: %w", err)
	}
	v.channel.Publish(ctx, events.Invalidation{Hostname: hostname})

	v.logger.Info("domain verification completed",
		"hostname", hostname,
		"status_before", statusBefore,
		"status_after", statusAfter,
		"verified", allPassed,
	)

	result := &Result{
		Hostname:       hostname,
		StatusBefore:   statusBefore,
		StatusAfter:    statusAfter,
		SSLStatus:      record.SSLStatus,
		Verified:       allPassed,
		NextAction:     nextAction,
		Checks:         results,
		SuggestedFixes: fixes,
		CheckedAt:      now,
	}
	if !allPassed {
		result.ErrorCode = ErrCodeDNSCheckFailed
	}
	if result.SuggestedFixes == nil {
		result.SuggestedFixes = []string{}
	}
	return result, nil
}

// normalizeChecks validates and de-duplicates the requested check kinds.
func normalizeChecks(kinds []CheckKind) ([]CheckKind, error) {
	if len(kinds) == 0 {
		return DefaultChecks, nil
	}
	seen := make(map[CheckKind]bool, len(kinds))
	var out []CheckKind
	for _, kind := range kinds {
		kind = CheckKind(strings.ToLower(string(kind)))
		switch kind {
		case CheckTXT, CheckCNAME, CheckA, CheckAAAA:
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidCheck, kind)
		}
		if !seen[kind] {
			seen[kind] = true
			out = append(out, kind)
		}
	}
	return out, nil
}

// runCheck executes one DNS check. Resolver errors become a failed check,
// never an error return.
func (v *Verifier) runCheck(ctx context.Context, kind CheckKind, record *models.DomainRecord, expectedCNAME string, expectedA []string) CheckResult {
	switch kind {
	case CheckTXT:
		res := CheckResult{Kind: kind, Required: true, Expected: record.VerificationToken}
		records, err := v.resolver.LookupTXT(ctx, record.Hostname)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Found = records
		for _, txt := range records {
			if record.VerificationToken != "" && strings.Contains(txt, record.VerificationToken) {
				res.Passed = true
				break
			}
		}
		return res

	case CheckCNAME:
		res := CheckResult{Kind: kind, Required: true, Expected: expectedCNAME}
		cname, err := v.resolver.LookupCNAME(ctx, record.Hostname)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		found := models.NormalizeHostname(cname)
		res.Found = []string{found}
		res.Passed = found != "" && strings.EqualFold(found, expectedCNAME)
		return res

	case CheckA:
		res := CheckResult{Kind: kind, Required: true, Expected: strings.Join(expectedA, ",")}
		addrs, err := v.resolver.LookupA(ctx, record.Hostname)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Found = addrs
		for _, addr := range addrs {
			for _, allowed := range expectedA {
				if addr == allowed {
					res.Passed = true
				}
			}
		}
		return res

	case CheckAAAA:
		// Informational only: reported but never part of the aggregate.
		res := CheckResult{Kind: kind, Required: false}
		addrs, err := v.resolver.LookupAAAA(ctx, record.Hostname)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Found = addrs
		res.Passed = len(addrs) > 0
		return res
	}
	return CheckResult{Kind: kind}
}

// suggestedFix renders the remediation hint for a failed required check.
func (v *Verifier) suggestedFix(kind CheckKind, record *models.DomainRecord, expectedCNAME string, expectedA []string) string {
	switch kind {
	case CheckTXT:
		return fmt.Sprintf("create a TXT record on %s containing the verification token %q", record.Hostname, record.VerificationToken)
	case CheckCNAME:
		return fmt.Sprintf("point a CNAME record for %s at %s", record.Hostname, expectedCNAME)
	case CheckA:
		return fmt.Sprintf("point an A record for %s at one of the platform ingress addresses (%s)", record.Hostname, strings.Join(expectedA, ", "))
	}
	return ""
}
