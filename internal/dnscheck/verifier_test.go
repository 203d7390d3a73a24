package dnscheck

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vendix/platform/internal/events"
	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/store"
	"github.com/vendix/platform/internal/store/memory"
)

// fakeResolver serves canned DNS answers and counts lookups.
type fakeResolver struct {
	txt      []string
	txtErr   error
	cname    string
	cnameErr error
	a        []string
	aErr     error
	aaaa     []string
	aaaaErr  error

	calls atomic.Int64
}

func (f *fakeResolver) LookupTXT(ctx context.Context, host string) ([]string, error) {
	f.calls.Add(1)
	return f.txt, f.txtErr
}

func (f *fakeResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	f.calls.Add(1)
	return f.cname, f.cnameErr
}

func (f *fakeResolver) LookupA(ctx context.Context, host string) ([]string, error) {
	f.calls.Add(1)
	return f.a, f.aErr
}

func (f *fakeResolver) LookupAAAA(ctx context.Context, host string) ([]string, error) {
	f.calls.Add(1)
	return f.aaaa, f.aaaaErr
}

const testToken = "vendix-verify-abc123"

func seedRecord(t *testing.T, st store.Store, status models.DomainStatus) *models.DomainRecord {
	t.Helper()
	record := &models.DomainRecord{
		Hostname:          "shop.example.com",
		OrganizationID:    "org-1",
		StoreID:           "store-1",
		DomainType:        models.DomainTypeStoreCustom,
		Status:            status,
		SSLStatus:         models.SSLNone,
		VerificationToken: testToken,
	}
	if err := st.Domains().Create(context.Background(), record); err != nil {
		t.Fatalf("seeding record: %v", err)
	}
	return record
}

func newVerifier(st store.Store, resolver Resolver) *Verifier {
	return NewVerifier(st, resolver, events.NewBroker(nil), "edge.vendix.com", []string{"203.0.113.10"}, nil)
}

func TestVerifyAllChecksPass(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusPendingDNS)
	resolver := &fakeResolver{
		txt:   []string{"unrelated", "prefix " + testToken + " suffix"},
		cname: "edge.vendix.com.",
	}

	result, err := newVerifier(st, resolver).Verify(context.Background(), "shop.example.com", Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if !result.Verified {
		t.Error("Verified = false, want true")
	}
	if result.StatusAfter != models.StatusPendingSSL {
		t.Errorf("StatusAfter = %q, want %q", result.StatusAfter, models.StatusPendingSSL)
	}
	if result.NextAction != NextActionIssueCertificate {
		t.Errorf("NextAction = %q, want %q", result.NextAction, NextActionIssueCertificate)
	}
	if result.ErrorCode != "" {
		t.Errorf("ErrorCode = %q, want empty", result.ErrorCode)
	}

	// The transition must be durable.
	stored, err := st.Domains().GetByHostname(context.Background(), "shop.example.com")
	if err != nil {
		t.Fatalf("GetByHostname: %v", err)
	}
	if stored.Status != models.StatusPendingSSL {
		t.Errorf("stored status = %q, want %q", stored.Status, models.StatusPendingSSL)
	}
	if stored.LastVerifiedAt == nil {
		t.Error("LastVerifiedAt should be set")
	}
	if stored.LastError != "" {
		t.Errorf("LastError = %q, want empty", stored.LastError)
	}
}

func TestVerifyCNAMEFailure(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusPendingDNS)
	resolver := &fakeResolver{
		txt:   []string{testToken},
		cname: "wrong.example.net.",
	}

	result, err := newVerifier(st, resolver).Verify(context.Background(), "shop.example.com", Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if result.Verified {
		t.Error("Verified = true, want false")
	}
	if result.StatusAfter != models.StatusFailedDNS {
		t.Errorf("StatusAfter = %q, want %q", result.StatusAfter, models.StatusFailedDNS)
	}
	if result.ErrorCode != ErrCodeDNSCheckFailed {
		t.Errorf("ErrorCode = %q, want %q", result.ErrorCode, ErrCodeDNSCheckFailed)
	}
	if len(result.SuggestedFixes) == 0 {
		t.Fatal("SuggestedFixes should not be empty")
	}
	if !strings.Contains(strings.ToLower(result.SuggestedFixes[0]), "cname") {
		t.Errorf("fix %q should mention the CNAME record", result.SuggestedFixes[0])
	}
	if !result.Checks[CheckTXT].Passed {
		t.Error("txt check should pass")
	}
	if result.Checks[CheckCNAME].Passed {
		t.Error("cname check should fail")
	}

	stored, _ := st.Domains().GetByHostname(context.Background(), "shop.example.com")
	if stored.LastError == "" {
		t.Error("LastError should carry the first suggested fix")
	}
}

func TestVerifyResolverErrorIsNotFatal(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusPendingDNS)
	resolver := &fakeResolver{
		txtErr: errors.New("lookup timeout"),
		cname:  "edge.vendix.com.",
	}

	result, err := newVerifier(st, resolver).Verify(context.Background(), "shop.example.com", Options{})
	if err != nil {
		t.Fatalf("Verify should fold resolver errors into the result, got %v", err)
	}

	if result.Verified {
		t.Error("Verified = true, want false")
	}
	if got := result.Checks[CheckTXT].Error; !strings.Contains(got, "lookup timeout") {
		t.Errorf("txt check error = %q, want the resolver error", got)
	}
}

func TestVerifyActiveShortCircuits(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusActive)
	resolver := &fakeResolver{}

	result, err := newVerifier(st, resolver).Verify(context.Background(), "shop.example.com", Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if !result.Verified {
		t.Error("Verified = false, want true")
	}
	if result.NextAction != NextActionNone {
		t.Errorf("NextAction = %q, want %q", result.NextAction, NextActionNone)
	}
	if got := resolver.calls.Load(); got != 0 {
		t.Errorf("resolver calls = %d, want 0", got)
	}
}

func TestVerifyActiveWithForceRunsChecks(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusActive)
	resolver := &fakeResolver{
		txt:   []string{testToken},
		cname: "edge.vendix.com",
	}

	result, err := newVerifier(st, resolver).Verify(context.Background(), "shop.example.com", Options{Force: true})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if resolver.calls.Load() == 0 {
		t.Error("force should run DNS lookups")
	}
	// Active is terminal for this verifier even when forced.
	if result.StatusAfter != models.StatusActive {
		t.Errorf("StatusAfter = %q, want %q", result.StatusAfter, models.StatusActive)
	}
}

func TestVerifyAAAAIsInformational(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusPendingDNS)
	resolver := &fakeResolver{
		txt:     []string{testToken},
		cname:   "edge.vendix.com",
		aaaaErr: errors.New("no AAAA records"),
	}

	result, err := newVerifier(st, resolver).Verify(context.Background(), "shop.example.com",
		Options{Checks: []CheckKind{CheckTXT, CheckCNAME, CheckAAAA}})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// A failing aaaa check never fails the aggregate.
	if !result.Verified {
		t.Error("Verified = false, want true")
	}
	if result.Checks[CheckAAAA].Passed {
		t.Error("aaaa check should be reported as failed")
	}
}

func TestVerifyACheckAgainstAllowList(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusFailedDNS)
	resolver := &fakeResolver{
		a: []string{"198.51.100.7", "203.0.113.10"},
	}

	result, err := newVerifier(st, resolver).Verify(context.Background(), "shop.example.com",
		Options{Checks: []CheckKind{CheckA}})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if !result.Verified {
		t.Error("A record intersecting the allow-list should verify")
	}
	if result.StatusAfter != models.StatusPendingSSL {
		t.Errorf("StatusAfter = %q, want %q", result.StatusAfter, models.StatusPendingSSL)
	}
}

func TestVerifyRejectsUnknownCheck(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusPendingDNS)

	_, err := newVerifier(st, &fakeResolver{}).Verify(context.Background(), "shop.example.com",
		Options{Checks: []CheckKind{"mx"}})
	if !errors.Is(err, ErrInvalidCheck) {
		t.Errorf("err = %v, want ErrInvalidCheck", err)
	}
}

func TestVerifyRejectsInternalTypes(t *testing.T) {
	st := memory.NewMemoryStore()
	record := &models.DomainRecord{
		Hostname:       "acme.vendix.com",
		OrganizationID: "org-1",
		DomainType:     models.DomainTypeOrgSubdomain,
		Status:         models.StatusActive,
		SSLStatus:      models.SSLIssued,
	}
	if err := st.Domains().Create(context.Background(), record); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	_, err := newVerifier(st, &fakeResolver{}).Verify(context.Background(), "acme.vendix.com", Options{})
	if !errors.Is(err, ErrNotVerifiable) {
		t.Errorf("err = %v, want ErrNotVerifiable", err)
	}
}

func TestVerifyUnknownHostname(t *testing.T) {
	st := memory.NewMemoryStore()

	_, err := newVerifier(st, &fakeResolver{}).Verify(context.Background(), "missing.example.com", Options{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want store.ErrNotFound", err)
	}
}

func TestVerifyPublishesInvalidation(t *testing.T) {
	st := memory.NewMemoryStore()
	seedRecord(t, st, models.StatusPendingDNS)
	broker := events.NewBroker(nil)
	ch, cancel := broker.Subscribe(context.Background())
	defer cancel()

	v := NewVerifier(st, &fakeResolver{txt: []string{testToken}, cname: "edge.vendix.com"},
		broker, "edge.vendix.com", nil, nil)
	if _, err := v.Verify(context.Background(), "shop.example.com", Options{}); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	select {
	case got := <-ch:
		if got.Hostname != "shop.example.com" {
			t.Errorf("invalidation hostname = %q", got.Hostname)
		}
	default:
		t.Error("expected an invalidation event")
	}
}
