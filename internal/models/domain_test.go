package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeHostname(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Shop.Example.COM", "shop.example.com"},
		{"  shop.example.com  ", "shop.example.com"},
		{"shop.example.com.", "shop.example.com"},
		{"VENDIX.com", "vendix.com"},
	}
	for _, tc := range cases {
		if got := NormalizeHostname(tc.in); got != tc.want {
			t.Errorf("NormalizeHostname(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateHostname(t *testing.T) {
	valid := []string{
		"example.com",
		"shop.example.com",
		"a.b.c.d.example.co.uk",
		"xn--bcher-kva.example",
		"1shop.example.com",
	}
	for _, host := range valid {
		if err := ValidateHostname(host); err != nil {
			t.Errorf("ValidateHostname(%q) = %v, want nil", host, err)
		}
	}

	invalid := map[string]error{
		"":                      ErrHostnameRequired,
		"-shop.example.com":     ErrHostnameInvalid,
		"shop-.example.com":     ErrHostnameInvalid,
		"sh_op.example.com":     ErrHostnameInvalid,
		"shop..example.com":     ErrHostnameInvalid,
		strings.Repeat("a", 64) + ".com": ErrHostnameInvalid,
		strings.Repeat("a.", 127) + strings.Repeat("b", 10): ErrHostnameTooLong,
	}
	for host, want := range invalid {
		if err := ValidateHostname(host); !errors.Is(err, want) {
			t.Errorf("ValidateHostname(%q) = %v, want %v", host, err, want)
		}
	}
}

func TestDomainTypeExternal(t *testing.T) {
	external := []DomainType{DomainTypeStoreCustom, DomainTypeOrgRoot}
	internal := []DomainType{DomainTypeCore, DomainTypeOrgSubdomain, DomainTypeStoreSubdomain}

	for _, dt := range external {
		if !dt.External() {
			t.Errorf("%s should be external", dt)
		}
	}
	for _, dt := range internal {
		if dt.External() {
			t.Errorf("%s should not be external", dt)
		}
	}
}

func TestScopeDistinguishesStoreAndType(t *testing.T) {
	a := &DomainRecord{OrganizationID: "org-1", StoreID: "store-1", DomainType: DomainTypeStoreCustom}
	b := &DomainRecord{OrganizationID: "org-1", StoreID: "", DomainType: DomainTypeOrgRoot}
	c := &DomainRecord{OrganizationID: "org-1", StoreID: "store-1", DomainType: DomainTypeStoreCustom}

	if a.Scope() == b.Scope() {
		t.Error("different store/type must produce different scopes")
	}
	if a.Scope() != c.Scope() {
		t.Error("same org/store/type must share a scope")
	}
}

func TestDomainRecordJSONShape(t *testing.T) {
	record := DomainRecord{
		ID:             "id-1",
		Hostname:       "shop.example.com",
		OrganizationID: "org-1",
		DomainType:     DomainTypeOrgRoot,
		Status:         StatusActive,
		SSLStatus:      SSLIssued,
	}
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	s := string(data)
	for _, key := range []string{`"organizationId"`, `"domainType"`, `"sslStatus"`, `"isPrimary"`} {
		if !strings.Contains(s, key) {
			t.Errorf("JSON missing %s: %s", key, s)
		}
	}
	if strings.Contains(s, `"storeId"`) {
		t.Errorf("empty storeId should be omitted: %s", s)
	}
	if strings.Contains(s, `"verificationToken"`) {
		t.Errorf("empty verificationToken should be omitted: %s", s)
	}
}
