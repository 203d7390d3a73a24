package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DomainConfig is the per-domain presentation and behavior settings blob.
// It is stored as a JSON document; the section names are fixed while the
// keys inside each section are free-form.
type DomainConfig struct {
	Branding    map[string]any `json:"branding,omitempty"`
	SEO         map[string]any `json:"seo,omitempty"`
	Theme       map[string]any `json:"theme,omitempty"`
	Features    map[string]any `json:"features,omitempty"`
	Security    map[string]any `json:"security,omitempty"`
	Performance map[string]any `json:"performance,omitempty"`
}

// IsZero reports whether no section carries any settings.
func (c DomainConfig) IsZero() bool {
	return len(c.Branding) == 0 && len(c.SEO) == 0 && len(c.Theme) == 0 &&
		len(c.Features) == 0 && len(c.Security) == 0 && len(c.Performance) == 0
}

// Merge returns the config with patch applied. Nested objects merge
// key-by-key; arrays and scalars are replaced wholesale.
func (c DomainConfig) Merge(patch DomainConfig) DomainConfig {
	return DomainConfig{
		Branding:    mergeMaps(c.Branding, patch.Branding),
		SEO:         mergeMaps(c.SEO, patch.SEO),
		Theme:       mergeMaps(c.Theme, patch.Theme),
		Features:    mergeMaps(c.Features, patch.Features),
		Security:    mergeMaps(c.Security, patch.Security),
		Performance: mergeMaps(c.Performance, patch.Performance),
	}
}

// mergeMaps deep-merges patch into base without mutating either.
func mergeMaps(base, patch map[string]any) map[string]any {
	if len(patch) == 0 {
		return cloneMap(base)
	}
	out := cloneMap(base)
	if out == nil {
		out = make(map[string]any, len(patch))
	}
	for key, pv := range patch {
		if pm, ok := pv.(map[string]any); ok {
			if bm, ok := out[key].(map[string]any); ok {
				out[key] = mergeMaps(bm, pm)
				continue
			}
			out[key] = cloneMap(pm)
			continue
		}
		out[key] = pv
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer so the config persists as a JSON document.
func (c DomainConfig) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling domain config: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner for reading the JSON document back.
func (c *DomainConfig) Scan(src any) error {
	if src == nil {
		*c = DomainConfig{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported domain config source type %T", src)
	}
	if len(data) == 0 {
		*c = DomainConfig{}
		return nil
	}
	return json.Unmarshal(data, c)
}
