package hostname

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vendix/platform/internal/models"
)

// genLabel generates a valid lowercase DNS label.
func genLabel() gopter.Gen {
	return gen.RegexMatch(`[a-z][a-z0-9]{0,14}`)
}

func TestClassifierProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	c := NewClassifier("vendix.com")

	properties.Property("classification is deterministic", prop.ForAll(
		func(label string, hasStore bool) bool {
			h := label + ".vendix.com"
			return c.Classify(h, hasStore) == c.Classify(h, hasStore)
		},
		genLabel(),
		gen.Bool(),
	))

	properties.Property("subdomains of the base are never external", prop.ForAll(
		func(label string, hasStore bool) bool {
			got := c.Classify(label+".vendix.com", hasStore)
			return !got.External()
		},
		genLabel(),
		gen.Bool(),
	))

	properties.Property("hostnames outside the base are always external", prop.ForAll(
		func(label string, hasStore bool) bool {
			got := c.Classify(label+".example.org", hasStore)
			return got.External()
		},
		genLabel(),
		gen.Bool(),
	))

	properties.Property("two or more extra labels are always store subdomains", prop.ForAll(
		func(a, b string, hasStore bool) bool {
			got := c.Classify(a+"."+b+".vendix.com", hasStore)
			return got == models.DomainTypeStoreSubdomain
		},
		genLabel(),
		genLabel(),
		gen.Bool(),
	))

	properties.Property("classification ignores case", prop.ForAll(
		func(label string, hasStore bool) bool {
			h := label + ".vendix.com"
			return c.Classify(strings.ToUpper(h), hasStore) == c.Classify(h, hasStore)
		},
		genLabel(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
