// Package faker implements the FakerProvider interface backed
// by gofakeit, deterministic under a configured seed for a fixed run.
package faker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Provider resolves `$faker.<namespace>.<method>` directives against a
// gofakeit.Faker instance seeded once per run.
type Provider struct {
	f *gofakeit.Faker
}

// New seeds a Provider. Pass 0 for a time-based seed (the default).
func New(seed uint64) *Provider {
	if seed == 0 {
		return &Provider{f: gofakeit.New(0)}
	}
	return &Provider{f: gofakeit.New(seed)}
}

// Resolve implements vars.FakerProvider. It exposes at minimum the
// operations this module names: person.{firstName,lastName,fullName},
// internet.email, phone.number, string.uuid, string.alphanumeric(n),
// company.name, location.city.
func (p *Provider) Resolve(path string) (string, error) {
	ns, method, arg, err := splitPath(path)
	if err != nil {
		return "", err
	}
	switch ns + "." + method {
	case "person.firstName":
		return p.f.FirstName(), nil
	case "person.lastName":
		return p.f.LastName(), nil
	case "person.fullName":
		return p.f.Name(), nil
	case "internet.email":
		return p.f.Email(), nil
	case "phone.number":
		return p.f.Phone(), nil
	case "string.uuid":
		return p.f.UUID(), nil
	case "string.alphanumeric":
		n := 8
		if arg != "" {
			if v, err := strconv.Atoi(arg); err == nil {
				n = v
			}
		}
		return p.f.Password(false, true, true, false, false, n), nil
	case "company.name":
		return p.f.Company(), nil
	case "location.city":
		return p.f.City(), nil
	default:
		return "", fmt.Errorf("unknown faker directive %q", path)
	}
}

// splitPath parses "string.alphanumeric(12)" into ("string", "alphanumeric", "12").
func splitPath(path string) (ns, method, arg string, err error) {
	call := path
	if i := strings.IndexByte(path, '('); i >= 0 {
		end := strings.IndexByte(path, ')')
		if end < 0 || end < i {
			return "", "", "", fmt.Errorf("malformed faker directive %q", path)
		}
		arg = path[i+1 : end]
		call = path[:i]
	}
	parts := strings.SplitN(call, ".", 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("faker directive %q must be namespace.method", path)
	}
	return parts[0], parts[1], arg, nil
}
