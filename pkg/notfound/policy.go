// Package notfound decides what a 404 from the article service means.
//
// The service answers 404 both when a resource does not exist and when the
// base URL is wrong or the endpoint is unknown to the server version. A Policy
// chooses between surfacing the error and substituting a default value.
package notfound

import (
	"fmt"
	"strings"
)

// Policy selects how a 404 is handled for one call.
type Policy int

const (
	// Throw always surfaces the 404.
	Throw Policy = iota
	// DefaultValue always substitutes the default. It can hide a
	// misconfigured base URL as "no data".
	DefaultValue
	// Smart probes the server first and substitutes the default only when
	// the server is reachable and supports the operation.
	Smart
)

func (p Policy) String() string {
	switch p {
	case Throw:
		return "throw"
	case DefaultValue:
		return "default"
	case Smart:
		return "smart"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses the String form of a Policy, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "throw":
		return Throw, nil
	case "default", "default_value":
		return DefaultValue, nil
	case "smart":
		return Smart, nil
	default:
		return Throw, fmt.Errorf("unknown not-found policy %q", s)
	}
}

// UnmarshalText lets a Policy be read from YAML or flags.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Disposition is the outcome of classifying a 404.
type Disposition int

const (
	Rethrow Disposition = iota
	SubstituteDefault
)

func (d Disposition) String() string {
	if d == SubstituteDefault {
		return "substitute_default"
	}
	return "rethrow"
}
