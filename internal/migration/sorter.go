package migration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-version"
)

// Order selects how versions are compared.
type Order int

const (
	// OrderLexical compares versions as plain strings; "10" sorts before "2".
	OrderLexical Order = iota
	// OrderNumeric compares versions by numeric value; "01" and "1" collide.
	OrderNumeric
)

func (o Order) String() string {
	switch o {
	case OrderLexical:
		return "lexical"
	case OrderNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// ParseOrder maps a configuration value to an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lexical":
		return OrderLexical, nil
	case "numeric":
		return OrderNumeric, nil
	default:
		return OrderLexical, fmt.Errorf("unknown version order %q (want lexical or numeric)", s)
	}
}

// Compare orders versions a and b. Under OrderNumeric a version that is not a
// number sorts after every numeric one, and two such versions compare as
// strings.
func (o Order) Compare(a, b string) int {
	if o != OrderNumeric {
		return strings.Compare(a, b)
	}

	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)

	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

type sortKey struct {
	script  Script
	numeric *version.Version
}

// Sort returns a new slice of scripts ordered by version. The sort is stable
// and fails with a ParseError on duplicate versions, or on versions that are
// not numbers under OrderNumeric.
func Sort(scripts []Script, order Order) ([]Script, error) {
	keys := make([]sortKey, len(scripts))

	for i, s := range scripts {
		keys[i] = sortKey{script: s}

		if order != OrderNumeric {
			continue
		}

		v, err := version.NewVersion(s.Version)
		if err != nil {
			return nil, &ParseError{Input: s.Filename, Err: fmt.Errorf("version %q is not numeric: %w", s.Version, err)}
		}

		keys[i].numeric = v
	}

	compare := func(a, b sortKey) int {
		if order == OrderNumeric {
			return a.numeric.Compare(b.numeric)
		}

		return strings.Compare(a.script.Version, b.script.Version)
	}

	slices.SortStableFunc(keys, compare)

	sorted := make([]Script, len(keys))

	for i, k := range keys {
		if i > 0 && compare(keys[i-1], k) == 0 {
			return nil, &ParseError{
				Input: k.script.Filename,
				Err: fmt.Errorf("%w: %s also declared by %s",
					ErrDuplicateVersion, k.script.Version, keys[i-1].script.Filename),
			}
		}

		sorted[i] = k.script
	}

	return sorted, nil
}

// mixedWidths reports whether versions differ in length, which makes string
// ordering disagree with numeric ordering.
func mixedWidths(scripts []Script) bool {
	for i := 1; i < len(scripts); i++ {
		if len(scripts[i].Version) != len(scripts[0].Version) {
			return true
		}
	}

	return false
}
