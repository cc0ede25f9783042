package facade

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/galerie-tech/galerie/core/registry"
)

// The size filter maps a fixed bucket name to a literal compound dimension
// predicate. The literals are only ever injected for one of these three
// values, the enum check below is what keeps this safe.
var sizePredicates = map[string]string{
	"small":  "(width <= 60 AND height <= 40)",
	"medium": "((width > 60 OR height > 40) AND width <= 120 AND height <= 90)",
	"large":  "(width > 120 OR height > 90)",
}

// translateConditions converts a filter map into a WHERE clause and an
// ordered argument list. Placeholder numbering starts at offset+1 so the
// clause composes with a preceding SET clause.
//
// Special keys:
//   - price: "min-max" becomes a BETWEEN with both bounds as arguments,
//     "10000+" becomes a >= threshold. Any other form is silently ignored,
//     matching the tolerant behavior of the catalog filters.
//   - size: one of the fixed buckets, injected as a literal predicate with
//     no arguments.
//
// All other keys become parameterized equality predicates and must name a
// registered column of the table. The argument order matches the order in
// which predicates are appended, left to right.
//
// qualifier, when non-empty, prefixes column references so the clause can
// be used in a joined query. It comes from code, never from request input.
func translateConditions(t *registry.Table, conditions map[string]string, keys []string, offset int, qualifier string) (string, []interface{}, error) {
	var predicates []string
	var args []interface{}

	prefix := ""
	if qualifier != "" {
		prefix = qualifier + "."
	}

	for _, key := range keys {
		value := conditions[key]
		if value == "" {
			continue
		}
		switch key {
		case "price":
			if !t.HasColumn("price") {
				return "", nil, fmt.Errorf("%w: price", ErrUnknownColumn)
			}
			if value == "10000+" {
				predicates = append(predicates, fmt.Sprintf("%sprice >= $%d", prefix, offset+len(args)+1))
				args = append(args, 10000.0)
				continue
			}
			min, max, ok := splitPriceRange(value)
			if !ok {
				continue // tolerated, not an error
			}
			predicates = append(predicates,
				fmt.Sprintf("%sprice BETWEEN $%d AND $%d", prefix, offset+len(args)+1, offset+len(args)+2))
			args = append(args, min, max)
		case "size":
			if !t.HasColumn("width") || !t.HasColumn("height") {
				return "", nil, fmt.Errorf("%w: size", ErrUnknownColumn)
			}
			predicate, ok := sizePredicates[value]
			if !ok {
				return "", nil, fmt.Errorf("unknown size bucket %q", value)
			}
			if prefix != "" {
				predicate = strings.ReplaceAll(predicate, "width", prefix+"width")
				predicate = strings.ReplaceAll(predicate, "height", prefix+"height")
			}
			predicates = append(predicates, predicate)
		default:
			if !t.HasColumn(key) {
				return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
			}
			predicates = append(predicates, fmt.Sprintf("%s%s = $%d", prefix, key, offset+len(args)+1))
			args = append(args, value)
		}
	}

	if len(predicates) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(predicates, " AND "), args, nil
}

// splitPriceRange parses "min-max" into two float bounds.
func splitPriceRange(value string) (float64, float64, bool) {
	i := strings.IndexRune(value, '-')
	if i <= 0 || i == len(value)-1 {
		return 0, 0, false
	}
	min, err := strconv.ParseFloat(value[:i], 64)
	if err != nil {
		return 0, 0, false
	}
	max, err := strconv.ParseFloat(value[i+1:], 64)
	if err != nil {
		return 0, 0, false
	}
	return min, max, true
}

// equalityConditions builds a plain equality WHERE clause, the only
// condition form update and delete support. Values keep their Go type so
// the driver can match the column type.
func equalityConditions(t *registry.Table, conditions map[string]interface{}, keys []string, offset int) (string, []interface{}, error) {
	var predicates []string
	var args []interface{}
	for _, key := range keys {
		if !t.HasColumn(key) {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
		}
		predicates = append(predicates, fmt.Sprintf("%s = $%d", key, offset+len(args)+1))
		args = append(args, conditions[key])
	}
	if len(predicates) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(predicates, " AND "), args, nil
}
