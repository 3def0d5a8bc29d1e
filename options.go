package binning

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Option keys understood by Compressor.
const (
	OptBins     = "binning:bins"
	OptThreads  = "binning:nthreads"
	OptRounding = "binning:rounding"
)

// Host-level metadata keys.
const (
	OptThreadSafe  = "pressio:thread_safe"
	OptStability   = "pressio:stability"
	OptDescription = "pressio:description"
)

// Options is a set of named configuration values exchanged with a host.
// Values are int, []int, string or anything a plugin documents.
type Options map[string]any

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int reads an integer option. Strings holding a decimal number are accepted.
func (o Options) Int(key string) (n int, ok bool, err error) {
	v, ok := o[key]
	if !ok {
		return 0, false, nil
	}
	switch x := v.(type) {
	case int:
		return x, true, nil
	case int32:
		return int(x), true, nil
	case int64:
		return int(x), true, nil
	case uint32:
		return int(x), true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, true, fmt.Errorf("%w: option %s: %v", ErrInvalidConfig, key, err)
		}
		return n, true, nil
	}
	return 0, true, fmt.Errorf("%w: option %s: want integer, have %T", ErrInvalidConfig, key, v)
}

// Ints reads an integer vector option. Strings like "2,2,1,1" are accepted.
func (o Options) Ints(key string) (v []int, ok bool, err error) {
	raw, ok := o[key]
	if !ok {
		return nil, false, nil
	}
	switch x := raw.(type) {
	case []int:
		return append([]int(nil), x...), true, nil
	case []int64:
		for _, n := range x {
			v = append(v, int(n))
		}
		return v, true, nil
	case []uint64:
		for _, n := range x {
			v = append(v, int(n))
		}
		return v, true, nil
	case Shape:
		return x.Dims(), true, nil
	case string:
		v, err = ParseInts(x)
		if err != nil {
			return nil, true, fmt.Errorf("%w: option %s: %v", ErrInvalidConfig, key, err)
		}
		return v, true, nil
	}
	return nil, true, fmt.Errorf("%w: option %s: want integer vector, have %T", ErrInvalidConfig, key, raw)
}

// String reads a string option.
func (o Options) String(key string) (s string, ok bool, err error) {
	raw, ok := o[key]
	if !ok {
		return "", false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", true, fmt.Errorf("%w: option %s: want string, have %T", ErrInvalidConfig, key, raw)
	}
	return s, true, nil
}

// ParseInts parses a comma separated list of integers.
func ParseInts(s string) ([]int, error) {
	var v []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		v = append(v, n)
	}
	return v, nil
}

// FormatInts is the inverse of ParseInts.
func FormatInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
