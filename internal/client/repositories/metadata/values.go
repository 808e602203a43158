package metadata

import (
	"context"
	"fmt"
	"strconv"
)

// GetInt reads an integer setting. A missing key reads as zero.
func GetInt(ctx context.Context, r Repository, key string) (int64, error) {
	v, err := r.Get(ctx, key)
	if err != nil || len(v) == 0 {
		return 0, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %q is not an integer: %w", key, err)
	}
	return n, nil
}

func SetInt(ctx context.Context, r Repository, key string, n int64) error {
	return r.Set(ctx, key, []byte(strconv.FormatInt(n, 10)))
}

// GetString reads a text setting. A missing key reads as "".
func GetString(ctx context.Context, r Repository, key string) (string, error) {
	v, err := r.Get(ctx, key)
	return string(v), err
}

func SetString(ctx context.Context, r Repository, key, value string) error {
	return r.Set(ctx, key, []byte(value))
}

// ListInts reads every integer setting under prefix, keyed by the rest of
// the key.
func ListInts(ctx context.Context, r Repository, prefix string) (map[string]int64, error) {
	all, err := r.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(all))
	for k, v := range all {
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("setting %q is not an integer: %w", k, err)
		}
		out[k[len(prefix):]] = n
	}
	return out, nil
}
