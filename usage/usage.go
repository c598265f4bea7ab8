// Package usage persists how often each network was joined, and which
// networks already had their keychain entry trusted.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shazow/wifiman/internal/kv"
)

const (
	CountsKey  = "networkUsageCounts"
	TrustedKey = "trustedNetworksAttempted"
)

// Store reads and writes usage state through a kv.Store.
//
// Updates are read-modify-write and are not atomic against other writers of
// the same kv.Store. Only one wifiman process is expected per user.
type Store struct {
	kv kv.Store
}

func New(store kv.Store) *Store {
	return &Store{kv: store}
}

// Counts returns connection counts keyed by SSID. A missing key is an empty map.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	raw, ok, err := s.kv.Get(ctx, CountsKey)
	if err != nil {
		return nil, fmt.Errorf("read usage counts: %w", err)
	}
	if !ok || raw == "" {
		return counts, nil
	}
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return nil, fmt.Errorf("decode usage counts: %w", err)
	}
	return counts, nil
}

// Increment adds one to the count for name.
func (s *Store) Increment(ctx context.Context, name string) error {
	counts, err := s.Counts(ctx)
	if err != nil {
		return err
	}
	counts[name]++
	b, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, CountsKey, string(b))
}

// Trusted returns the set of SSIDs that already had a trust registration attempt.
func (s *Store) Trusted(ctx context.Context) (map[string]bool, error) {
	trusted := map[string]bool{}
	raw, ok, err := s.kv.Get(ctx, TrustedKey)
	if err != nil {
		return nil, fmt.Errorf("read trusted networks: %w", err)
	}
	if !ok || raw == "" {
		return trusted, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decode trusted networks: %w", err)
	}
	for _, n := range names {
		trusted[n] = true
	}
	return trusted, nil
}

// AddTrusted records that name had a trust registration attempt. Adding a
// name twice is a no-op.
func (s *Store) AddTrusted(ctx context.Context, name string) error {
	trusted, err := s.Trusted(ctx)
	if err != nil {
		return err
	}
	if trusted[name] {
		return nil
	}
	trusted[name] = true

	names := make([]string, 0, len(trusted))
	for n := range trusted {
		names = append(names, n)
	}
	sort.Strings(names)
	b, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, TrustedKey, string(b))
}
