// Package store persists validated sales observations behind a pluggable
// backend: in-memory with optional snapshot, Redis, or Postgres.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/skuforge/demandcast/internal/api"
)

// ScopeAll loads observations across every SKU.
const ScopeAll = ""

// Store holds immutable sales observations per SKU. Appending new
// observations for a SKU obliges the caller to invalidate any cached trained
// model for that SKU.
type Store interface {
	// Append adds observations. Records are immutable once stored.
	Append(ctx context.Context, observations []api.SalesObservation) error

	// Load returns the observations for one SKU, or all when sku is
	// ScopeAll, ordered by date.
	Load(ctx context.Context, sku string) ([]api.SalesObservation, error)

	// SKUs returns the distinct SKU identifiers present, sorted.
	SKUs(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}

// MemoryStore is an in-memory observation store with an optional file
// snapshot for restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	bySKU    map[string][]api.SalesObservation
	snapshot string // optional file path for persistence
}

// NewMemoryStore creates an in-memory store. A non-empty snapshotPath is
// loaded on startup and rewritten on Append and Close.
func NewMemoryStore(snapshotPath string) *MemoryStore {
	ms := &MemoryStore{
		bySKU:    make(map[string][]api.SalesObservation),
		snapshot: snapshotPath,
	}
	if snapshotPath != "" {
		ms.loadSnapshot()
	}
	return ms
}

func (m *MemoryStore) Append(ctx context.Context, observations []api.SalesObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, obs := range observations {
		m.bySKU[obs.SKU] = append(m.bySKU[obs.SKU], obs)
	}

	if m.snapshot != "" {
		return m.saveSnapshotLocked()
	}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, sku string) ([]api.SalesObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []api.SalesObservation
	if sku == ScopeAll {
		for _, obs := range m.bySKU {
			out = append(out, obs...)
		}
	} else {
		out = append(out, m.bySKU[sku]...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStore) SKUs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	skus := make([]string, 0, len(m.bySKU))
	for sku := range m.bySKU {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus, nil
}

func (m *MemoryStore) Close() error {
	if m.snapshot != "" {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.saveSnapshotLocked()
	}
	return nil
}

func (m *MemoryStore) loadSnapshot() error {
	data, err := os.ReadFile(m.snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no snapshot yet
		}
		return err
	}

	var snapshot map[string][]api.SalesObservation
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySKU = snapshot
	return nil
}

func (m *MemoryStore) saveSnapshotLocked() error {
	data, err := json.MarshalIndent(m.bySKU, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.snapshot, data, 0600)
}
