// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package countermap

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/idtable"
	"github.com/cilium/probehost/pkg/lock"
	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/metrics/mapmetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Registry owns the stores of a host and the handles that name them. Handle
// 0 is never issued.
type Registry struct {
	mu     lock.RWMutex
	stores *idtable.Table[Store]
}

func NewRegistry() *Registry {
	return &Registry{stores: idtable.New[Store]()}
}

func handleOf(id idtable.EntryID) abi.Handle {
	return abi.Handle(id.ID + 1)
}

func entryOf(h abi.Handle) idtable.EntryID {
	if h == 0 {
		return idtable.UninitializedEntryID
	}
	return idtable.EntryID{ID: int(h) - 1}
}

// Create builds a store from spec and returns its handle.
func (r *Registry) Create(spec *ebpf.MapSpec) (abi.Handle, error) {
	s, err := New(spec)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	h := handleOf(r.stores.AddEntry(s))
	r.mu.Unlock()

	logger.GetLogger().WithFields(logrus.Fields{
		"store":      s.Name(),
		"handle":     h,
		"type":       spec.Type,
		"maxEntries": spec.MaxEntries,
	}).Debug("Counter store created")
	return h, nil
}

// Get resolves a handle.
func (r *Registry) Get(h abi.Handle) (Store, error) {
	r.mu.RLock()
	s, err := r.stores.GetEntry(entryOf(h))
	r.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("handle %d: %w", h, abi.ErrInvalidHandle)
	}
	return s, nil
}

// Remove releases a handle. Programs still holding it get ErrInvalidHandle
// from then on.
func (r *Registry) Remove(h abi.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.stores.RemoveEntry(entryOf(h)); err != nil {
		return fmt.Errorf("handle %d: %w", h, abi.ErrInvalidHandle)
	}
	return nil
}

// Handles lists live handles in ascending order.
func (r *Registry) Handles() []abi.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var hs []abi.Handle
	r.stores.ForEach(func(id idtable.EntryID, _ Store) {
		hs = append(hs, handleOf(id))
	})
	return hs
}

// StoreLayout implements abi.Layout.
func (r *Registry) StoreLayout(h abi.Handle) (int, int, error) {
	s, err := r.Get(h)
	if err != nil {
		return 0, 0, err
	}
	spec := s.Spec()
	return int(spec.KeySize), int(spec.ValueSize), nil
}

// Stats reports the size of every store.
func (r *Registry) Stats() []mapmetrics.MapStat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats []mapmetrics.MapStat
	r.stores.ForEach(func(_ idtable.EntryID, s Store) {
		stats = append(stats, mapmetrics.MapStat{
			Name:     s.Name(),
			InUse:    s.Len(),
			Capacity: int(s.Spec().MaxEntries),
		})
	})
	return stats
}

// Collector exposes Stats to prometheus.
func (r *Registry) Collector() prometheus.Collector {
	return mapmetrics.NewSizeCollector(r.Stats)
}
