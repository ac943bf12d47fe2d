// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package countermap implements the key/value counter stores shared between
// probe invocations.
//
// Keys and values are unsigned integers of 4 or 8 bytes. A store never
// hands out its cells for writing: MapLookupElem returns a read-only view and
// every mutation goes through Update. Read-modify-write sequences done by a
// probe are serialized per key by the lock returned from KeyLock.
package countermap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cilium/ebpf"
	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/lock"
)

var ErrInvalidSpec = errors.New("invalid store spec")

// Spec describes a store. Only Name, Type, KeySize, ValueSize and
// MaxEntries are used.
type Spec = ebpf.MapSpec

var typeNames = map[string]ebpf.MapType{
	"array":    ebpf.Array,
	"hash":     ebpf.Hash,
	"lru_hash": ebpf.LRUHash,
}

// ParseType accepts "array", "hash" and "lru_hash".
func ParseType(s string) (ebpf.MapType, error) {
	t, ok := typeNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return ebpf.UnspecifiedMap, fmt.Errorf("%w: unknown store type %q", ErrInvalidSpec, s)
	}
	return t, nil
}

// NewSpec builds a store spec.
func NewSpec(name string, typ ebpf.MapType, keySize, valueSize, maxEntries uint32) *Spec {
	return &Spec{
		Name:       name,
		Type:       typ,
		KeySize:    keySize,
		ValueSize:  valueSize,
		MaxEntries: maxEntries,
	}
}

// Store is a fixed-capacity counter store.
type Store interface {
	// Name is the label used in logs and metrics.
	Name() string
	// Spec returns the spec the store was created from.
	Spec() *ebpf.MapSpec
	// Lookup returns a view of the value under key, or a nil ref.
	Lookup(key uint64) abi.ValueRef
	// Update stores value under key according to flags.
	Update(key, value uint64, flags abi.UpdateFlags) error
	// Delete removes key. Array stores do not support it.
	Delete(key uint64) error
	// NextKey returns the key following prev in iteration order, or the
	// first key when prev is nil. The end of iteration is ErrKeyNotExist.
	NextKey(prev *uint64) (uint64, error)
	// Len returns the number of keys in use.
	Len() int
	// KeyLock returns the mutex serializing read-modify-write on key.
	KeyLock(key uint64) *lock.Mutex
}

// New creates a store from spec.
func New(spec *ebpf.MapSpec) (Store, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	b := newBase(spec)
	switch spec.Type {
	case ebpf.Array:
		return newArrayStore(b), nil
	case ebpf.Hash:
		return newHashStore(b), nil
	case ebpf.LRUHash:
		return newLRUStore(b)
	}
	return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidSpec, spec.Type)
}

func validWidth(n uint32) bool {
	return n == 4 || n == 8
}

func validateSpec(spec *ebpf.MapSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: nil spec", ErrInvalidSpec)
	}
	switch spec.Type {
	case ebpf.Array, ebpf.Hash, ebpf.LRUHash:
	default:
		return fmt.Errorf("%w: unsupported type %s", ErrInvalidSpec, spec.Type)
	}
	if !validWidth(spec.KeySize) {
		return fmt.Errorf("%w: key size %d", ErrInvalidSpec, spec.KeySize)
	}
	if spec.Type == ebpf.Array && spec.KeySize != 4 {
		return fmt.Errorf("%w: array key size must be 4, got %d", ErrInvalidSpec, spec.KeySize)
	}
	if !validWidth(spec.ValueSize) {
		return fmt.Errorf("%w: value size %d", ErrInvalidSpec, spec.ValueSize)
	}
	if spec.MaxEntries == 0 {
		return fmt.Errorf("%w: max entries must be positive", ErrInvalidSpec)
	}
	return nil
}

func widthMask(n uint32) uint64 {
	if n == 4 {
		return 0xffffffff
	}
	return ^uint64(0)
}

func validFlags(flags abi.UpdateFlags) bool {
	switch flags {
	case abi.UpdateAny, abi.UpdateNoExist, abi.UpdateExist:
		return true
	}
	return false
}

// base carries what every store type shares.
type base struct {
	spec      *ebpf.MapSpec
	keyMask   uint64
	valueMask uint64
	locks     *lock.Striped
}

func newBase(spec *ebpf.MapSpec) base {
	return base{
		spec:      spec.Copy(),
		keyMask:   widthMask(spec.KeySize),
		valueMask: widthMask(spec.ValueSize),
		locks:     lock.NewStriped(lock.DefaultStripes),
	}
}

func (b *base) Name() string {
	return b.spec.Name
}

func (b *base) Spec() *ebpf.MapSpec {
	return b.spec
}

func (b *base) KeyLock(key uint64) *lock.Mutex {
	return b.locks.For(key & b.keyMask)
}

// Entry is one key/value pair read out of a store.
type Entry struct {
	Key   uint64
	Value uint64
}

// peeker is implemented by stores whose Lookup has side effects on
// eviction order.
type peeker interface {
	Peek(key uint64) abi.ValueRef
}

// Dump walks s with NextKey and returns its entries in iteration order.
// Keys removed concurrently are skipped. Reading does not refresh LRU keys.
func Dump(s Store) []Entry {
	read := s.Lookup
	if p, ok := s.(peeker); ok {
		read = p.Peek
	}
	var out []Entry
	var prev *uint64
	for i := 0; i < s.Len()+1; i++ {
		k, err := s.NextKey(prev)
		if err != nil {
			break
		}
		if v := read(k); !v.IsNil() {
			out = append(out, Entry{Key: k, Value: v.Load()})
		}
		prev = &k
	}
	return out
}
