package flow

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/typeflow/typeflow/geom"
	"github.com/typeflow/typeflow/region"
)

// cachedCell caches the latest output of a keyed computation. Consecutive
// calls with the same key reuse the cache; a new key replaces it. The
// relayout loop re-runs distribution with mostly unchanged inputs, which
// this turns into cheap lookups.
type cachedCell[T any] struct {
	key   uint64
	value T
	ok    bool
}

func (c *cachedCell[T]) getOrInit(key uint64, f func() T) T {
	if c.ok && c.key == key {
		return c.value
	}
	c.key = key
	c.value = f()
	c.ok = true
	return c.value
}

// The hash helpers below feed raw float bit patterns into FNV-1a, so that
// structurally equal inputs always produce the same key.

func hashSize(s geom.Size) uint64 {
	h := newHasher()
	h.abs(s.W)
	h.abs(s.H)
	return h.sum()
}

func hashRegion(r region.Region) uint64 {
	h := newHasher()
	h.abs(r.Size.W)
	h.abs(r.Size.H)
	h.bool(r.Expand.X)
	h.bool(r.Expand.Y)
	return h.sum()
}

func hashRegions(r region.Regions) uint64 {
	h := newHasher()
	h.abs(r.Size.W)
	h.abs(r.Size.H)
	h.abs(r.Full)
	for _, height := range r.Backlog {
		h.abs(height)
	}
	if r.Last != nil {
		h.abs(*r.Last)
	}
	h.bool(r.Expand.X)
	h.bool(r.Expand.Y)
	return h.sum()
}

func hashParInput(width geom.Abs, cutouts []region.Cutout, yOffset geom.Abs) uint64 {
	h := newHasher()
	h.abs(width)
	h.abs(yOffset)
	for _, c := range cutouts {
		h.uint64(c.Hash())
	}
	return h.sum()
}

type hasher struct {
	inner interface {
		Write([]byte) (int, error)
		Sum64() uint64
	}
}

func newHasher() hasher {
	return hasher{inner: fnv.New64a()}
}

func (h hasher) uint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.inner.Write(buf[:])
}

func (h hasher) abs(a geom.Abs) { h.uint64(a.Bits()) }

func (h hasher) bool(b bool) {
	if b {
		h.uint64(1)
	} else {
		h.uint64(0)
	}
}

func (h hasher) sum() uint64 { return h.inner.Sum64() }
