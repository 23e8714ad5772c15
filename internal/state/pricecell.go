// Package state holds the process's shared market topology: the frozen
// Global State vector and the atomically-updated Price Cells two
// independent streaming feeds write into.
package state

import (
	"sync/atomic"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

// PriceCell is a single atomically-updated word packing top-of-book for one
// venue's side of one contract: (yesBid, noBid, yesAsk, noAsk), each a
// PriceCents in the low 16 bits of its quarter. Reads observe a consistent
// snapshot of all four prices; single-field writers use a CAS retry loop so
// concurrent updates never tear a reader's view.
type PriceCell struct {
	word atomic.Uint64
}

// Snapshot is a consistent point-in-time read of a PriceCell.
type Snapshot struct {
	YesBid types.PriceCents
	NoBid  types.PriceCents
	YesAsk types.PriceCents
	NoAsk  types.PriceCents
}

func pack(yesBid, noBid, yesAsk, noAsk types.PriceCents) uint64 {
	return uint64(yesBid) | uint64(noBid)<<16 | uint64(yesAsk)<<32 | uint64(noAsk)<<48
}

func unpack(word uint64) Snapshot {
	return Snapshot{
		YesBid: types.PriceCents(word & 0xFFFF),
		NoBid:  types.PriceCents((word >> 16) & 0xFFFF),
		YesAsk: types.PriceCents((word >> 32) & 0xFFFF),
		NoAsk:  types.PriceCents((word >> 48) & 0xFFFF),
	}
}

// Load returns a consistent snapshot of all four prices.
func (c *PriceCell) Load() Snapshot {
	return unpack(c.word.Load())
}

// SetAll atomically overwrites all four prices at once — used on the
// initial full snapshot a venue sends after subscribing.
func (c *PriceCell) SetAll(yesBid, noBid, yesAsk, noAsk types.PriceCents) {
	c.word.Store(pack(yesBid, noBid, yesAsk, noAsk))
}

// SetYesBid updates only the YES bid, preserving the other three fields.
func (c *PriceCell) SetYesBid(p types.PriceCents) { c.casField(0, p) }

// SetNoBid updates only the NO bid, preserving the other three fields.
func (c *PriceCell) SetNoBid(p types.PriceCents) { c.casField(16, p) }

// SetYesAsk updates only the YES ask, preserving the other three fields.
func (c *PriceCell) SetYesAsk(p types.PriceCents) { c.casField(32, p) }

// SetNoAsk updates only the NO ask, preserving the other three fields.
func (c *PriceCell) SetNoAsk(p types.PriceCents) { c.casField(48, p) }

// casField updates the 16-bit field starting at bit offset shift, retrying
// on concurrent writers until the compare-and-swap succeeds.
func (c *PriceCell) casField(shift uint, p types.PriceCents) {
	mask := uint64(0xFFFF) << shift
	for {
		old := c.word.Load()
		newWord := (old &^ mask) | (uint64(p) << shift)
		if c.word.CompareAndSwap(old, newWord) {
			return
		}
	}
}
