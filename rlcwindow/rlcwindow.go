// Package rlcwindow implements the RLC selective-repeat ARQ windows:
// the downlink send window V(S)/V(A)/V(B) and the uplink receive window
// V(R)/V(Q)/V(N) (spec §3, §4.C). BSN arithmetic is modular over the
// sequence-number space (SNS): 128 for GPRS, up to 2048 for EGPRS.
package rlcwindow

// BlockState is the per-BSN status tracked by the downlink V(B) array
// (spec §3 "V(B)").
type BlockState uint8

const (
	Invalid BlockState = iota
	Unacked
	Nacked
	Acked
	Resend
)

func modSub1(sns uint16) uint16 { return sns - 1 }

// DlWindow is the downlink selective-repeat send window (spec §4.C
// "DL ARQ window").
type DlWindow struct {
	sns uint16 // sequence number space
	ws  uint16 // window size, <= sns/2
	va  uint16 // V(A): oldest unacknowledged BSN
	vs  uint16 // V(S): next BSN to send
	vb  []BlockState
}

// NewDlWindow returns a window over the given sequence-number space and
// window size. sns must be a power of two (128 for GPRS, up to 2048 for
// EGPRS per spec §3).
func NewDlWindow(sns, ws uint16) *DlWindow {
	return &DlWindow{sns: sns, ws: ws, vb: make([]BlockState, sns/2)}
}

func (w *DlWindow) modSns() uint16     { return w.sns - 1 }
func (w *DlWindow) modSnsHalf() uint16 { return w.sns/2 - 1 }
func (w *DlWindow) index(bsn uint16) uint16 { return bsn & w.modSnsHalf() }

// Mod reduces an arbitrary (possibly negative-as-int) BSN into the
// window's modulus.
func (w *DlWindow) Mod(bsn int) uint16 { return uint16(bsn) & w.modSns() }

// VA returns V(A).
func (w *DlWindow) VA() uint16 { return w.va }

// VS returns V(S).
func (w *DlWindow) VS() uint16 { return w.vs }

// WS returns the configured window size.
func (w *DlWindow) WS() uint16 { return w.ws }

// Reset marks every BSN slot invalid and rewinds V(A)/V(S) to zero
// (spec §9 "per-BSN RLC history reset on WAIT_RELEASE→FLOW reuse").
func (w *DlWindow) Reset() {
	for i := range w.vb {
		w.vb[i] = Invalid
	}
	w.va, w.vs = 0, 0
}

// IncrementSend assigns the next BSN and advances V(S), marking it
// Unacked. The caller must have checked WindowStalled first.
func (w *DlWindow) IncrementSend() uint16 {
	bsn := w.vs
	w.vb[w.index(bsn)] = Unacked
	w.vs = (w.vs + 1) & w.modSns()
	return bsn
}

// WindowStalled reports whether the send window is full, i.e. no new
// BSN can be assigned until V(A) advances (spec invariant 4).
func (w *DlWindow) WindowStalled() bool {
	return w.Mod(int(w.vs)-int(w.va)) >= w.ws
}

func (w *DlWindow) state(bsn uint16) BlockState { return w.vb[w.index(bsn)] }

func (w *DlWindow) IsAcked(bsn uint16) bool   { return w.state(bsn) == Acked }
func (w *DlWindow) IsNacked(bsn uint16) bool  { return w.state(bsn) == Nacked }
func (w *DlWindow) IsUnacked(bsn uint16) bool { return w.state(bsn) == Unacked }
func (w *DlWindow) IsResend(bsn uint16) bool  { return w.state(bsn) == Resend }
func (w *DlWindow) IsInvalid(bsn uint16) bool { return w.state(bsn) == Invalid }

func (w *DlWindow) markAcked(bsn uint16)  { w.vb[w.index(bsn)] = Acked }
func (w *DlWindow) markNacked(bsn uint16) { w.vb[w.index(bsn)] = Nacked }
func (w *DlWindow) markResend(bsn uint16) { w.vb[w.index(bsn)] = Resend }
func (w *DlWindow) markInvalid(bsn uint16) { w.vb[w.index(bsn)] = Invalid }

// ResendNeeded reports the first BSN in [V(A), V(S)) that is Nacked or
// already marked Resend, or ok==false if none (spec §4.C).
func (w *DlWindow) ResendNeeded() (bsn uint16, ok bool) {
	for b := w.va; b != w.vs; b = (b + 1) & w.modSns() {
		if w.IsNacked(b) || w.IsResend(b) {
			return b, true
		}
	}
	return 0, false
}

// MarkSent transitions bsn from Resend (or Nacked) back to Unacked
// once the scheduler has retransmitted it, so a later ResendNeeded
// call finds the next stale BSN instead of returning the same one
// forever (spec §4.H "transition RESEND→UNACKED (retransmit)").
func (w *DlWindow) MarkSent(bsn uint16) {
	w.vb[w.index(bsn)] = Unacked
}

// MarkForResend transitions every Unacked BSN in [V(A), V(S)) to Resend,
// returning the count transitioned (grounded on mark_for_resend).
func (w *DlWindow) MarkForResend() int {
	resend := 0
	for b := w.va; b != w.vs; b = (b + 1) & w.modSns() {
		if w.IsUnacked(b) {
			w.markResend(b)
			resend++
		}
	}
	return resend
}

// CountUnacked returns the number of BSNs in [V(A), V(S)) not yet Acked.
func (w *DlWindow) CountUnacked() int {
	unacked := 0
	for b := w.va; b != w.vs; b = (b + 1) & w.modSns() {
		if !w.IsAcked(b) {
			unacked++
		}
	}
	return unacked
}

// Update applies a downlink Ack/Nack report (spec §4.C): ssn is
// STARTING_SEQUENCE_NUMBER, rbb is the 64-bit receive-block-bitmap
// (index 63 = SSN-1, descending), '1' meaning acked. It returns the
// number of newly-lost and newly-received blocks.
func (w *DlWindow) Update(ssn uint8, rbb [64]bool) (lost, received int) {
	bsn := (uint16(ssn) - 1) & w.modSns()
	lastBoundary := (w.va - 1) & w.modSns()
	for i := 63; i >= 0 && bsn != lastBoundary; i-- {
		if rbb[i] {
			if !w.IsAcked(bsn & w.modSnsHalf()) {
				received++
			}
			w.markAcked(bsn)
		} else if w.IsUnacked(bsn) {
			w.markNacked(bsn)
			lost++
		}
		bsn = (bsn - 1) & w.modSns()
	}
	return lost, received
}

// MoveWindow advances V(A) past every leading Acked BSN, invalidating
// them, and returns how far it moved (spec invariant 5).
func (w *DlWindow) MoveWindow() int {
	moved := 0
	for b := w.va; b != w.vs; b = (b + 1) & w.modSns() {
		if !w.IsAcked(b) {
			break
		}
		w.markInvalid(b)
		w.va = (w.va + 1) & w.modSns()
		moved++
	}
	return moved
}

// UlWindow is the uplink selective-repeat receive window (spec §4.C
// "UL ARQ window").
type UlWindow struct {
	sns uint16
	ws  uint16
	vq  uint16 // V(Q): oldest BSN not yet received
	vr  uint16 // V(R): next expected BSN beyond the highest received
	vn  []bool // per-BSN received flag
}

// NewUlWindow returns a receive window over the given sequence-number
// space and window size.
func NewUlWindow(sns, ws uint16) *UlWindow {
	return &UlWindow{sns: sns, ws: ws, vn: make([]bool, sns/2)}
}

func (w *UlWindow) modSns() uint16     { return w.sns - 1 }
func (w *UlWindow) modSnsHalf() uint16 { return w.sns/2 - 1 }

// Mod reduces an arbitrary BSN (e.g. the result of a signed subtraction)
// into the window's modulus.
func (w *UlWindow) Mod(bsn int) int { return int(uint16(bsn) & w.modSns()) }

func (w *UlWindow) VQ() int   { return int(w.vq) }
func (w *UlWindow) VR() int   { return int(w.vr) }
func (w *UlWindow) WS() uint16 { return w.ws }

// SSN returns the STARTING_SEQUENCE_NUMBER to report in the next
// GPRS Ack/Nack: V(R), one past the highest BSN received.
func (w *UlWindow) SSN() uint16 { return w.vr }

// IsReceived reports whether bsn has been received and not yet
// acknowledged away by RaiseVQ.
func (w *UlWindow) IsReceived(bsn int) bool {
	return w.vn[uint16(bsn)&w.modSnsHalf()]
}

// ReceiveBSN marks bsn received and, if it extends the window, advances
// V(R) to one past it. It reports whether the BSN was new; a BSN outside
// [V(Q), V(Q)+WS) is left unmarked and reported as not new.
func (w *UlWindow) ReceiveBSN(bsn uint16) (isNew bool) {
	if w.Mod(int(bsn)-int(w.vq)) >= int(w.ws) {
		return false
	}
	idx := bsn & w.modSnsHalf()
	isNew = !w.vn[idx]
	w.vn[idx] = true

	// V(R) tracks one past the highest BSN received so far, measured as
	// modular distance from V(Q) so wraparound compares correctly: bsn
	// extends the window when bsn+1 is at least as far from V(Q) as the
	// current V(R) is.
	distNew := w.Mod(int(bsn) + 1 - int(w.vq))
	distCur := w.Mod(int(w.vr) - int(w.vq))
	if distNew >= distCur {
		w.vr = (bsn + 1) & w.modSns()
	}
	return isNew
}

// RaiseVQ advances V(Q) past every leading received BSN, clearing their
// received flag (spec invariant 6, the mirror of MoveWindow).
func (w *UlWindow) RaiseVQ() int {
	moved := 0
	for w.vq != w.vr {
		idx := w.vq & w.modSnsHalf()
		if !w.vn[idx] {
			break
		}
		w.vn[idx] = false
		w.vq = (w.vq + 1) & w.modSns()
		moved++
	}
	return moved
}

// ReceiveBlockBitmap builds the 64-bit GPRS receive-block-bitmap for a
// Packet Uplink Ack/Nack, index 63 = SSN-1 descending (spec §4.B).
func (w *UlWindow) ReceiveBlockBitmap() [64]bool {
	var rbb [64]bool
	bsn := (uint16(w.SSN()) - 1) & w.modSns()
	for i := 63; i >= 0; i-- {
		rbb[i] = w.IsReceived(int(bsn))
		bsn = (bsn - 1) & w.modSns()
	}
	return rbb
}
