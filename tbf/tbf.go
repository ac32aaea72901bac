// Package tbf implements the uplink/downlink Temporary Block Flow
// state machines (spec §4.E): NULL → ASSIGN → FLOW → FINISHED →
// WAIT_RELEASE → RELEASING, plus the orthogonal poll_state
// sub-machine and the T3169/T3191/T3193/T3195 timers and
// N3101/N3103/N3105 counters that drive its transitions.
//
// No C++ source for this state machine exists anywhere in the
// retrieval pack (confirmed by grep across original_source/src); it
// is built directly from the transition table in spec §4.E and the
// timer/counter names in spec §6's configuration surface. See
// DESIGN.md.
package tbf

import (
	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/core"
	"github.com/osmo-go/pcu-rlcmac/rlcwindow"
)

// State is a TBF's position in its lifecycle (spec §4.E shared
// transitions table).
type State uint8

const (
	StateNull State = iota
	StateAssign
	StateFlow
	StateFinished
	StateWaitRelease
	StateReleasing
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateAssign:
		return "ASSIGN"
	case StateFlow:
		return "FLOW"
	case StateFinished:
		return "FINISHED"
	case StateWaitRelease:
		return "WAIT_RELEASE"
	case StateReleasing:
		return "RELEASING"
	default:
		return "unknown"
	}
}

// PollState is the orthogonal "am I waiting for a PACKET CONTROL ACK"
// sub-machine (spec §4.E).
type PollState uint8

const (
	PollNone PollState = iota
	PollSched
)

// Limits carries the configuration surface's timer/counter bounds
// (spec §6) a TBF is built with.
type Limits struct {
	N3101Max uint32
	N3103Max uint32
	N3105Max uint32

	// T3169/T3191/T3193/T3195 are expressed in frame numbers rather
	// than wall-clock durations: the scheduling model (spec §5) is a
	// single-threaded main loop driven entirely by the GSM frame
	// counter, so a "timer" here is just a target FN compared against
	// the FN of the next tick.
	T3169 uint32
	T3191 uint32
	T3193 uint32
	T3195 uint32
}

// Header is the state shared by every TBF direction, embedded by
// UlTbf and DlTbf rather than reached through an interface: this
// core has exactly two concrete TBF shapes and no third is coming, so
// a tagged struct embedding keeps call sites monomorphic instead of
// paying for a vtable on every scheduler tick.
type Header struct {
	Limits Limits

	State State
	Poll  PollState

	TFI uint8

	// PollFN is the frame number at which a scheduled PACKET CONTROL
	// ACK is due; only meaningful while Poll == PollSched.
	PollFN uint32

	// deadlineFN, when nonzero, is the FN at which the armed timer
	// expires: T3169 set by Assign, or T3193 set on entering
	// WAIT_RELEASE. Tick acts on it only in WAIT_RELEASE and RELEASING.
	deadlineFN uint32

	N3101 uint32
	N3103 uint32
	N3105 uint32

	released bool
}

// Assign transitions NULL → ASSIGN on allocator success, arming
// the T3169 deadline; T3195 is not armed here (spec §4.E row 1). Scheduling the assignment message
// itself is the caller's responsibility (it differs for UL vs DL).
func (h *Header) Assign(tfi uint8, nowFN uint32) {
	h.TFI = tfi
	h.State = StateAssign
	h.deadlineFN = nowFN + h.Limits.T3169
}

// SchedulePoll arms the poll_state sub-machine for a block sent with
// RRBP valid, expected to be acknowledged by pollFN.
func (h *Header) SchedulePoll(pollFN uint32) {
	h.Poll = PollSched
	h.PollFN = pollFN
}

// ControlAckReceived handles a PACKET CONTROL ACK arriving at fn. If
// it matches the outstanding poll it clears poll_state and, while
// still in ASSIGN, advances to FLOW (spec §4.E row 2).
func (h *Header) ControlAckReceived(fn uint32) {
	if h.Poll != PollSched || fn != h.PollFN {
		return
	}
	h.Poll = PollNone
	if h.State == StateAssign {
		h.State = StateFlow
	}
}

// pollTimeout is the shared bookkeeping both directions call into
// with their own counter and max; see UlTbf.PollTimeout/DlTbf.PollTimeout
// which pick the right counter.
func (h *Header) pollTimeout(counter *uint32, max uint32) {
	if h.Poll != PollSched {
		return
	}
	h.Poll = PollNone
	*counter++
	if h.State == StateAssign && *counter >= max {
		h.State = StateReleasing
		h.TFI = 0 // free TFI/USF
	}
}

// CountdownComplete transitions FLOW → FINISHED once cv has reached 0
// and the last block is acked (spec §4.E row 4).
func (h *Header) CountdownComplete() {
	if h.State == StateFlow {
		h.State = StateFinished
	}
}

// WindowStalledMaxResends transitions FLOW → RELEASING when the RLC
// window has stalled and the resend budget is exhausted (row 5).
func (h *Header) WindowStalledMaxResends() {
	if h.State == StateFlow {
		h.State = StateReleasing
	}
}

// FinalAckAcknowledged transitions FINISHED → WAIT_RELEASE, arming
// T3193 (row 6).
func (h *Header) FinalAckAcknowledged(nowFN uint32) {
	if h.State == StateFinished {
		h.State = StateWaitRelease
		h.deadlineFN = nowFN + h.Limits.T3193
	}
}

// Tick evaluates the armed FN-deadline (T3193 in WAIT_RELEASE, the
// release timer in RELEASING) against nowFN, advancing state or
// marking the TBF released (spec §4.E rows 7-8).
func (h *Header) Tick(nowFN uint32) {
	if h.deadlineFN == 0 || nowFN < h.deadlineFN {
		return
	}
	switch h.State {
	case StateWaitRelease:
		h.State = StateReleasing
		h.TFI = 0
		h.deadlineFN = 0
	case StateReleasing:
		h.released = true
		h.deadlineFN = 0
	}
}

// Released reports whether the release timer has expired and the MS
// registry should detach this TBF.
func (h *Header) Released() bool { return h.released }

// ResetForReuse clears per-TBF transient state when a WAIT_RELEASE
// instance is reused for a fresh FLOW rather than destroyed (spec §5
// "Shared-resource policy"); callers also reset the RLC window and
// per-BSN history, which lives in the direction-specific wrapper.
func (h *Header) ResetForReuse() {
	h.N3101, h.N3103, h.N3105 = 0, 0, 0
	h.Poll = PollNone
	h.PollFN = 0
	h.deadlineFN = 0
	h.released = false
	h.State = StateFlow
}

// UlTbf is an uplink TBF: Header plus the uplink RLC window and USF
// grant bookkeeping.
type UlTbf struct {
	Header
	Window *rlcwindow.UlWindow
	// USF is, per occupied PDCH, the uplink state flag value granted
	// to this TBF (spec §4.E "its USF was granted this RTS").
	USF map[int]uint8
	// Partial accumulates LLC bytes across RLC blocks for the frame
	// still open when the last block's LI chain didn't close it
	// (spec §4.D rlc_data_from_ul_data, the inbound half of
	// segmentation).
	Partial []byte
}

// NewUlTbf builds an uplink TBF over an SNS-sized window.
func NewUlTbf(limits Limits, sns, ws uint16) *UlTbf {
	return &UlTbf{
		Header: Header{Limits: limits, State: StateNull},
		Window: rlcwindow.NewUlWindow(sns, ws),
		USF:    make(map[int]uint8),
	}
}

// PollTimeout handles a poll_fn expiring unanswered, using N3101
// against N3101Max (spec §4.E row 3, UL branch).
func (t *UlTbf) PollTimeout() { t.pollTimeout(&t.N3101, t.Limits.N3101Max) }

// ResendBudgetExceeded reports whether N3103 has reached its
// configured maximum, the uplink window-stalled release condition.
func (t *UlTbf) ResendBudgetExceeded() bool { return t.N3103 >= t.Limits.N3103Max }

// ResetWindowState clears the uplink window and reuse-transition
// state (spec "Supplemented features": resetWindowState).
func (t *UlTbf) ResetWindowState(sns, ws uint16) {
	t.Header.ResetForReuse()
	t.Window = rlcwindow.NewUlWindow(sns, ws)
	t.USF = make(map[int]uint8)
}

// Schedulable reports whether this TBF is due to transmit on this
// RTS: it must be in FLOW and hold a USF grant for pdch (spec §4.E
// "per-frame-number tick").
func (t *UlTbf) Schedulable(pdch int) bool {
	if t.State != StateFlow {
		return false
	}
	_, granted := t.USF[pdch]
	return granted
}

// Detach implements msreg.UlAttach.
func (t *UlTbf) Detach() {}

// DlTbf is a downlink TBF: Header plus the downlink RLC window,
// per-BSN packed-block history, and countdown value.
type DlTbf struct {
	Header
	Window  *rlcwindow.DlWindow
	History map[uint16][]byte // BSN -> last packed block, for resend
	CV      uint8             // countdown value, 0 once the final block is queued
	CS      coding.Scheme     // coding scheme the next data block is packed with
}

// NewDlTbf builds a downlink TBF over an SNS-sized window, packing
// blocks with cs until a later coding-scheme transition changes it.
func NewDlTbf(limits Limits, sns, ws uint16, cs coding.Scheme) *DlTbf {
	return &DlTbf{
		Header:  Header{Limits: limits, State: StateNull},
		Window:  rlcwindow.NewDlWindow(sns, ws),
		History: make(map[uint16][]byte),
		CS:      cs,
	}
}

// PollTimeout handles a poll_fn expiring unanswered, using N3105
// against N3105Max (spec §4.E row 3, DL branch).
func (t *DlTbf) PollTimeout() { t.pollTimeout(&t.N3105, t.Limits.N3105Max) }

// StoreHistory records the packed bytes sent for bsn so a later NACK
// can resend the identical block (spec §4.H).
func (t *DlTbf) StoreHistory(bsn uint16, packed []byte) {
	cp := make([]byte, len(packed))
	copy(cp, packed)
	t.History[bsn] = cp
}

// Resend looks up the packed block stored for bsn, returning
// core.InternalFraming if history was never recorded for it (a
// scheduler bug, not a malformed-input condition).
func (t *DlTbf) Resend(bsn uint16) ([]byte, error) {
	b, ok := t.History[bsn]
	if !ok {
		return nil, core.New(core.InternalFraming, "tbf.DlTbf.Resend", "no history for bsn")
	}
	return b, nil
}

// ResetWindowState clears the downlink window and per-BSN history on
// WAIT_RELEASE → FLOW reuse (spec "Supplemented features").
func (t *DlTbf) ResetWindowState(sns, ws uint16) {
	t.Header.ResetForReuse()
	t.Window = rlcwindow.NewDlWindow(sns, ws)
	t.History = make(map[uint16][]byte)
	t.CV = 0
}

// Schedulable reports whether this TBF owes a fresh or resend block
// this tick (spec §4.E "per-frame-number tick", DL branch).
func (t *DlTbf) Schedulable() bool {
	if t.State != StateFlow {
		return false
	}
	if _, ok := t.Window.ResendNeeded(); ok {
		return true
	}
	return t.Window.VS() != t.Window.VA()
}

// Detach implements msreg.DlAttach.
func (t *DlTbf) Detach() {}
