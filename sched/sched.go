// Package sched implements the RTS-driven scheduler glue (spec §4.H):
// on each PH-RTS.ind it picks one message to send from a PDCH's
// queues, in priority order (scheduled poll response, then pending
// control messages, then one RLC data block), and publishes
// Prometheus counters for the events spec's ambient metrics call for.
//
// No tbf.cpp/pdch.cpp source exists in the retrieval pack for this
// glue (see DESIGN.md); it is built from spec §4.H's priority list
// and wired to the teacher's config-surface metrics idiom rather than
// osmo-pcu's C scheduler loop.
package sched

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osmo-go/pcu-rlcmac/tbf"
	"github.com/osmo-go/pcu-rlcmac/wire"
)

// Metrics are the Prometheus collectors this package publishes,
// grounded on the per-interface GaugeVec idiom runZeroInc-conniver and
// runZeroInc-sockstats use for their own per-NIC series.
type Metrics struct {
	TBFAllocated  *prometheus.CounterVec
	TBFReleased   *prometheus.CounterVec
	USFExhausted  prometheus.Counter
	RLCRetransmit prometheus.Counter
	PollTimeout   prometheus.Counter
}

// NewMetrics registers the scheduler's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid the global default
// registry's duplicate-registration panics across packages.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TBFAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcu_tbf_allocated_total",
			Help: "TBFs allocated, by direction.",
		}, []string{"direction"}),
		TBFReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcu_tbf_released_total",
			Help: "TBFs released, by direction.",
		}, []string{"direction"}),
		USFExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcu_usf_exhausted_total",
			Help: "Uplink allocations that failed because all USF values on a PDCH were in use.",
		}),
		RLCRetransmit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcu_rlc_retransmit_total",
			Help: "RLC data blocks resent from per-BSN history.",
		}),
		PollTimeout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcu_poll_timeout_total",
			Help: "poll_fn deadlines that elapsed without the expected PACKET CONTROL ACK.",
		}),
	}
	reg.MustRegister(m.TBFAllocated, m.TBFReleased, m.USFExhausted, m.RLCRetransmit, m.PollTimeout)
	return m
}

// MessageKind distinguishes what RTS picked for transmission.
type MessageKind uint8

const (
	NoMessage MessageKind = iota
	PollResponse
	ControlMessage
	DataBlock
)

// ControlQueue is the minimal shape sched needs from a PDCH's pending
// control-message queue (assignments, acks) — kept as an interface so
// this package doesn't need to know bts.Pdch's full layout.
type ControlQueue interface {
	// Peek reports whether a control message is pending without
	// removing it.
	Peek() (msg []byte, ok bool)
	// Pop removes and returns the next pending control message.
	Pop() (msg []byte, ok bool)
}

// Decision is what RTS(trx, ts, fn, blockNr) resolved to.
type Decision struct {
	Kind    MessageKind
	Payload []byte
	// BSN is populated when Kind == DataBlock.
	BSN uint16
}

// PendingPayload supplies the LI-plus-LLC-payload bytes (D)'s LLC
// segmenter has already produced for a fresh BSN on d (spec §2
// "Outgoing PH-DATA.req is assembled by (H), pulling from ... (D)'s
// segmentation output"). This package owns none of that queuing
// state; it only asks for what's next and packs it. ok is false when
// d has nothing segmented yet, in which case PickRTS moves on to the
// next candidate TBF.
type PendingPayload func(d *tbf.DlTbf, bsn uint16) (li, payload []byte, ok bool)

// packDataBlock encodes the RLC header for bsn on d and prepends it
// to the LI-plus-LLC body, the "packed by (B)" half of spec §2/§4.H's
// data flow.
func packDataBlock(d *tbf.DlTbf, bsn uint16, li, payload []byte) ([]byte, error) {
	header, _, err := wire.EncodeDlDataHeader(wire.DlDataHeader{
		CS:  d.CS,
		TFI: d.TFI,
		Blocks: [2]wire.BlockInfo{
			{BSN: bsn, CV: d.CV, E: len(li) == 0},
		},
	})
	if err != nil {
		return nil, err
	}
	packed := make([]byte, 0, len(header)+len(li)+len(payload))
	packed = append(packed, header...)
	packed = append(packed, li...)
	packed = append(packed, payload...)
	return packed, nil
}

// PickRTS implements spec §4.H's priority order for one PDCH at one
// RTS opportunity: (1) any TBF whose poll_fn == fn owes a polled
// response, (2) pending control messages, (3) one RLC data block
// (resend slot before fresh). ulTBFs/dlTBFs are the TBFs currently
// occupying this PDCH. pending may be nil, in which case no fresh
// block is ever produced (only resends, which replay history that
// was already packed).
func PickRTS(fn uint32, ulTBFs []*tbf.UlTbf, dlTBFs []*tbf.DlTbf, ctrl ControlQueue, m *Metrics, pending PendingPayload) Decision {
	for _, u := range ulTBFs {
		if u.Poll == tbf.PollSched && u.PollFN == fn {
			return Decision{Kind: PollResponse}
		}
	}
	for _, d := range dlTBFs {
		if d.Poll == tbf.PollSched && d.PollFN == fn {
			return Decision{Kind: PollResponse}
		}
	}

	if ctrl != nil {
		if msg, ok := ctrl.Pop(); ok {
			return Decision{Kind: ControlMessage, Payload: msg}
		}
	}

	for _, d := range dlTBFs {
		bsn, ok := d.Window.ResendNeeded()
		if !ok {
			continue
		}
		packed, err := d.Resend(bsn)
		if err != nil {
			continue
		}
		d.Window.MarkSent(bsn)
		if m != nil {
			m.RLCRetransmit.Inc()
		}
		return Decision{Kind: DataBlock, BSN: bsn, Payload: packed}
	}
	for _, d := range dlTBFs {
		if d.State != tbf.StateFlow || d.Window.VS() == d.Window.VA() || pending == nil {
			continue
		}
		bsn := d.Window.VS()
		li, payload, ok := pending(d, bsn)
		if !ok {
			continue
		}
		packed, err := packDataBlock(d, bsn, li, payload)
		if err != nil {
			continue
		}
		d.Window.IncrementSend()
		d.StoreHistory(bsn, packed)
		return Decision{Kind: DataBlock, BSN: bsn, Payload: packed}
	}

	return Decision{Kind: NoMessage}
}
