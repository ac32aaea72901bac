package sched

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/tbf"
)

type fakeQueue struct {
	msgs [][]byte
}

func (q *fakeQueue) Peek() ([]byte, bool) {
	if len(q.msgs) == 0 {
		return nil, false
	}
	return q.msgs[0], true
}

func (q *fakeQueue) Pop() ([]byte, bool) {
	if len(q.msgs) == 0 {
		return nil, false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, true
}

func testLimits() tbf.Limits {
	return tbf.Limits{N3101Max: 3, N3103Max: 3, N3105Max: 3, T3169: 50, T3191: 50, T3193: 50, T3195: 50}
}

func TestPickRTSPollTakesPriority(t *testing.T) {
	u := tbf.NewUlTbf(testLimits(), 128, 64)
	u.SchedulePoll(42)
	ctrl := &fakeQueue{msgs: [][]byte{{1, 2, 3}}}

	d := PickRTS(42, []*tbf.UlTbf{u}, nil, ctrl, nil, nil)
	if d.Kind != PollResponse {
		t.Fatalf("Kind = %v, want PollResponse", d.Kind)
	}
}

func TestPickRTSControlBeforeData(t *testing.T) {
	dl := tbf.NewDlTbf(testLimits(), 128, 64, coding.CS1)
	dl.State = tbf.StateFlow
	ctrl := &fakeQueue{msgs: [][]byte{{9}}}

	d := PickRTS(1, nil, []*tbf.DlTbf{dl}, ctrl, nil, nil)
	if d.Kind != ControlMessage {
		t.Fatalf("Kind = %v, want ControlMessage", d.Kind)
	}
}

func TestPickRTSResendBeforeFresh(t *testing.T) {
	dl := tbf.NewDlTbf(testLimits(), 128, 64, coding.CS1)
	dl.State = tbf.StateFlow
	dl.Window.IncrementSend() // BSN 0 now Unacked
	dl.StoreHistory(0, []byte{0xaa, 0xbb})
	dl.Window.MarkForResend()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	d := PickRTS(1, nil, []*tbf.DlTbf{dl}, nil, m, nil)
	if d.Kind != DataBlock {
		t.Fatalf("Kind = %v, want DataBlock", d.Kind)
	}
	if d.BSN != 0 {
		t.Fatalf("BSN = %d, want 0 (the resend slot)", d.BSN)
	}
	if len(d.Payload) != 2 || d.Payload[0] != 0xaa {
		t.Fatalf("Payload = %v, want the stored history bytes", d.Payload)
	}
	if !dl.Window.IsUnacked(0) {
		t.Fatal("resent BSN not transitioned back to Unacked")
	}
}

func TestPickRTSResendAdvancesPastStaleBSN(t *testing.T) {
	dl := tbf.NewDlTbf(testLimits(), 128, 64, coding.CS1)
	dl.State = tbf.StateFlow
	dl.Window.IncrementSend() // BSN 0
	dl.Window.IncrementSend() // BSN 1
	dl.StoreHistory(0, []byte{1})
	dl.StoreHistory(1, []byte{2})
	dl.Window.MarkForResend()

	first := PickRTS(1, nil, []*tbf.DlTbf{dl}, nil, nil, nil)
	if first.BSN != 0 {
		t.Fatalf("first resend BSN = %d, want 0", first.BSN)
	}
	second := PickRTS(2, nil, []*tbf.DlTbf{dl}, nil, nil, nil)
	if second.BSN != 1 {
		t.Fatalf("second resend BSN = %d, want 1 (BSN 0 must not repeat forever)", second.BSN)
	}
}

func TestPickRTSFreshBlockAdvancesVS(t *testing.T) {
	dl := tbf.NewDlTbf(testLimits(), 128, 64, coding.CS1)
	dl.State = tbf.StateFlow
	dl.Window.IncrementSend() // VS now ahead of VA=0

	pending := func(d *tbf.DlTbf, bsn uint16) (li, payload []byte, ok bool) {
		return nil, []byte{1, 2, 3}, true
	}

	d := PickRTS(1, nil, []*tbf.DlTbf{dl}, nil, nil, pending)
	if d.Kind != DataBlock {
		t.Fatalf("Kind = %v, want DataBlock", d.Kind)
	}
	if d.BSN != 1 {
		t.Fatalf("BSN = %d, want 1 (the next fresh BSN after VS advanced once already)", d.BSN)
	}
	if len(d.Payload) == 0 {
		t.Fatal("expected a packed header+payload, got none")
	}
	if _, err := dl.Resend(d.BSN); err != nil {
		t.Fatalf("fresh block not stored in history: %v", err)
	}
}

func TestPickRTSNoneWhenIdle(t *testing.T) {
	d := PickRTS(1, nil, nil, nil, nil, nil)
	if d.Kind != NoMessage {
		t.Fatalf("Kind = %v, want NoMessage", d.Kind)
	}
}
