package tbf

import (
	"testing"

	"github.com/osmo-go/pcu-rlcmac/coding"
)

func testLimits() Limits {
	return Limits{
		N3101Max: 3, N3103Max: 3, N3105Max: 3,
		T3169: 50, T3191: 50, T3193: 50, T3195: 50,
	}
}

func TestUlTbfAssignToFlow(t *testing.T) {
	u := NewUlTbf(testLimits(), 128, 64)
	u.Assign(4, 100)
	if u.State != StateAssign {
		t.Fatalf("state = %v, want ASSIGN", u.State)
	}
	u.SchedulePoll(110)
	u.ControlAckReceived(110)
	if u.State != StateFlow {
		t.Fatalf("state = %v, want FLOW", u.State)
	}
	if u.Poll != PollNone {
		t.Fatalf("poll state = %v, want PollNone", u.Poll)
	}
}

func TestUlTbfAssignTimeoutReleases(t *testing.T) {
	u := NewUlTbf(testLimits(), 128, 64)
	u.Assign(4, 100)
	u.SchedulePoll(110)
	for i := 0; i < 3; i++ {
		u.SchedulePoll(110)
		u.PollTimeout()
	}
	if u.State != StateReleasing {
		t.Fatalf("state = %v, want RELEASING after N3101Max timeouts", u.State)
	}
	if u.TFI != 0 {
		t.Error("TFI not freed on release")
	}
}

func TestDlTbfLifecycleToWaitRelease(t *testing.T) {
	d := NewDlTbf(testLimits(), 128, 64, coding.CS1)
	d.Assign(2, 0)
	d.SchedulePoll(10)
	d.ControlAckReceived(10)
	if d.State != StateFlow {
		t.Fatalf("state = %v, want FLOW", d.State)
	}
	d.CountdownComplete()
	if d.State != StateFinished {
		t.Fatalf("state = %v, want FINISHED", d.State)
	}
	d.FinalAckAcknowledged(20)
	if d.State != StateWaitRelease {
		t.Fatalf("state = %v, want WAIT_RELEASE", d.State)
	}
	d.Tick(69) // deadlineFN = 20+50 = 70, not yet
	if d.State != StateWaitRelease {
		t.Fatal("expired too early")
	}
	d.Tick(70)
	if d.State != StateReleasing {
		t.Fatalf("state = %v, want RELEASING after T3193", d.State)
	}
}

func TestDlTbfHistoryResend(t *testing.T) {
	d := NewDlTbf(testLimits(), 128, 64, coding.CS1)
	d.StoreHistory(5, []byte{1, 2, 3})
	got, err := d.Resend(5)
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if len(got) != 3 || got[0] != 1 {
		t.Fatalf("Resend = %v, want [1 2 3]", got)
	}
	if _, err := d.Resend(9); err == nil {
		t.Fatal("expected error resending a BSN with no history")
	}
}

func TestResetWindowStateClearsHistoryAndCounters(t *testing.T) {
	d := NewDlTbf(testLimits(), 128, 64, coding.CS1)
	d.StoreHistory(1, []byte{9})
	d.N3105 = 2
	d.State = StateWaitRelease
	d.ResetWindowState(128, 64)
	if len(d.History) != 0 {
		t.Fatal("history not cleared on reuse")
	}
	if d.N3105 != 0 {
		t.Fatal("N3105 not cleared on reuse")
	}
	if d.State != StateFlow {
		t.Fatalf("state after reuse = %v, want FLOW", d.State)
	}
}
