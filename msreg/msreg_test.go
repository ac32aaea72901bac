package msreg

import "testing"

type fakeAttach struct{ detached bool }

func (f *fakeAttach) Detach() { f.detached = true }

func TestRegistryGetOrCreateDedupes(t *testing.T) {
	r := NewRegistry()
	a := r.GetOrCreate(0x1234, 0)
	b := r.GetOrCreate(0x1234, 0)
	if a != b {
		t.Fatal("GetOrCreate created a second MS for the same TLLI")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestStageAndConfirmULTLLI(t *testing.T) {
	ms := newMS(0xAAAA0001)
	ms.StageULTLLI(0xAAAA0002)
	if ms.TLLI() != 0xAAAA0002 {
		t.Fatalf("TLLI() = %x, want staged value", ms.TLLI())
	}
	if !ms.ConfirmTLLI(0xAAAA0002) {
		t.Fatal("ConfirmTLLI did not match staged TLLI")
	}
	if ms.TLLI() != 0xAAAA0002 {
		t.Fatalf("TLLI() after confirm = %x, want %x", ms.TLLI(), 0xAAAA0002)
	}
	if ms.newULTLLI != 0 {
		t.Fatal("staged slot not cleared after confirm")
	}
}

func TestCheckTLLIRejectsZero(t *testing.T) {
	ms := newMS(0x1)
	if ms.CheckTLLI(0) {
		t.Fatal("CheckTLLI(0) should never match")
	}
}

func TestGuardBlocksIdleRemoval(t *testing.T) {
	r := NewRegistry()
	ms := r.GetOrCreate(0x42, 0)
	g := NewGuard(ms)
	r.Idle(ms)
	if r.Len() != 1 {
		t.Fatal("guarded MS was removed while a Guard was outstanding")
	}
	g.Release()
	r.Idle(ms)
	if r.Len() != 0 {
		t.Fatal("MS not removed once guard released and no TBF attached")
	}
}

func TestDetachCallsTBF(t *testing.T) {
	ms := newMS(0x7)
	fa := &fakeAttach{}
	ms.AttachUL(fa)
	if ms.IsIdle() {
		t.Fatal("MS with attached UL TBF should not be idle")
	}
	ms.DetachUL()
	if !fa.detached {
		t.Fatal("DetachUL did not call Detach on the attached TBF")
	}
	if !ms.IsIdle() {
		t.Fatal("MS should be idle after detaching its only TBF")
	}
}

func TestRegistryCloseDetachesAll(t *testing.T) {
	r := NewRegistry()
	ms := r.GetOrCreate(0x99, 0)
	fa := &fakeAttach{}
	ms.AttachDL(fa)
	r.Close()
	if !fa.detached {
		t.Fatal("Close did not detach the DL TBF")
	}
	if r.Len() != 0 {
		t.Fatalf("Len after Close = %d, want 0", r.Len())
	}
}
