package bts

import "testing"

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCSDL = 9
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected validation error for out-of-range initial_cs_dl")
	}
}

func TestAllocateUplinkAlgorithmA(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	trx := NewTrx(100)
	trx.Pdchs[2].Enabled = true
	b.AddTrx(trx)

	res, err := b.AllocateUplink(0, false)
	if err != nil {
		t.Fatalf("AllocateUplink: %v", err)
	}
	if res.FirstCommonTS != 2 {
		t.Fatalf("FirstCommonTS = %d, want 2", res.FirstCommonTS)
	}
}

func TestAllocateUplinkNoResourcesWhenNothingEnabled(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.AddTrx(NewTrx(100))

	if _, err := b.AllocateUplink(0, false); err == nil {
		t.Fatal("expected NoResources with no enabled PDCH")
	}
}

func TestCloseTearsDownRegistry(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Registry.GetOrCreate(0x1, 0)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if b.Registry.Len() != 0 {
		t.Fatalf("Registry.Len() after Close = %d, want 0", b.Registry.Len())
	}
}
