package alloc

import (
	"errors"
	"testing"

	"github.com/osmo-go/pcu-rlcmac/core"
)

// buildMaskPdchs builds one PDCH per set bit of mask on TRX 0, TS
// equal to the bit index.
func buildMaskPdchs(mask uint8) []*Pdch {
	var pdchs []*Pdch
	for ts := 0; ts < 8; ts++ {
		if mask&(1<<uint(ts)) != 0 {
			pdchs = append(pdchs, NewPdch(0, ts))
		}
	}
	return pdchs
}

// TestAlgorithmAExhaustsUSFBeforeTFI reproduces spec §8 S4: mask 0x0C
// (2 PDCHs) allows 14 successive UL allocations (7 usable USFs per
// PDCH), the 15th fails with NoResources, and freeing one lets the
// next succeed.
func TestAlgorithmAExhaustsUSFBeforeTFI(t *testing.T) {
	pdchs := buildMaskPdchs(0x0C)

	var results []Result
	for i := 0; i < 14; i++ {
		res, err := AlgorithmA(pdchs, Uplink)
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		results = append(results, res)
	}

	if _, err := AlgorithmA(pdchs, Uplink); !errors.Is(err, core.Sentinel(core.NoResources)) {
		t.Fatalf("15th allocation err = %v, want NoResources", err)
	}

	freed := results[0]
	for p, usf := range freed.USF {
		p.Release(Uplink, freed.TFI, usf, true)
	}

	if _, err := AlgorithmA(pdchs, Uplink); err != nil {
		t.Fatalf("allocation after free: %v", err)
	}
}

// TestAlgorithmBSharesFirstCommonTS reproduces spec §8 S5: allocating
// UL then DL for the same MS (class 10, mask 0xE0) must yield equal
// first_common_ts, and the reverse order must match too.
func TestAlgorithmBSharesFirstCommonTS(t *testing.T) {
	pdchs := buildMaskPdchs(0xE0)

	ul, err := AlgorithmB(pdchs, Uplink, 10, false, -1)
	if err != nil {
		t.Fatalf("UL AlgorithmB: %v", err)
	}
	dl, err := AlgorithmB(pdchs, Downlink, 10, false, ul.FirstCommonTS)
	if err != nil {
		t.Fatalf("DL AlgorithmB: %v", err)
	}
	if dl.FirstCommonTS != ul.FirstCommonTS {
		t.Fatalf("dl.FirstCommonTS = %d, ul.FirstCommonTS = %d, want equal", dl.FirstCommonTS, ul.FirstCommonTS)
	}

	pdchs2 := buildMaskPdchs(0xE0)
	dl2, err := AlgorithmB(pdchs2, Downlink, 10, false, -1)
	if err != nil {
		t.Fatalf("DL-first AlgorithmB: %v", err)
	}
	ul2, err := AlgorithmB(pdchs2, Uplink, 10, false, dl2.FirstCommonTS)
	if err != nil {
		t.Fatalf("UL-after-DL AlgorithmB: %v", err)
	}
	if ul2.FirstCommonTS != dl2.FirstCommonTS {
		t.Fatalf("reversed order: ul2=%d dl2=%d, want equal", ul2.FirstCommonTS, dl2.FirstCommonTS)
	}
}

func TestAlgorithmBUnknownClassIsNoResources(t *testing.T) {
	pdchs := buildMaskPdchs(0xFF)
	if _, err := AlgorithmB(pdchs, Uplink, 999, false, -1); !errors.Is(err, core.Sentinel(core.NoResources)) {
		t.Fatalf("err = %v, want NoResources", err)
	}
}
