package wire

import (
	"testing"

	"github.com/osmo-go/pcu-rlcmac/coding"
)

func TestEncodeDlDataHeaderGPRS(t *testing.T) {
	h := DlDataHeader{
		CS:   coding.CS2,
		USF:  5,
		ESP:  1,
		RRBP: 2,
		TFI:  7,
		Blocks: [2]BlockInfo{
			{BSN: 42, CV: 0, E: true},
		},
	}
	header, bitOffset, err := EncodeDlDataHeader(h)
	if err != nil {
		t.Fatalf("EncodeDlDataHeader: %v", err)
	}
	if bitOffset != 24 {
		t.Fatalf("bitOffset = %d, want 24", bitOffset)
	}
	if len(header) != 3 {
		t.Fatalf("header len = %d, want 3", len(header))
	}
	if header[0]&0x07 != 5 {
		t.Errorf("USF not encoded: %08b", header[0])
	}
	if header[0]&0x08 == 0 {
		t.Errorf("poll bit not set: %08b", header[0])
	}
	if header[1]&0x1f != 7 {
		t.Errorf("TFI not encoded: %08b", header[1])
	}
	if header[2]&0x7f != 42 {
		t.Errorf("BSN not encoded: %08b", header[2])
	}
	if header[2]&0xc0 == 0 {
		t.Errorf("FBI/E bits not set: %08b", header[2])
	}
}

func TestEncodeDlDataHeaderEGPRSType1TwoBlocks(t *testing.T) {
	h := DlDataHeader{
		CS:  coding.MCS7,
		USF: 1,
		TFI: 9,
		Blocks: [2]BlockInfo{
			{BSN: 100, CV: 3, E: false},
			{BSN: 101, CV: 0, E: true},
		},
	}
	header, bitOffset, err := EncodeDlDataHeader(h)
	if err != nil {
		t.Fatalf("EncodeDlDataHeader: %v", err)
	}
	if bitOffset != 33 {
		t.Fatalf("bitOffset = %d, want 33", bitOffset)
	}
	if len(header) != 4 {
		t.Fatalf("header len = %d, want 4", len(header))
	}
}
