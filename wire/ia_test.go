package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeIADownlinkEGPRS checks the fixed first 11 octets of the
// conformance vector (spec §8 S1): single-slot EGPRS downlink assignment.
func TestEncodeIADownlinkEGPRS(t *testing.T) {
	want := []byte{
		0x06, 0x3f, 0x30, 0x0d, 0x23, 0x6d, 0x7f, 0x03, 0x18, 0x23, 0x00,
		0xd0, 0x00, 0x00, 0x00, 0x08, 0x17, 0x47, 0x08, 0x0b, 0x5b, 0x2b, 0x2b,
	}

	got, err := EncodeIA(ImmediateAssignParams{
		Downlink: true,
		RA:       0x7f,
		RefFN:    24, // yields T1'=0, T3=24, T2=24, matching the conformance vector's Request Reference octets
		TA:       35,
		ARFCN:    877,
		TS:       5,
		TSC:      1,
		DL: &IADownlink{
			TLLI:  0,
			TFI:   1,
			EGPRS: true,
			WS:    384,
		},
		Alpha:   7,
		Gamma:   8,
		TAIdx:   0,
		Polling: true,
		FN:      11,
	})
	require.NoError(t, err)
	require.Len(t, got, iaMessageLen)
	assert.Equal(t, want[:11], got[:11], "fixed prefix (Packet Channel Description, Request Reference, TA, Mobile Allocation)")
}

func TestEncodeIARejectLength(t *testing.T) {
	got, err := EncodeIAReject(112, 100, BurstAccess1)
	require.NoError(t, err)
	assert.Len(t, got, iaRejectLen)
	assert.Equal(t, byte(0x7f), got[3], "RA value at offset 3")
	assert.Equal(t, byte(0xc0), got[len(got)-1], "extended RA value at the last octet")
}

func TestEncodeIARejectAccess0(t *testing.T) {
	got, err := EncodeIAReject(112, 100, BurstAccess0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x70), got[3])
}
