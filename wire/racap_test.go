package wire

import (
	"errors"
	"testing"

	"github.com/osmo-go/pcu-rlcmac/core"
	"github.com/osmo-go/pcu-rlcmac/internal/bitbuf"
)

func buildRACapFixture(multislotClass, egprsClass uint8) []byte {
	w := bitbuf.NewWriter(8)
	w.WriteField(0, 4) // access technology type
	w.WriteField(16, 7) // length in bits of the fields below
	w.WriteField(4, 3) // RF power class
	w.WriteBit(false)  // no A5 bits
	w.WriteBit(true)   // EGPRS present
	w.WriteField(uint64(egprsClass), 5)
	w.WriteBit(true) // multislot class present
	w.WriteField(uint64(multislotClass), 5)
	w.PadToByte()
	return w.Bytes()
}

func TestDecodeMSRadioAccessCap(t *testing.T) {
	buf := buildRACapFixture(12, 20)
	cap, err := DecodeMSRadioAccessCap(buf)
	if err != nil {
		t.Fatalf("DecodeMSRadioAccessCap: %v", err)
	}
	if !cap.EGPRSSupported {
		t.Error("expected EGPRS supported")
	}
	if cap.EGPRSMultislotClass != 20 {
		t.Errorf("EGPRSMultislotClass = %d, want 20", cap.EGPRSMultislotClass)
	}
	if cap.MultislotClass != 12 {
		t.Errorf("MultislotClass = %d, want 12", cap.MultislotClass)
	}
}

func TestDecodeMSRadioAccessCapEmpty(t *testing.T) {
	_, err := DecodeMSRadioAccessCap(nil)
	if !errors.Is(err, core.Sentinel(core.Malformed)) {
		t.Fatalf("err = %v, want Malformed", err)
	}
}

func TestClassifyEgprsChannelRequestReservedRange(t *testing.T) {
	if got := ClassifyEgprsChannelRequest(0x7ff); got != ChannelRequestUnknown {
		t.Errorf("ClassifyEgprsChannelRequest(0x7ff) = %v, want Unknown", got)
	}
}

func TestClassifyEgprsChannelRequestOnePhase(t *testing.T) {
	if got := ClassifyEgprsChannelRequest(0x012); got != ChannelRequestOnePhase {
		t.Errorf("ClassifyEgprsChannelRequest(0x012) = %v, want OnePhase", got)
	}
}
