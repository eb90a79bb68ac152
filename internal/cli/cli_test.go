package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/guidoenr/sortwave/internal/audio"
)

func TestPrintDevicesListsInputsOnly(t *testing.T) {
	devices := []audio.Device{
		{Name: "Monitor of Built-in", HostAPI: "ALSA", MaxInput: 2, Usable: true, IsDefaultInput: true},
		{Name: "HDMI Out", HostAPI: "ALSA", MaxOutput: 8},
		{Name: "USB Mic", HostAPI: "ALSA", MaxInput: 1},
	}
	var buf bytes.Buffer
	PrintDevices(&buf, devices, "Monitor of Built-in")
	out := buf.String()
	for _, want := range []string{"Monitor of Built-in", "USB Mic", "Auto-detected input"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "HDMI Out") {
		t.Fatalf("output device listed:\n%s", out)
	}
}

func TestPrintDevicesEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintDevices(&buf, nil, "")
	if !strings.Contains(buf.String(), "none found") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}
