package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/guidoenr/sortwave/internal/audio"
)

// PrintDevices lists capture-capable devices. auto names the device picked
// when no source is given, or "" if none was found.
func PrintDevices(w io.Writer, devices []audio.Device, auto string) {
	fmt.Fprintln(w, HeaderStyle.Render("Audio input devices"))
	inputs := audio.InputDevices(devices)
	if len(inputs) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  none found"))
	}
	for _, dev := range inputs {
		var markers []string
		if dev.IsDefaultInput {
			markers = append(markers, SuccessStyle.Render("default"))
		}
		if !dev.Usable {
			markers = append(markers, HighlightStyle.Render("mono"))
		}
		line := "  " + ValueStyle.Render(dev.Name) + " " + KeyStyle.Render("["+dev.HostAPI+"]")
		if len(markers) > 0 {
			line += " " + strings.Join(markers, " ")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, KeyStyle.Render(fmt.Sprintf("    inputs:%d outputs:%d sample:%.0f Hz",
			dev.MaxInput, dev.MaxOutput, dev.DefaultSampleHz)))
	}
	if auto != "" {
		fmt.Fprintln(w)
		PrintInfo(w, "Auto-detected input", auto)
	}
}
