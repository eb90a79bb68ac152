package analyzer

// Features describes the spectral balance of the latest capture block.
type Features struct {
	Bass   float64
	Mid    float64
	Treble float64
	RMS    float64
}

// Dominant names the strongest band, or "" for silence.
func (f Features) Dominant() string {
	switch {
	case f.Bass == 0 && f.Mid == 0 && f.Treble == 0:
		return ""
	case f.Bass >= f.Mid && f.Bass >= f.Treble:
		return "bass"
	case f.Mid >= f.Treble:
		return "mid"
	default:
		return "treble"
	}
}
