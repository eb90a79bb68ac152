package render

var (
	rampPalette  = []rune(" .:-=+*#%@")
	boxPalette   = []rune(" ░▒▓█")
	linesPalette = []rune(" `.-=+*/\\|╱╲╳╬")
	sparkPalette = []rune("  ´`^\"~:;*+×•¤°oO@#█")
)

// Palette returns glyphs ordered from darkest to brightest.
func Palette(name string) []rune {
	switch name {
	case "box":
		return boxPalette
	case "lines":
		return linesPalette
	case "spark":
		return sparkPalette
	default:
		return rampPalette
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"default", "box", "lines", "spark"}
}

// glyph picks the palette entry for a luminance in [0, 1].
func glyph(palette []rune, luminance float64) rune {
	last := len(palette) - 1
	i := int(clamp01(luminance)*float64(last) + 0.5)
	return palette[i]
}
