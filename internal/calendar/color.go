package calendar

// Palette is the fixed set of hues sources are colored from. Ten hues is
// enough to keep typical dashboards collision-free; beyond that sources
// share colors.
var Palette = []string{
	"#f25f5c",
	"#f6aa1c",
	"#2ec4b6",
	"#9b5de5",
	"#00bbf9",
	"#f15bb5",
	"#90be6d",
	"#ff7b00",
	"#577590",
	"#ef476f",
}

// hashString is a polynomial rolling hash with multiplier 31 and unsigned
// 32-bit wraparound; it must stay stable forever because assigned colors
// persist across sessions.
func hashString(value string) uint32 {
	var hash uint32
	for _, r := range value {
		hash = hash*31 + uint32(r)
	}
	return hash
}

// PickColor deterministically chooses a palette color for a source.
// Scanning forward from the hashed base index, the first color not
// already used by another source wins; with the palette exhausted the
// base color is reused. Callers own the used map and must record the
// returned color in it themselves.
func PickColor(source string, used map[string]string) string {
	base := int(hashString(source) % uint32(len(Palette)))
	for i := 0; i < len(Palette); i++ {
		color := Palette[(base+i)%len(Palette)]
		if !colorInUse(color, used) {
			return color
		}
	}
	return Palette[base]
}

func colorInUse(color string, used map[string]string) bool {
	for _, c := range used {
		if c == color {
			return true
		}
	}
	return false
}
