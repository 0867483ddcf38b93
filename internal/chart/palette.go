package chart

// Palette is the fixed series palette shared by every chart.
var Palette = []string{
	"#4f8bff",
	"#2dd4bf",
	"#f59e0b",
	"#c084fc",
	"#fb7185",
	"#34d399",
	"#a78bfa",
	"#22c55e",
	"#38bdf8",
}

// ColorAt returns the palette color for the i-th series.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// ColorFor picks a stable color for a category: the sum of its character
// codes modulo the palette size. An empty category uses the first color.
func ColorFor(category string) string {
	if category == "" {
		return Palette[0]
	}
	hash := 0
	for _, r := range category {
		hash += int(r)
	}
	return ColorAt(hash)
}
