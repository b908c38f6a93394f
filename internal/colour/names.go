package colour

import (
	"slices"
	"strings"
)

// NamedColour is a single entry of the curated reference palette.
type NamedColour struct {
	Hex  string `json:"hex"`
	Name string `json:"name"`
	RGB  RGB    `json:"rgb"`
}

// namedColours is the curated reference palette keyed by lowercase "#rrggbb".
var namedColours = map[string]string{
	"#ffffff": "White",
	"#000000": "Black",
	"#ff0000": "Red",
	"#00ff00": "Lime",
	"#0000ff": "Blue",
	"#ffff00": "Yellow",
	"#00ffff": "Cyan",
	"#ff00ff": "Magenta",
	"#c0c0c0": "Silver",
	"#808080": "Gray",
	"#800000": "Maroon",
	"#808000": "Olive",
	"#008000": "Green",
	"#800080": "Purple",
	"#008080": "Teal",
	"#000080": "Navy",
	"#ffa500": "Orange",
	"#ffc0cb": "Pink",
	"#a52a2a": "Brown",
	"#f5f5dc": "Beige",
	"#fffff0": "Ivory",
	"#fffdd0": "Cream",
	"#e6e6fa": "Lavender",
	"#ff7f50": "Coral",
	"#fa8072": "Salmon",
	"#40e0d0": "Turquoise",
	"#4b0082": "Indigo",
	"#ee82ee": "Violet",
	"#ffd700": "Gold",
	"#dc143c": "Crimson",
	"#ff6347": "Tomato",
	"#ff4500": "Orange Red",
	"#ffdab9": "Peach",
	"#ff69b4": "Hot Pink",
	"#ff1493": "Deep Pink",
	"#da70d6": "Orchid",
	"#dda0dd": "Plum",
	"#9370db": "Medium Purple",
	"#8a2be2": "Blue Violet",
	"#9400d3": "Dark Violet",
	"#6a5acd": "Slate Blue",
	"#483d8b": "Dark Slate Blue",
	"#191970": "Midnight Blue",
	"#4169e1": "Royal Blue",
	"#1e90ff": "Dodger Blue",
	"#87ceeb": "Sky Blue",
	"#add8e6": "Light Blue",
	"#4682b4": "Steel Blue",
	"#5f9ea0": "Cadet Blue",
	"#6495ed": "Cornflower Blue",
	"#00bfff": "Deep Sky Blue",
	"#0047ab": "Cobalt Blue",
	"#00008b": "Dark Blue",
	"#e0ffff": "Light Cyan",
	"#7fffd4": "Aquamarine",
	"#20b2aa": "Light Sea Green",
	"#2e8b57": "Sea Green",
	"#98fb98": "Pale Green",
	"#90ee90": "Light Green",
	"#00ff7f": "Spring Green",
	"#7cfc00": "Lawn Green",
	"#7fff00": "Chartreuse",
	"#adff2f": "Green Yellow",
	"#9acd32": "Yellow Green",
	"#6b8e23": "Olive Drab",
	"#228b22": "Forest Green",
	"#006400": "Dark Green",
	"#50c878": "Emerald",
	"#98ff98": "Mint",
	"#f0e68c": "Khaki",
	"#daa520": "Goldenrod",
	"#b8860b": "Dark Goldenrod",
	"#f4a460": "Sandy Brown",
	"#d2691e": "Chocolate",
	"#8b4513": "Saddle Brown",
	"#a0522d": "Sienna",
	"#d2b48c": "Tan",
	"#8b0000": "Dark Red",
	"#b22222": "Firebrick",
	"#cd5c5c": "Indian Red",
	"#f08080": "Light Coral",
	"#ffb6c1": "Light Pink",
	"#ffe4e1": "Misty Rose",
	"#d3d3d3": "Light Gray",
	"#a9a9a9": "Dark Gray",
	"#696969": "Dim Gray",
	"#36454f": "Charcoal",
	"#708090": "Slate Gray",
	"#2f4f4f": "Dark Slate Gray",
	"#f5f5f5": "White Smoke",
	"#fffafa": "Snow",
}

// paletteEntries is namedColours pre-parsed and sorted by hex so nearest
// matching is deterministic when two entries are equidistant.
var paletteEntries = buildPalette()

func buildPalette() []NamedColour {
	entries := make([]NamedColour, 0, len(namedColours))
	for hex, name := range namedColours {
		entries = append(entries, NamedColour{Hex: hex, Name: name, RGB: MustParseHex(hex)})
	}
	slices.SortFunc(entries, func(a, b NamedColour) int {
		return strings.Compare(a.Hex, b.Hex)
	})
	return entries
}

// Palette returns a copy of the reference palette sorted by hex value.
func Palette() []NamedColour {
	return slices.Clone(paletteEntries)
}
