package matching

import "strings"

const fallbackColor = "#000000"

// Harmony scores by rule, highest precedence first (see colorHarmonyScore).
const (
	colorNeutralScore       = 0.9
	colorProfessionalScore  = 0.95
	colorComplementaryScore = 0.85
	colorAnalogousScore     = 0.8
	colorSameFamilyScore    = 0.7
	colorDefaultScore       = 0.5
)

var namedColors = map[string]string{
	"black": "#000000", "white": "#FFFFFF", "red": "#FF0000",
	"blue": "#0000FF", "green": "#008000", "yellow": "#FFFF00",
	"purple": "#800080", "pink": "#FFC0CB", "brown": "#A52A2A",
	"gray": "#808080", "grey": "#808080", "navy": "#000080",
	"beige": "#F5F5DC",
}

// Neutrals pair with anything, so they short-circuit the harmony tables.
var neutralColors = map[string]bool{
	"#000000": true, "#FFFFFF": true, "#808080": true,
	"#F5F5DC": true, "#000080": true, "#A52A2A": true,
}

type colorPair struct{ a, b string }

func pairKey(a, b string) colorPair {
	if a > b {
		a, b = b, a
	}
	return colorPair{a, b}
}

func pairTable(pairs ...[2]string) map[colorPair]bool {
	table := make(map[colorPair]bool, len(pairs))
	for _, p := range pairs {
		table[pairKey(p[0], p[1])] = true
	}
	return table
}

// Office-classic combinations. Kept to non-neutral hexes: anything
// involving a neutral already matches the neutral rule first.
var professionalPairs = pairTable(
	[2]string{"#0000FF", "#ADD8E6"}, // blue / light blue
	[2]string{"#ADD8E6", "#36454F"}, // light blue / charcoal
	[2]string{"#ADD8E6", "#800020"}, // light blue / burgundy
	[2]string{"#FFC0CB", "#36454F"}, // pink / charcoal
	[2]string{"#800020", "#36454F"}, // burgundy / charcoal
)

var complementaryPairs = pairTable(
	[2]string{"#FF0000", "#008000"}, // red / green
	[2]string{"#0000FF", "#FFA500"}, // blue / orange
	[2]string{"#FFFF00", "#800080"}, // yellow / purple
)

var analogousPairs = pairTable(
	[2]string{"#FF0000", "#FFA500"}, // red / orange
	[2]string{"#FFA500", "#FFFF00"}, // orange / yellow
	[2]string{"#008000", "#0000FF"}, // green / blue
	[2]string{"#0000FF", "#800080"}, // blue / purple
	[2]string{"#0000FF", "#ADD8E6"}, // blue / light blue
	[2]string{"#FF0000", "#FFC0CB"}, // red / pink
)

// NormalizeColor sanitizes a classifier-reported color to "#RRGGBB"
// uppercase. Unrecognized input collapses to black rather than failing.
func NormalizeColor(raw string) string {
	if hex, ok := lookupColor(raw); ok {
		return hex
	}
	return fallbackColor
}

func normalizeOptionalColor(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return NormalizeColor(raw)
}

// lookupColor resolves hex ("1a2b3c", "#FFF") and the small named-color
// table; ok is false when the input maps to nothing.
func lookupColor(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	candidate := strings.ToUpper(strings.TrimPrefix(trimmed, "#"))
	if isHexDigits(candidate) {
		switch len(candidate) {
		case 6:
			return "#" + candidate, true
		case 3:
			var expanded strings.Builder
			for _, digit := range candidate {
				expanded.WriteRune(digit)
				expanded.WriteRune(digit)
			}
			return "#" + expanded.String(), true
		}
	}
	if hex, ok := namedColors[foldKey(trimmed)]; ok {
		return hex, true
	}
	return "", false
}

func isHexDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}

// IsNeutralColor reports whether a normalized hex belongs to the neutral
// set (black, white, gray, beige, navy, brown).
func IsNeutralColor(hex string) bool {
	return neutralColors[strings.ToUpper(hex)]
}

// colorHarmonyScore applies the harmony rules in fixed precedence order;
// the first matching rule wins.
func colorHarmonyScore(a, b string) float64 {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	key := pairKey(a, b)
	switch {
	case neutralColors[a] || neutralColors[b]:
		return colorNeutralScore
	case professionalPairs[key]:
		return colorProfessionalScore
	case complementaryPairs[key]:
		return colorComplementaryScore
	case analogousPairs[key]:
		return colorAnalogousScore
	case len(a) > 1 && len(b) > 1 && a[1] == b[1]:
		return colorSameFamilyScore
	default:
		return colorDefaultScore
	}
}
