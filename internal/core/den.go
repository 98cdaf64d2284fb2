package core

// Den identifies a pack sub-group used to partition channels and user affiliation.
type Den string

const (
	DenLion         Den = "lion"
	DenTiger        Den = "tiger"
	DenWolf         Den = "wolf"
	DenBear         Den = "bear"
	DenWebelos      Den = "webelos"
	DenArrowOfLight Den = "arrow-of-light"
)

// Dens returns the fixed den enumeration in rank order.
func Dens() []Den {
	return []Den{DenLion, DenTiger, DenWolf, DenBear, DenWebelos, DenArrowOfLight}
}

// ParseDen returns the matching den, or "" when the value is not a known den.
func ParseDen(s string) Den {
	for _, d := range Dens() {
		if Den(s) == d {
			return d
		}
	}
	return ""
}
