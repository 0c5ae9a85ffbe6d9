package enum

// Style is the direction of a bar body.
type Style int8

const (
	StyleFalling Style = -1
	StyleFlat    Style = 0
	StyleRising  Style = 1
)

func (s Style) String() string {
	switch s {
	case StyleRising:
		return "rising"
	case StyleFalling:
		return "falling"
	default:
		return "flat"
	}
}
