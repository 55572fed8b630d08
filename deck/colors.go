package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// rgb is one parsed color channel triple.
type rgb struct {
	r, g, b int
}

func hexToRGB(hex string) rgb {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return rgb{}
	}
	r, err1 := strconv.ParseInt(h[0:2], 16, 0)
	g, err2 := strconv.ParseInt(h[2:4], 16, 0)
	b, err3 := strconv.ParseInt(h[4:6], 16, 0)
	if err1 != nil || err2 != nil || err3 != nil {
		return rgb{}
	}
	return rgb{int(r), int(g), int(b)}
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02X%02X%02X", clampChannel(c.r), clampChannel(c.g), clampChannel(c.b))
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Lighten moves a "#RRGGBB" color toward white by factor in [0,1].
func Lighten(hex string, factor float64) string {
	c := hexToRGB(hex)
	return rgb{
		r: c.r + int(float64(255-c.r)*factor),
		g: c.g + int(float64(255-c.g)*factor),
		b: c.b + int(float64(255-c.b)*factor),
	}.hex()
}

// Darken moves a "#RRGGBB" color toward black by factor in [0,1].
func Darken(hex string, factor float64) string {
	c := hexToRGB(hex)
	return rgb{
		r: int(float64(c.r) * (1 - factor)),
		g: int(float64(c.g) * (1 - factor)),
		b: int(float64(c.b) * (1 - factor)),
	}.hex()
}

// PlainHex strips the "#" prefix; slide XML wants bare RRGGBB values.
func PlainHex(hex string) string {
	return strings.TrimPrefix(hex, "#")
}
