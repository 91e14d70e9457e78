// Package color derives and checks the hex colors used for tags.
package color

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ForTag returns a stable "#RRGGBB" color for a tag name. The same name
// always yields the same color regardless of letter case.
func ForTag(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.55, 0.5)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// Valid reports whether s is a "#RRGGBB" hex color.
func Valid(s string) bool {
	return hexColor.MatchString(s)
}

// Normalize upper-cases a valid color and returns "" for anything else.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if !Valid(s) {
		return ""
	}
	return strings.ToUpper(s)
}

// hslToRGB converts hue (0-360), saturation and lightness (0-1) to RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q

	return channel(p, q, h+1.0/3.0), channel(p, q, h), channel(p, q, h-1.0/3.0)
}

func channel(p, q, t float64) uint8 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	var v float64
	switch {
	case t < 1.0/6.0:
		v = p + (q-p)*6*t
	case t < 1.0/2.0:
		v = q
	case t < 2.0/3.0:
		v = p + (q-p)*(2.0/3.0-t)*6
	default:
		v = p
	}
	return uint8(v*255 + 0.5)
}
