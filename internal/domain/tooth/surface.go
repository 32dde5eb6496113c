package tooth

import (
	"encoding/json"
	"strings"

	"github.com/dental/dental/internal/platform/apperr"
)

// Surface is one face of a tooth.
type Surface uint8

const (
	Mesial Surface = 1 << iota
	Occlusal
	Distal
	Buccal
	Lingual
)

// SurfaceOrder is the canonical rendering order of surface letters.
const SurfaceOrder = "MODBL"

var allSurfaces = [...]Surface{Mesial, Occlusal, Distal, Buccal, Lingual}

// AllSurfaces returns the five surfaces in canonical order.
func AllSurfaces() []Surface {
	out := allSurfaces
	return out[:]
}

// ParseSurface maps an upper-case letter to its surface.
func ParseSurface(r rune) (Surface, error) {
	if i := strings.IndexRune(SurfaceOrder, r); i >= 0 {
		return allSurfaces[i], nil
	}
	return 0, apperr.Invalid("invalid surface %q, expected one of %s", string(r), SurfaceOrder)
}

func (s Surface) Letter() string {
	for i, x := range allSurfaces {
		if x == s {
			return SurfaceOrder[i : i+1]
		}
	}
	return "?"
}

func (s Surface) String() string {
	switch s {
	case Mesial:
		return "Mesial"
	case Occlusal:
		return "Occlusal"
	case Distal:
		return "Distal"
	case Buccal:
		return "Buccal"
	case Lingual:
		return "Lingual"
	}
	return "Unknown"
}

// SurfaceSet is a set of surfaces. The zero value is the empty set.
type SurfaceSet uint8

// ParseSurfaces reads a compact surface string such as "MOD". Letters may
// repeat and appear in any order; anything outside MODBL is rejected,
// including lower case and whitespace.
func ParseSurfaces(s string) (SurfaceSet, error) {
	var set SurfaceSet
	for _, r := range s {
		sf, err := ParseSurface(r)
		if err != nil {
			return 0, err
		}
		set = set.With(sf)
	}
	return set, nil
}

// NewSurfaceSet builds a set from individual surfaces.
func NewSurfaceSet(surfaces ...Surface) SurfaceSet {
	var set SurfaceSet
	for _, s := range surfaces {
		set = set.With(s)
	}
	return set
}

func (set SurfaceSet) Has(s Surface) bool { return set&SurfaceSet(s) != 0 }

func (set SurfaceSet) With(s Surface) SurfaceSet { return set | SurfaceSet(s) }

func (set SurfaceSet) Without(s Surface) SurfaceSet { return set &^ SurfaceSet(s) }

// Toggle adds s when absent and removes it when present.
func (set SurfaceSet) Toggle(s Surface) SurfaceSet { return set ^ SurfaceSet(s) }

func (set SurfaceSet) IsEmpty() bool { return set == 0 }

// String renders the set in MODBL order; the empty set is "".
func (set SurfaceSet) String() string {
	var b strings.Builder
	for i, s := range allSurfaces {
		if set.Has(s) {
			b.WriteByte(SurfaceOrder[i])
		}
	}
	return b.String()
}

func (set SurfaceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(set.String())
}

func (set *SurfaceSet) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperr.Invalid("surfaces must be a string such as \"MOD\"")
	}
	parsed, err := ParseSurfaces(s)
	if err != nil {
		return err
	}
	*set = parsed
	return nil
}
