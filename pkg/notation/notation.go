// Package notation translates canonical tooth numbers (Universal 1-32) into
// display labels. Storage and lookups always use the canonical number; the
// labels produced here are for display only.
package notation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MinTooth = 1
	MaxTooth = 32
)

// Scheme selects the numbering system used for display labels.
type Scheme string

const (
	Universal Scheme = "universal"
	Palmer    Scheme = "palmer"
)

// ParseScheme accepts a scheme name case-insensitively. An empty string
// yields Universal.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", Universal:
		return Universal, nil
	case Palmer:
		return Palmer, nil
	}
	return "", fmt.Errorf("unknown notation %q", s)
}

// Valid reports whether n is a canonical tooth number.
func Valid(n int) bool {
	return n >= MinTooth && n <= MaxTooth
}

// Translate returns the display label for tooth n under scheme s.
func Translate(n int, s Scheme) string {
	if s == Palmer {
		return strconv.Itoa(PalmerNumber(n))
	}
	return strconv.Itoa(n)
}

// PalmerNumber returns the quadrant-relative position (1 = central incisor,
// 8 = third molar) of canonical tooth n.
func PalmerNumber(n int) int {
	switch {
	case n <= 8:
		return 9 - n
	case n <= 16:
		return n - 8
	case n <= 24:
		return 25 - n
	default:
		return n - 24
	}
}

// Quadrant identifies one quarter of the mouth from the patient's perspective.
type Quadrant string

const (
	UpperRight Quadrant = "UR"
	UpperLeft  Quadrant = "UL"
	LowerLeft  Quadrant = "LL"
	LowerRight Quadrant = "LR"
)

// QuadrantOf returns the quadrant containing canonical tooth n.
func QuadrantOf(n int) Quadrant {
	switch {
	case n <= 8:
		return UpperRight
	case n <= 16:
		return UpperLeft
	case n <= 24:
		return LowerLeft
	default:
		return LowerRight
	}
}

func (q Quadrant) String() string {
	switch q {
	case UpperRight:
		return "Upper Right"
	case UpperLeft:
		return "Upper Left"
	case LowerLeft:
		return "Lower Left"
	case LowerRight:
		return "Lower Right"
	}
	return string(q)
}

// Kind is the anatomical class of a tooth.
type Kind string

const (
	Molar    Kind = "Molar"
	Premolar Kind = "Premolar"
	Canine   Kind = "Canine"
	Incisor  Kind = "Incisor"
)

// KindOf derives the tooth class from its Palmer position.
func KindOf(n int) Kind {
	switch PalmerNumber(n) {
	case 1, 2:
		return Incisor
	case 3:
		return Canine
	case 4, 5:
		return Premolar
	default:
		return Molar
	}
}

var positionNames = [...]string{
	1: "Central Incisor",
	2: "Lateral Incisor",
	3: "Canine",
	4: "First Premolar",
	5: "Second Premolar",
	6: "First Molar",
	7: "Second Molar",
	8: "Third Molar",
}

// Name returns the full anatomical name, e.g. "Upper Right Third Molar".
func Name(n int) string {
	if !Valid(n) {
		return ""
	}
	return QuadrantOf(n).String() + " " + positionNames[PalmerNumber(n)]
}

// Tooth describes one tooth position on the chart.
type Tooth struct {
	Number   int      `json:"number"`
	Label    string   `json:"label"`
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Quadrant Quadrant `json:"quadrant"`
	Upper    bool     `json:"upper"`
}

// Describe builds the descriptor for tooth n under scheme s.
func Describe(n int, s Scheme) Tooth {
	return Tooth{
		Number:   n,
		Label:    Translate(n, s),
		Name:     Name(n),
		Kind:     KindOf(n),
		Quadrant: QuadrantOf(n),
		Upper:    n <= 16,
	}
}

// Chart returns all 32 teeth in display order: the upper arch 1..16 followed
// by the lower arch 32..17, so that both rows read from the patient's right.
func Chart(s Scheme) []Tooth {
	teeth := make([]Tooth, 0, MaxTooth)
	for n := 1; n <= 16; n++ {
		teeth = append(teeth, Describe(n, s))
	}
	for n := MaxTooth; n >= 17; n-- {
		teeth = append(teeth, Describe(n, s))
	}
	return teeth
}
