package notation

import "testing"

func TestTranslate_Palmer(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "8"}, {8, "1"},
		{9, "1"}, {16, "8"},
		{17, "8"}, {24, "1"},
		{25, "1"}, {32, "8"},
		{3, "6"}, {14, "6"}, {19, "6"}, {30, "6"},
	}
	for _, tt := range tests {
		if got := Translate(tt.n, Palmer); got != tt.want {
			t.Errorf("Translate(%d, Palmer) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTranslate_PalmerFormulaAllTeeth(t *testing.T) {
	for n := MinTooth; n <= MaxTooth; n++ {
		var want int
		switch {
		case n <= 8:
			want = 9 - n
		case n <= 16:
			want = n - 8
		case n <= 24:
			want = 25 - n
		default:
			want = n - 24
		}
		if got := PalmerNumber(n); got != want {
			t.Errorf("PalmerNumber(%d) = %d, want %d", n, got, want)
		}
		if got := PalmerNumber(n); got < 1 || got > 8 {
			t.Errorf("PalmerNumber(%d) = %d, outside 1..8", n, got)
		}
	}
}

func TestTranslate_UniversalIsIdentity(t *testing.T) {
	for n := MinTooth; n <= MaxTooth; n++ {
		want := Describe(n, Universal).Label
		if got := Translate(n, Universal); got != want {
			t.Errorf("Translate(%d, Universal) = %q, want %q", n, got, want)
		}
	}
	if got := Translate(32, Universal); got != "32" {
		t.Errorf("expected 32, got %q", got)
	}
}

func TestPalmer_QuadrantPositionsAreUnique(t *testing.T) {
	seen := make(map[Quadrant]map[int]bool)
	for n := MinTooth; n <= MaxTooth; n++ {
		q := QuadrantOf(n)
		if seen[q] == nil {
			seen[q] = make(map[int]bool)
		}
		p := PalmerNumber(n)
		if seen[q][p] {
			t.Fatalf("duplicate Palmer position %d in quadrant %s", p, q)
		}
		seen[q][p] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 quadrants, got %d", len(seen))
	}
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Scheme
		wantErr bool
	}{
		{"", Universal, false},
		{"universal", Universal, false},
		{"PALMER", Palmer, false},
		{" palmer ", Palmer, false},
		{"fdi", "", true},
	}
	for _, tt := range tests {
		got, err := ParseScheme(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScheme(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScheme(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := map[int]string{
		1:  "Upper Right Third Molar",
		8:  "Upper Right Central Incisor",
		11: "Upper Left Canine",
		17: "Lower Left Third Molar",
		24: "Lower Left Central Incisor",
		28: "Lower Right First Premolar",
		32: "Lower Right Third Molar",
		0:  "",
		33: "",
	}
	for n, want := range tests {
		if got := Name(n); got != want {
			t.Errorf("Name(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := map[int]Kind{1: Molar, 4: Premolar, 6: Canine, 7: Incisor, 22: Canine, 30: Molar}
	for n, want := range tests {
		if got := KindOf(n); got != want {
			t.Errorf("KindOf(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestChart_DisplayOrder(t *testing.T) {
	teeth := Chart(Palmer)
	if len(teeth) != 32 {
		t.Fatalf("expected 32 teeth, got %d", len(teeth))
	}
	if teeth[0].Number != 1 || teeth[15].Number != 16 {
		t.Errorf("upper arch should run 1..16, got %d..%d", teeth[0].Number, teeth[15].Number)
	}
	if teeth[16].Number != 32 || teeth[31].Number != 17 {
		t.Errorf("lower arch should run 32..17, got %d..%d", teeth[16].Number, teeth[31].Number)
	}
	if teeth[16].Label != "8" || teeth[16].Upper {
		t.Errorf("unexpected descriptor for 32: %+v", teeth[16])
	}
}
