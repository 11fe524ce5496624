package enrich

import "testing"

func TestMapCategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"kasperltheater im hof", "theater"},
		{"sonderausstellung für kinder", "museum"},
		{"bastel-workshop", "kreativ"},
		{"ferienprogramm im freibad", "schwimmbad"},
		{"irgendwas anderes", "event"},
	}
	for _, tt := range tests {
		if got := MapCategory(tt.text); got != tt.want {
			t.Errorf("MapCategory(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestMapCategoryFirstHitWins(t *testing.T) {
	// Theater precedes sport in the taxonomy order.
	if got := MapCategory("theater und tanz"); got != "theater" {
		t.Errorf("expected theater, got %q", got)
	}
}

func TestMapLocationCategory(t *testing.T) {
	if got := MapLocationCategory("tierpark hellabrunn"); got != "tierpark" {
		t.Errorf("expected tierpark, got %q", got)
	}
	if got := MapLocationCategory("unbekannter ort"); got != "location" {
		t.Errorf("expected location fallback, got %q", got)
	}
}

func TestInferAgeGroups(t *testing.T) {
	groups := InferAgeGroups("krabbelgruppe für babys, auch schulkinder willkommen", "event")
	if !contains(groups, AgeToddler) || !contains(groups, AgeSchool) {
		t.Errorf("expected toddler and school groups, got %v", groups)
	}

	// No explicit mention falls back to the category default.
	groups = InferAgeGroups("eine vorstellung", "theater")
	if !contains(groups, AgePreschool) {
		t.Errorf("expected category default, got %v", groups)
	}
}

func TestKidsNames(t *testing.T) {
	if got := KidsEventName("Kindermusical", "musik konzert"); got != "🎵 Kindermusical" {
		t.Errorf("unexpected kids name %q", got)
	}
	if got := KidsEventName("Sonstiges", "nichts erkennbares"); got != "🎉 Sonstiges" {
		t.Errorf("expected generic emoji, got %q", got)
	}
	long := KidsLocationName("Ein sehr sehr sehr sehr sehr sehr sehr sehr langer Ortsname hier", "museum")
	if len([]rune(long)) > kidsNameLimit+3 {
		t.Errorf("kids name not truncated: %q", long)
	}
}
