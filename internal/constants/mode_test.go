package constants

import "testing"

func TestSiblingMode_Valid(t *testing.T) {
	tests := []struct {
		mode SiblingMode
		want bool
	}{
		{ModeStrict, true},
		{ModeLoose, true},
		{"", false},
		{"LOOSE", false},
		{"merge", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := tt.mode.Valid(); got != tt.want {
				t.Errorf("SiblingMode(%q).Valid() = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestSiblingMode_Loose(t *testing.T) {
	if !ModeLoose.Loose() {
		t.Error("ModeLoose.Loose() = false, want true")
	}
	if ModeStrict.Loose() {
		t.Error("ModeStrict.Loose() = true, want false")
	}
}
