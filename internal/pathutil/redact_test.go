package pathutil

import "testing"

func TestRedactPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"database", "/home/user/.geotree/geotree.db", ".../.geotree/geotree.db"},
		{"deep", "/a/b/c/d/e.jsonl", ".../d/e.jsonl"},
		{"root file", "/runs.db", "runs.db"},
		{"relative", "dir/hints.yaml", ".../dir/hints.yaml"},
		{"just filename", "hints.yaml", "hints.yaml"},
		{"trailing slash cleaned", "/home/user/.geotree/", ".../user/.geotree"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactPath(tt.input)
			if got != tt.want {
				t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
