package extract

import "testing"

func TestInferMetadata(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantTitle   string
		wantEdition string
	}{
		{
			name:        "title and edition from conventional path",
			path:        "/data/Kids on Bikes 2e/Kids on Bikes - Core Rulebook - 20240607.md",
			wantTitle:   "Core Rulebook",
			wantEdition: "2e",
		},
		{
			name:        "edition defaults when folder has no token",
			path:        "/data/Dragonbane/Dragonbane - Bestiary.md",
			wantTitle:   "Bestiary",
			wantEdition: "1e",
		},
		{
			name:        "title falls back to file name without separator",
			path:        "/data/Gamma Wolves/quickstart.txt",
			wantTitle:   "quickstart",
			wantEdition: "1e",
		},
		{
			name:        "apostrophe in title",
			path:        "/data/Star Wars 5e/Star Wars - Scum and Villainy's Guide - v2.md",
			wantTitle:   "Scum and Villainy's Guide",
			wantEdition: "5e",
		},
		{
			name:        "edition token mid-folder is not matched",
			path:        "/data/2e Collection Archive/Rules - Appendix.md",
			wantTitle:   "Appendix",
			wantEdition: "1e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := InferMetadata(tt.path)
			if info.Title != tt.wantTitle {
				t.Errorf("Title: expected %q, got %q", tt.wantTitle, info.Title)
			}
			if info.Edition != tt.wantEdition {
				t.Errorf("Edition: expected %q, got %q", tt.wantEdition, info.Edition)
			}
		})
	}
}
