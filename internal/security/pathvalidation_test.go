package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	outDir := filepath.Join(tmpDir, "out")
	elsewhere := filepath.Join(tmpDir, "elsewhere")
	for _, d := range []string{outDir, elsewhere} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
	}
	link := filepath.Join(outDir, "link")
	if err := os.Symlink(elsewhere, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		dir       string
		wantError bool
	}{
		{"file in directory", filepath.Join(outDir, "MF90_SensitivityTable.txt"), outDir, false},
		{"nested new file", filepath.Join(outDir, "plots", "a.png"), outDir, false},
		{"dot dot escape", filepath.Join(outDir, "..", "a.txt"), outDir, true},
		{"relative escape", "../../../etc/passwd", outDir, true},
		{"absolute outside", "/etc/passwd", outDir, true},
		{"through symlink", filepath.Join(link, "a.txt"), outDir, true},
		{"symlink itself", link, outDir, true},
		{"missing directory", filepath.Join(tmpDir, "none", "a.txt"), filepath.Join(tmpDir, "none"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.dir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := OutputPath(dir, "Small Aperture/Telescope", "SensitivityTable.txt")
	if err != nil {
		t.Fatalf("OutputPath() error = %v", err)
	}
	want := filepath.Join(dir, "Small_Aperture_Telescope_SensitivityTable.txt")
	if got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}

	got, err = OutputPath(dir, "../../etc", "Report.html")
	if err != nil {
		t.Fatalf("OutputPath() error = %v", err)
	}
	if filepath.Dir(got) != filepath.Clean(dir) {
		t.Errorf("OutputPath() escaped the directory: %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SAT", "SAT"},
		{"LF 27/40", "LF_27_40"},
		{"../secret", "secret"},
		{"a***b", "a_b"},
		{"", "unknown"},
		{"///", "unknown"},
		{"mf-150.v2", "mf-150.v2"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("x", 500)); len(got) != 128 {
		t.Errorf("SanitizeFilename(long) length = %d, want 128", len(got))
	}
}
