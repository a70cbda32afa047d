package manifest

import (
	"strings"
	"testing"
)

func TestValidateFile_Valid(t *testing.T) {
	for _, file := range []string{"valid.yaml", "valid.toml", "valid.json"} {
		t.Run(file, func(t *testing.T) {
			result, err := ValidateFile(osFs(), testPath(file))
			if err != nil {
				t.Fatalf("ValidateFile(%s) error: %v", file, err)
			}
			if !result.Valid {
				t.Errorf("expected valid, got %s", result)
			}
		})
	}
}

func TestValidateFile_Invalid(t *testing.T) {
	tests := []struct {
		file string
		path string
	}{
		{"invalid-missing-name.yaml", "/package"},
		{"invalid-bad-target.yaml", "/mappings/0/targets/0"},
		{"invalid-bad-variable.yaml", "/variables"},
		{"invalid-no-mappings.yaml", "/mappings"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			result, err := ValidateFile(osFs(), testPath(tt.file))
			if err != nil {
				t.Fatalf("ValidateFile(%s) unexpected error: %v", tt.file, err)
			}
			if result.Valid {
				t.Fatalf("expected invalid for %s", tt.file)
			}
			found := false
			for _, issue := range result.Issues {
				if strings.HasPrefix(issue.Path, tt.path) {
					found = true
				}
			}
			if !found {
				t.Errorf("no issue under %s: %s", tt.path, result)
			}
		})
	}
}

func TestValidate_Malformed(t *testing.T) {
	if _, err := Validate([]byte("package: [unclosed"), FormatYAML); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := Validate([]byte("x = "), FormatTOML); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidate_UnknownField(t *testing.T) {
	data := []byte("package:\n  name: p\nmappings:\n  - source: a\n    destination: a\n    targets: [dev-watch]\nextra: 1\n")
	result, err := Validate(data, FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Error("additional top-level property should be rejected")
	}
}
