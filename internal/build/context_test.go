package build

import (
	"errors"
	"testing"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
		ok   bool
	}{
		{"local-install", LocalInstall, true},
		{"distribution", Distribution, true},
		{"dev-watch", DevWatch, true},
		{"release", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTarget(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTarget(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestValidatePackageName(t *testing.T) {
	for _, name := range []string{"kiro-protocols", "p", "0day", "a-b-c"} {
		if err := ValidatePackageName(name); err != nil {
			t.Errorf("ValidatePackageName(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range []string{"", ".", "..", "../x", "a/b", "Kiro", "-lead", "a b", "a_b"} {
		if err := ValidatePackageName(name); !errors.Is(err, ErrInvalidPackageName) {
			t.Errorf("ValidatePackageName(%q) = %v, want ErrInvalidPackageName", name, err)
		}
	}
}

func TestContextValidate(t *testing.T) {
	ok := Context{Target: Distribution, PackageName: "p", SourceRoot: "/s", DestRoot: "/d"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	bad := []Context{
		{Target: "nope", PackageName: "p", SourceRoot: "/s", DestRoot: "/d"},
		{Target: Distribution, SourceRoot: "/s", DestRoot: "/d"},
		{Target: Distribution, PackageName: "p", SourceRoot: "/s"},
		{Target: Distribution, PackageName: ".", SourceRoot: "/s", DestRoot: "/d"},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestTargetRelocatable(t *testing.T) {
	if !Distribution.Relocatable() {
		t.Error("distribution should be relocatable")
	}
	if LocalInstall.Relocatable() || DevWatch.Relocatable() {
		t.Error("only distribution is relocatable")
	}
}
