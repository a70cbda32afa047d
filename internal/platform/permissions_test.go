package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
)

func TestChmod(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.txt")
	if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Chmod(afero.NewOsFs(), path, 0600); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("permissions = %o, want %o", perm, 0600)
		}
	}
}

func TestProtectionModes(t *testing.T) {
	tests := []struct {
		p    Protection
		mode os.FileMode
		str  string
	}{
		{Writable, 0o644, "writable"},
		{ReadOnly, 0o444, "read-only"},
	}
	for _, tt := range tests {
		if got := tt.p.Mode(); got != tt.mode {
			t.Errorf("%v.Mode() = %o, want %o", tt.p, got, tt.mode)
		}
		if got := tt.p.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := ProtectionOf(tt.mode); got != tt.p {
			t.Errorf("ProtectionOf(%o) = %v, want %v", tt.mode, got, tt.p)
		}
	}
}

func TestProtectMissingFile(t *testing.T) {
	if err := Protect(afero.NewOsFs(), filepath.Join(t.TempDir(), "nope"), ReadOnly); err != nil {
		t.Errorf("Protect on missing file: %v", err)
	}
}

func TestProtectTree(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not supported")
	}
	tmp := t.TempDir()
	fsys := afero.NewOsFs()
	files := []string{"a.md", "steering/b.md", "steering/protocols/c.md"}
	for _, f := range files {
		path := filepath.Join(tmp, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(f), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := ProtectTree(fsys, tmp, ReadOnly)
	if err != nil {
		t.Fatalf("ProtectTree: %v", err)
	}
	if n != len(files) {
		t.Errorf("changed %d files, want %d", n, len(files))
	}
	for _, f := range files {
		info, err := os.Stat(filepath.Join(tmp, f))
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0444 {
			t.Errorf("%s permissions = %o, want 444", f, perm)
		}
	}

	info, err := os.Stat(filepath.Join(tmp, "steering"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0755 {
		t.Errorf("directory permissions = %o, want 755", perm)
	}

	if _, err := ProtectTree(fsys, tmp, Writable); err != nil {
		t.Fatalf("ProtectTree writable: %v", err)
	}
	info, err = os.Stat(filepath.Join(tmp, "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	if ProtectionOf(info.Mode()) != Writable {
		t.Errorf("a.md still read-only after unlock")
	}
}

func TestProtectTreeMissingRoot(t *testing.T) {
	n, err := ProtectTree(afero.NewOsFs(), filepath.Join(t.TempDir(), "absent"), ReadOnly)
	if err != nil || n != 0 {
		t.Errorf("ProtectTree(missing) = %d, %v; want 0, nil", n, err)
	}
}

func TestProtectTreeMemFs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/root/x.md", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ProtectTree(fsys, "/root", ReadOnly); err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS == "windows" {
		return
	}
	info, err := fsys.Stat("/root/x.md")
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0444 {
		t.Errorf("mem fs mode = %o, want 444", info.Mode().Perm())
	}
}
