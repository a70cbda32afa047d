package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/afero"
)

var (
	// ErrCorrupt means the registry file exists but is not a registry
	// document. Callers should warn and carry on without updating it.
	ErrCorrupt = errors.New("registry document is corrupt")
	// ErrIncompatible means the document uses a different major format
	// version.
	ErrIncompatible = errors.New("registry format version is incompatible")
)

//go:embed schema/registry.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("registry.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("registry.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Store reads and writes one registry file. It assumes a single writer.
type Store struct {
	Path string
	// Now stamps lastUpdated; defaults to time.Now.
	Now func() time.Time

	fs afero.Fs
}

// NewStore returns a store for the registry at path.
func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{Path: path, Now: time.Now, fs: fsys}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Exists reports whether the registry file is present.
func (s *Store) Exists() bool {
	_, err := s.fs.Stat(s.Path)
	return err == nil
}

// Load reads the registry. A missing file yields a fresh empty document
// that is not written until the first update.
func (s *Store) Load() (*Document, error) {
	data, err := afero.ReadFile(s.fs, s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewDocument(s.now()), nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", s.Path, err)
	}
	return Decode(data)
}

// Decode parses and checks a registry document.
func Decode(data []byte) (*Document, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading registry schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}
	if doc.Packages == nil {
		doc.Packages = map[string]json.RawMessage{}
	}
	if doc.Sources == nil {
		doc.Sources = map[string]json.RawMessage{}
	}
	return &doc, nil
}

func checkVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: version %q: %v", ErrCorrupt, version, err)
	}
	want := semver.MustParse(FormatVersion)
	c, err := semver.NewConstraint(fmt.Sprintf("^%d", want.Major()))
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: found %s, want %d.x", ErrIncompatible, v, want.Major())
	}
	return nil
}

// Upsert replaces packages[pkg] and sources[sourceID], leaving every other
// entry as it was. An existing source keeps its addedAt; its count is
// recomputed from the packages that reference it.
func (s *Store) Upsert(pkg string, entry PackageEntry, sourceID string, src SourceEntry) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}

	entry.Name = pkg
	entry.Source.ID = sourceID
	if entry.Keywords == nil {
		entry.Keywords = []string{}
	}
	rawEntry, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding package %s: %w", pkg, err)
	}
	doc.Packages[pkg] = rawEntry

	if existing, ok, _ := doc.Source(sourceID); ok && existing != nil && !existing.AddedAt.IsZero() {
		src.AddedAt = existing.AddedAt
	}
	src.Count = doc.sourceCount(sourceID)
	rawSource, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encoding source %s: %w", sourceID, err)
	}
	doc.Sources[sourceID] = rawSource

	return s.Save(doc)
}

// Remove deletes packages[pkg]. The source entry is deleted when no package
// references it any more. It reports whether the package was present.
func (s *Store) Remove(pkg, sourceID string) (bool, error) {
	doc, err := s.Load()
	if err != nil {
		return false, err
	}
	if _, ok := doc.Packages[pkg]; !ok {
		return false, nil
	}
	delete(doc.Packages, pkg)

	if src, ok, _ := doc.Source(sourceID); ok && src != nil {
		if src.Count = doc.sourceCount(sourceID); src.Count == 0 {
			delete(doc.Sources, sourceID)
		} else {
			raw, err := json.Marshal(src)
			if err != nil {
				return false, fmt.Errorf("encoding source %s: %w", sourceID, err)
			}
			doc.Sources[sourceID] = raw
		}
	}
	return true, s.Save(doc)
}

// Save stamps lastUpdated and writes the whole document through a
// temporary file renamed over the target.
func (s *Store) Save(doc *Document) error {
	doc.LastUpdated = NewTimestamp(s.now())
	if doc.Version == "" {
		doc.Version = FormatVersion
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating registry directory %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := s.fs.Chmod(tmpName, 0644); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("setting registry permissions: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.Path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("replacing registry %s: %w", s.Path, err)
	}
	return nil
}
