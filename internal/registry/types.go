package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatVersion is the document version written by this package. Existing
// documents must share its major version.
const FormatVersion = "1.0.0"

// TimeLayout is ISO 8601 with millisecond precision in UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// SourceType says where a package's files physically live.
type SourceType string

const (
	SourceLocal  SourceType = "local"
	SourceRemote SourceType = "remote"
)

// SourceID returns the stable source identifier for a locally installed
// package. It never depends on the clock, so reinstalls update the same
// source entry.
func SourceID(pkg string) string {
	return "local-" + pkg
}

// Timestamp is a time that encodes as an ISO 8601 string in UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to milliseconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// PackageEntry is the record kept for one installed package.
type PackageEntry struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Author      string    `json:"author"`
	Installed   bool      `json:"installed"`
	InstalledAt Timestamp `json:"installedAt"`
	InstallPath string    `json:"installPath"`
	Source      SourceRef `json:"source"`
	SourcePath  string    `json:"sourcePath"`
}

// SourceRef points a package at its source entry.
type SourceRef struct {
	Type   SourceType `json:"type"`
	ID     string     `json:"id"`
	Origin string     `json:"origin"`
}

// SourceEntry describes where installed package files live.
type SourceEntry struct {
	Name     string     `json:"name"`
	Type     SourceType `json:"type"`
	Enabled  bool       `json:"enabled"`
	AddedAt  Timestamp  `json:"addedAt"`
	Path     string     `json:"path"`
	LastSync Timestamp  `json:"lastSync"`
	Count    int        `json:"count"`
}

// Document is the registry file. Entries are held as raw JSON so that
// packages and sources this process does not touch keep every field and
// value as they were read. Save re-indents the whole file with two spaces,
// so an untouched entry is byte-identical only when the file already used
// that layout; otherwise it is rewritten with the same content in the
// normalized layout, and stays stable from then on.
type Document struct {
	Version     string                     `json:"version"`
	Packages    map[string]json.RawMessage `json:"packages"`
	Sources     map[string]json.RawMessage `json:"sources"`
	LastUpdated Timestamp                  `json:"lastUpdated"`
}

// NewDocument returns an empty document stamped with now.
func NewDocument(now time.Time) *Document {
	return &Document{
		Version:     FormatVersion,
		Packages:    map[string]json.RawMessage{},
		Sources:     map[string]json.RawMessage{},
		LastUpdated: NewTimestamp(now),
	}
}

// Package decodes the entry for name.
func (d *Document) Package(name string) (*PackageEntry, bool, error) {
	raw, ok := d.Packages[name]
	if !ok {
		return nil, false, nil
	}
	var e PackageEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, true, fmt.Errorf("decoding package %s: %w", name, err)
	}
	return &e, true, nil
}

// Source decodes the source entry for id.
func (d *Document) Source(id string) (*SourceEntry, bool, error) {
	raw, ok := d.Sources[id]
	if !ok {
		return nil, false, nil
	}
	var e SourceEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, true, fmt.Errorf("decoding source %s: %w", id, err)
	}
	return &e, true, nil
}

// PackageNames returns the installed package names in sorted order.
func (d *Document) PackageNames() []string {
	names := make([]string, 0, len(d.Packages))
	for name := range d.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sourceCount returns how many packages reference source id.
func (d *Document) sourceCount(id string) int {
	n := 0
	for _, raw := range d.Packages {
		var ref struct {
			Source SourceRef `json:"source"`
		}
		if json.Unmarshal(raw, &ref) == nil && ref.Source.ID == id {
			n++
		}
	}
	return n
}
