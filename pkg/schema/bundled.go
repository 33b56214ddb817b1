package schema

import (
	"bytes"
	"embed"
	"path"
	"sort"
	"strings"
)

//go:embed data/osquery-*.json
var bundled embed.FS

const (
	bundledPrefix = "osquery-"
	bundledSuffix = ".json"
)

// BundledVersions lists the osquery releases with an embedded schema, sorted.
func BundledVersions() []string {
	entries, err := bundled.ReadDir("data")
	if err != nil {
		return nil
	}
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, bundledPrefix) && strings.HasSuffix(name, bundledSuffix) {
			versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(name, bundledPrefix), bundledSuffix))
		}
	}
	sort.Strings(versions)
	return versions
}

// LoadBundled loads the embedded schema for an osquery release.
func LoadBundled(version string) (*Schema, error) {
	name := path.Join("data", bundledPrefix+version+bundledSuffix)
	data, err := bundled.ReadFile(name)
	if err != nil {
		return nil, &UnknownVersionError{Version: version, Available: BundledVersions()}
	}
	s, err := Load(bytes.NewReader(data), FormatJSON, name)
	if err != nil {
		return nil, err
	}
	s.Version = version
	return s, nil
}

// Open loads a schema and builds its index in one step.
// A non-empty path takes precedence over the bundled version.
func Open(version, path string) (*Index, error) {
	var (
		s   *Schema
		err error
	)
	if path != "" {
		s, err = LoadFile(path, version)
	} else {
		s, err = LoadBundled(version)
	}
	if err != nil {
		return nil, err
	}
	return Build(s.Version, s.Tables)
}
