package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Platform is an operating system family an osquery table can run on.
type Platform uint8

// Platform constants. The zero value is not a valid platform.
const (
	Darwin Platform = 1 << iota
	Linux
	Windows
	FreeBSD
)

// ErrUnknownPlatform is returned when a platform name is not recognized.
var ErrUnknownPlatform = errors.New("unknown platform")

var platformOrder = []Platform{Darwin, Linux, Windows, FreeBSD}

var platformNames = map[Platform]string{
	Darwin:  "darwin",
	Linux:   "linux",
	Windows: "windows",
	FreeBSD: "freebsd",
}

// String returns the osquery name of the platform.
func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("platform(%d)", uint8(p))
}

// Valid reports whether p is exactly one known platform.
func (p Platform) Valid() bool {
	_, ok := platformNames[p]
	return ok
}

// ParsePlatform converts a platform name to a Platform.
// Matching is case-insensitive; "macos" and "osx" are accepted for darwin.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "darwin", "macos", "osx":
		return Darwin, nil
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	case "freebsd":
		return FreeBSD, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlatform, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Platform) UnmarshalText(text []byte) error {
	v, err := ParsePlatform(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PlatformSet is a set of platforms.
type PlatformSet uint8

// AllPlatforms contains every known platform.
const AllPlatforms = PlatformSet(Darwin | Linux | Windows | FreeBSD)

// NewPlatformSet builds a set from individual platforms.
func NewPlatformSet(platforms ...Platform) PlatformSet {
	var s PlatformSet
	for _, p := range platforms {
		s |= PlatformSet(p)
	}
	return s
}

// Has reports whether p is in the set.
func (s PlatformSet) Has(p Platform) bool {
	return p != 0 && s&PlatformSet(p) == PlatformSet(p)
}

// Intersect returns the platforms present in both sets.
func (s PlatformSet) Intersect(o PlatformSet) PlatformSet {
	return s & o
}

// Empty reports whether the set has no platforms.
func (s PlatformSet) Empty() bool {
	return s&AllPlatforms == 0
}

// Platforms lists the members in darwin, linux, windows, freebsd order.
func (s PlatformSet) Platforms() []Platform {
	out := make([]Platform, 0, len(platformOrder))
	for _, p := range platformOrder {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Strings lists member names in the same order as Platforms.
func (s PlatformSet) Strings() []string {
	ps := s.Platforms()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

// String returns the members joined by commas, or "none".
func (s PlatformSet) String() string {
	if s.Empty() {
		return "none"
	}
	return strings.Join(s.Strings(), ",")
}

// MarshalJSON encodes the set as a list of platform names.
func (s PlatformSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes a list of platform names.
func (s *PlatformSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := ParsePlatformSet(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// ParsePlatformSet parses platform names into a set.
func ParsePlatformSet(names []string) (PlatformSet, error) {
	var s PlatformSet
	for _, n := range names {
		p, err := ParsePlatform(n)
		if err != nil {
			return 0, err
		}
		s |= PlatformSet(p)
	}
	return s, nil
}
