package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in   string
		want Platform
	}{
		{"linux", Linux},
		{"Windows", Windows},
		{"darwin", Darwin},
		{"macOS", Darwin},
		{"osx", Darwin},
		{" freebsd ", FreeBSD},
	}
	for _, tt := range tests {
		got, err := ParsePlatform(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParsePlatform("plan9")
	assert.True(t, errors.Is(err, ErrUnknownPlatform))
}

func TestPlatformSet(t *testing.T) {
	s := NewPlatformSet(Windows, Darwin)

	assert.True(t, s.Has(Darwin))
	assert.False(t, s.Has(Linux))
	assert.False(t, s.Has(0))
	assert.Equal(t, []Platform{Darwin, Windows}, s.Platforms())
	assert.Equal(t, "darwin,windows", s.String())

	assert.Equal(t, NewPlatformSet(Windows), s.Intersect(NewPlatformSet(Windows, Linux)))
	assert.True(t, s.Intersect(NewPlatformSet(Linux)).Empty())
	assert.Equal(t, "none", PlatformSet(0).String())
	assert.Len(t, AllPlatforms.Platforms(), 4)
}

func TestPlatformSet_JSON(t *testing.T) {
	data, err := json.Marshal(NewPlatformSet(Linux, FreeBSD))
	require.NoError(t, err)
	assert.JSONEq(t, `["linux","freebsd"]`, string(data))

	var s PlatformSet
	require.NoError(t, json.Unmarshal([]byte(`["osx","windows"]`), &s))
	assert.Equal(t, NewPlatformSet(Darwin, Windows), s)

	assert.Error(t, json.Unmarshal([]byte(`["beos"]`), &s))
}

func TestPlatform_Text(t *testing.T) {
	var p Platform
	require.NoError(t, p.UnmarshalText([]byte("WINDOWS")))
	assert.Equal(t, Windows, p)

	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "windows", string(text))

	_, err = Platform(0).MarshalText()
	assert.Error(t, err)
}
