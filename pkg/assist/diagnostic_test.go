package assist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/grr-sub002/pkg/schema"
)

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 8)

	for i := 1; i < len(catalog); i++ {
		assert.Less(t, catalog[i-1].Code, catalog[i].Code, "catalog is in code order")
	}

	// Emitted severities agree with the catalog.
	a := New(testIndex(t), WithPlatform(schema.Linux))
	severity := make(map[Code]Severity, len(catalog))
	for _, info := range catalog {
		assert.NotEmpty(t, info.Summary, info.Code)
		severity[info.Code] = info.Severity
	}
	for _, query := range []string{
		"SELECT * FROM proceses",
		"SELECT p.nme, x.pid FROM processes p",
		"SELECT * FROM wmi_bios_info JOIN kernel_modules",
		"SELECT * FROM file",
		"SELECT * FROM process_events",
		"SELECT 'osq",
	} {
		for _, d := range analyze(t, a, query).Diagnostics {
			want, ok := severity[d.Code]
			require.True(t, ok, "code %s is not in the catalog", d.Code)
			assert.Equal(t, want, d.Severity, d.Code)
		}
	}
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "hint", SeverityHint.String())

	text, err := SeverityWarning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warning", string(text))
}
