package assist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/grr-sub002/pkg/lexer"
	"github.com/google/grr-sub002/pkg/schema"
)

type pick struct {
	Text  string
	Table string
}

func picks(s []Suggestion) []pick {
	out := make([]pick, len(s))
	for i, v := range s {
		out[i] = pick{v.Text, v.Table}
	}
	return out
}

func texts(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.Text
	}
	return out
}

func TestSuggest_Tables(t *testing.T) {
	idx := testIndex(t)

	tests := []struct {
		prefix string
		want   []string
	}{
		{"proc", []string{
			"process_envs", "process_events", "process_memory_map",
			"process_open_files", "process_open_sockets", "processes",
		}},
		{"PROC", []string{
			"process_envs", "process_events", "process_memory_map",
			"process_open_files", "process_open_sockets", "processes",
		}},
		// Prefix matches rank before substring matches.
		{"sock", []string{"socket_events", "process_open_sockets"}},
		{"bios", []string{"wmi_bios_info"}},
		{"qqq", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			req := SuggestRequest{Prefix: tt.prefix, Position: lexer.PositionTable, Limit: 20}
			got := Suggest(req, idx)
			if diff := cmp.Diff(tt.want, texts(got)); diff != "" {
				t.Errorf("Suggest(%q) mismatch (-want +got):\n%s", tt.prefix, diff)
			}
			assert.Equal(t, got, Suggest(req, idx), "repeated calls agree")
		})
	}
}

func TestSuggest_TableDetail(t *testing.T) {
	got := Suggest(SuggestRequest{Prefix: "process_ev", Position: lexer.PositionTable, Limit: 5}, testIndex(t))
	require.Len(t, got, 1)

	assert.Equal(t, KindTable, got[0].Kind)
	assert.Equal(t, "darwin,linux (evented)", got[0].Detail)
	assert.NotEmpty(t, got[0].Description)
}

func TestSuggest_Limit(t *testing.T) {
	idx := testIndex(t)
	req := SuggestRequest{Prefix: "proc", Position: lexer.PositionTable}

	req.Limit = 0
	got := Suggest(req, idx)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	req.Limit = -3
	assert.Empty(t, Suggest(req, idx))

	req.Limit = 2
	assert.Equal(t, []string{"process_envs", "process_events"}, texts(Suggest(req, idx)))
}

func TestSuggest_ColumnsOfReferencedTables(t *testing.T) {
	idx := testIndex(t)

	got := Suggest(SuggestRequest{
		Prefix:   "u",
		Position: lexer.PositionColumn,
		Tables:   lookup(t, idx, "processes", "users"),
		Limit:    5,
	}, idx)

	want := []pick{
		{"uid", "processes"},
		{"uid", "users"},
		{"uid_signed", "users"},
		{"upid", "processes"},
		{"uppid", "processes"},
	}
	if diff := cmp.Diff(want, picks(got)); diff != "" {
		t.Errorf("column suggestions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, KindColumn, got[0].Kind)
	assert.Equal(t, "bigint", got[0].Detail)
}

func TestSuggest_QualifiedColumns(t *testing.T) {
	idx := testIndex(t)
	procs := lookup(t, idx, "processes")[0]

	got := Suggest(SuggestRequest{
		Prefix:    "pa",
		Position:  lexer.PositionColumn,
		Qualifier: "P",
		Tables:    lookup(t, idx, "processes", "users"),
		Aliases:   map[string]*schema.TableSpec{"p": procs},
		Limit:     10,
	}, idx)

	// parent, path; then substring matches from processes only.
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []pick{{"parent", "processes"}, {"path", "processes"}}, picks(got[:2]))
	for _, s := range got {
		assert.Equal(t, "processes", s.Table)
	}

	// A qualifier that is a table name works without an alias.
	got = Suggest(SuggestRequest{Prefix: "", Position: lexer.PositionColumn, Qualifier: "wmi_bios_info", Limit: 10}, idx)
	assert.Equal(t, []pick{{"name", "wmi_bios_info"}, {"value", "wmi_bios_info"}}, picks(got))
}

func TestSuggest_ColumnsOfWholeIndex(t *testing.T) {
	got := Suggest(SuggestRequest{Prefix: "hostnam", Position: lexer.PositionColumn, Limit: 10}, testIndex(t))

	want := []pick{
		{"hostname", "system_info"},
		{"hostnames", "etc_hosts"},
		{"local_hostname", "system_info"},
	}
	if diff := cmp.Diff(want, picks(got)); diff != "" {
		t.Errorf("whole-index suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggest_Keywords(t *testing.T) {
	got := Suggest(SuggestRequest{Prefix: "wh", Position: lexer.PositionUnknown, Limit: 10}, testIndex(t))

	assert.Equal(t, []string{"WHEN", "WHERE"}, texts(got))
	assert.Equal(t, KindKeyword, got[0].Kind)
}
