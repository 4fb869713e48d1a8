package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransportTable(t *testing.T) {
	tbl := DefaultTransportTable()
	require.Equal(t, 15, tbl.Len())

	cases := map[int]int{1: 38, 4: 14, 28: 76, 32: 10, 36: 6, 80: 99, 97: 78}
	for from, want := range cases {
		to, ok := tbl.Apply(from)
		assert.True(t, ok, "square %d", from)
		assert.Equal(t, want, to, "square %d", from)
	}

	to, ok := tbl.Apply(2)
	assert.False(t, ok)
	assert.Equal(t, 2, to)
}

func TestNewTransportTable(t *testing.T) {
	tests := []struct {
		name    string
		entries []TransportEntry
		wantErr bool
	}{
		{name: "empty", entries: nil},
		{name: "valid", entries: []TransportEntry{{From: 3, To: 40}, {From: 60, To: 5}}},
		{name: "from on win square", entries: []TransportEntry{{From: 100, To: 5}}, wantErr: true},
		{name: "to on win square", entries: []TransportEntry{{From: 90, To: 100}}, wantErr: true},
		{name: "zero square", entries: []TransportEntry{{From: 0, To: 5}}, wantErr: true},
		{name: "self loop", entries: []TransportEntry{{From: 7, To: 7}}, wantErr: true},
		{name: "duplicate from", entries: []TransportEntry{{From: 7, To: 9}, {From: 7, To: 3}}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTransportTable(tc.entries, DefaultWinPosition)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransportTable)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("too many entries", func(t *testing.T) {
		entries := make([]TransportEntry, MaxTransportSize+1)
		for i := range entries {
			entries[i] = TransportEntry{From: i + 1, To: i + 50}
		}
		_, err := NewTransportTable(entries, DefaultWinPosition)
		assert.ErrorIs(t, err, ErrInvalidTransportTable)
	})
}

func TestTransportTableIsolation(t *testing.T) {
	src := []TransportEntry{{From: 3, To: 40}}
	tbl, err := NewTransportTable(src, DefaultWinPosition)
	require.NoError(t, err)

	src[0].To = 41
	to, _ := tbl.Apply(3)
	assert.Equal(t, 40, to)

	out := tbl.Entries()
	out[0].To = 42
	to, _ = tbl.Apply(3)
	assert.Equal(t, 40, to)
}

func TestTransportTableJSON(t *testing.T) {
	b, err := json.Marshal(TransportTable{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	var tbl TransportTable
	require.NoError(t, json.Unmarshal([]byte(`[{"from":5,"to":50}]`), &tbl))
	to, ok := tbl.Apply(5)
	assert.True(t, ok)
	assert.Equal(t, 50, to)
}
