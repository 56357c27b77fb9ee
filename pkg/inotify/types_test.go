//go:build linux

package inotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskString(t *testing.T) {
	tests := []struct {
		mask Mask
		want string
	}{
		{0, "0"},
		{Create, "CREATE"},
		{Create | IsDir, "CREATE|ISDIR"},
		{Delete | DeleteSelf, "DELETE|DELETE_SELF"},
		{CloseWrite | CloseNowrite, "CLOSE_WRITE|CLOSE_NOWRITE"},
		{QueueOverflow, "Q_OVERFLOW"},
		{Modify | 0x00800000, "MODIFY|0x800000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.mask.String())
	}
}

func TestMaskHasAny(t *testing.T) {
	m := Create | IsDir

	assert.True(t, m.Has(Create))
	assert.True(t, m.Has(Create|IsDir))
	assert.False(t, m.Has(Create|Delete))
	assert.True(t, m.Any(Create|Delete))
	assert.False(t, m.Any(Delete))
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    Mask
		wantErr bool
	}{
		{"single", []string{"create"}, Create, false},
		{"mixed case and spaces", []string{" Create ", "DELETE"}, Create | Delete, false},
		{"alias", []string{"move"}, MovedFrom | MovedTo, false},
		{"all", []string{"all"}, AllEvents, false},
		{"empty entries skipped", []string{"", "modify"}, Modify, false},
		{"unknown", []string{"create", "bogus"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMask(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownEvent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventString(t *testing.T) {
	e := Event{WatchID: 4, Mask: Create | IsDir, Name: "sub"}
	assert.Contains(t, e.String(), "wd=4")
	assert.Contains(t, e.String(), "CREATE|ISDIR")
	assert.Contains(t, e.String(), `"sub"`)
}
