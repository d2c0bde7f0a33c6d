package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"session id", 32, 64},
		{"short", 4, 8},
		{"empty", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := MakeRandHexString(tt.size)
			require.NoError(t, err)
			assert.Len(t, s, tt.want)

			raw, err := hex.DecodeString(s)
			require.NoError(t, err)
			assert.Len(t, raw, tt.size)
		})
	}
}

func TestMakeRandHexString_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := MakeRandHexString(16)
		require.NoError(t, err)
		require.False(t, seen[s], "duplicate value %q", s)
		seen[s] = true
	}
}

func TestWipeByteArray(t *testing.T) {
	password := []byte("Str0ng!pass")
	WipeByteArray(password)
	assert.Equal(t, make([]byte, len("Str0ng!pass")), password)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}
