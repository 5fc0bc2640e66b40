package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"foo-bar", "foo_bar"},
		{"Foo-Bar", "foo_bar"},
		{"serde", "serde"},
		{"a-b-c", "a_b_c"},
		{"already_canon", "already_canon"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CanonicalName(tt.in))
	}
}

func TestCanonicalName_Idempotent(t *testing.T) {
	for _, s := range []string{"foo-bar", "A-B", "x", "x_y-z"} {
		once := CanonicalName(s)
		require.Equal(t, once, CanonicalName(once))
	}
}
