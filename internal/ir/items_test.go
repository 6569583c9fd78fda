package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeItem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a.png", "a.png"},
		{"./a.png", "a.png"},
		{"dir/../b.png", "b.png"},
		{"dir//c.png", "dir/c.png"},
		{"", ""},
		{"cafe\u0301", "caf\u00e9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeItem(tt.in), "NormalizeItem(%q)", tt.in)
	}
}

func TestNormalizeItemsNeverNil(t *testing.T) {
	assert.NotNil(t, NormalizeItems(nil))
	assert.Empty(t, NormalizeItems(nil))
}
