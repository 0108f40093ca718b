package idgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewULID_IsMonotonic(t *testing.T) {
	req := require.New(t)
	prev := NewULID()
	for i := 0; i < 1000; i++ {
		next := NewULID()
		req.Less(prev, next)
		prev = next
	}
}
