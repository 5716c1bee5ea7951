package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-bingo-admin/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestClaimStrings(t *testing.T) {
	t.Run("array of any", func(t *testing.T) {
		require.Equal(t, []string{"a", "b"}, utils.ClaimStrings([]any{"a", 1, "b"}))
	})

	t.Run("space separated", func(t *testing.T) {
		require.Equal(t, []string{"users.read", "users.write"}, utils.ClaimStrings(" users.read  users.write"))
	})

	t.Run("nil and unknown", func(t *testing.T) {
		require.Nil(t, utils.ClaimStrings(nil))
		require.Nil(t, utils.ClaimStrings(42))
	})
}
