package whitelist

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChecker(t *testing.T) {
	c := NewChecker([]string{" Mom ", "mom", "", "12345", "김철수"}, zap.NewNop())

	require.Equal(t, 3, c.Len())
	require.True(t, c.IsTrusted("mom"))
	require.True(t, c.IsTrusted("MOM"))
	require.True(t, c.IsTrusted("12345"))
	require.True(t, c.IsTrusted("김철수"))
	require.False(t, c.IsTrusted("stranger"))
	require.False(t, c.IsTrusted(""))
}

func TestChecker_Empty(t *testing.T) {
	c := NewChecker(nil, nil)
	require.Zero(t, c.Len())
	require.False(t, c.IsTrusted("anyone"))
}
