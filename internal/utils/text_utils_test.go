package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	require.Equal(t, "short", tp.TruncateText("short", 100))
	require.Equal(t, "unlimited", tp.TruncateText("unlimited", 0))

	out := tp.TruncateText(strings.Repeat("a", 50), 10)
	require.True(t, strings.HasPrefix(out, strings.Repeat("a", 10)))
	require.True(t, strings.HasSuffix(out, truncationMarker))
}

func TestTruncateText_RuneBoundary(t *testing.T) {
	tp := NewTextProcessor(nil)

	// each Hangul syllable is three bytes
	out := tp.TruncateText("사랑해요", 4)
	body := strings.TrimSuffix(out, truncationMarker)
	require.Equal(t, "사", body)
	require.True(t, utf8.ValidString(out))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)

	require.Equal(t, "hello", tp.SanitizeUTF8("hel\xfflo"))

	decomposed := "\u1100\u1161"
	require.Equal(t, "가", tp.SanitizeUTF8(decomposed))
}

func TestNormalize(t *testing.T) {
	tp := NewTextProcessor(nil)
	require.Equal(t, "send money via western union", tp.Normalize("Send MONEY via Western Union"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(nil)
	out := tp.ProcessText("ab\xffcdef", 3)
	require.Equal(t, "abc"+truncationMarker, out)
}
