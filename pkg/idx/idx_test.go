package idx_test

import (
	"testing"
	"time"

	"github.com/makerden/memberauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewProducesValidIDs(t *testing.T) {
	t.Parallel()

	a := idx.New()
	b := idx.New()

	require.False(t, a.IsZero())
	require.False(t, b.IsZero())
	require.NotEqual(t, a, b)

	parsed, err := idx.Parse(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)
}

func TestNewAtEmbedsTimestamp(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id := idx.NewAt(at)

	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "not-a-ulid", "0000"} {
		_, err := idx.Parse(input)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", input)
	}
}

func TestIDsAreMonotonicWithinSameMillisecond(t *testing.T) {
	t.Parallel()

	at := time.Now().UTC()
	a := idx.NewAt(at)
	b := idx.NewAt(at)

	require.Less(t, a.String(), b.String())
}
