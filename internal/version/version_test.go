package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v, c, d := Info()
	require.Equal(t, "dev", v)
	require.Equal(t, "unknown", c)
	require.Equal(t, "unknown", d)
}

func TestGettersMatchInfo(t *testing.T) {
	v, c, d := Info()
	require.Equal(t, v, GetVersion())
	require.Equal(t, c, GetCommit())
	require.Equal(t, d, GetDate())
}

func TestStringOverriddenByLdflags(t *testing.T) {
	prevVersion, prevCommit, prevDate := version, commit, date
	t.Cleanup(func() { version, commit, date = prevVersion, prevCommit, prevDate })

	version, commit, date = "1.4.0", "abc123", "2024-03-01"
	require.Equal(t, "version=1.4.0 commit=abc123 date=2024-03-01", String())
}
