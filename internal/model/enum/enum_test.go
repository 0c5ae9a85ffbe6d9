package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceKind(t *testing.T) {
	for _, name := range []string{"ctp", "XTP", " csv ", "futures", "stock"} {
		k, err := ParseSourceKind(name)
		require.NoError(t, err, name)
		assert.True(t, k.IsAvailable())
	}

	_, err := ParseSourceKind("bloomberg")
	require.Error(t, err)
	assert.False(t, SourceKind(0).IsAvailable())
	assert.Equal(t, "unknown", SourceKind(99).String())
}

func TestParseRunModeAndPolicy(t *testing.T) {
	m, err := ParseRunMode("backtest")
	require.NoError(t, err)
	assert.Equal(t, RunModeBacktesting, m)

	m, err = ParseRunMode("")
	require.NoError(t, err)
	assert.Equal(t, RunModeLive, m)

	_, err = ParseRunMode("paper")
	require.Error(t, err)

	p, err := ParseShutdownPolicy("kill")
	require.NoError(t, err)
	assert.Equal(t, ShutdownTerminate, p)

	_, err = ParseShutdownPolicy("")
	require.Error(t, err)
}

func TestEventKinds(t *testing.T) {
	kinds := EventKinds()
	require.Len(t, kinds, 4)
	assert.Equal(t, EventSnapshot, kinds[0])
	assert.Equal(t, EventEndOfStream, kinds[3])
	assert.Equal(t, "bar", EventBar.String())
}
