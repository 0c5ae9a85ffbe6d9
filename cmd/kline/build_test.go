package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kline/internal/model"
	"kline/internal/model/enum"
	"kline/internal/obs"
	"kline/internal/ops"
	"kline/internal/period"
	"kline/internal/strategy"
)

func testLoaded() ops.Loaded {
	return ops.Loaded{Session: period.DefaultSession(time.UTC)}
}

func TestBuildSourceDefaults(t *testing.T) {
	loaded := testLoaded()
	specs := []struct {
		spec   ops.SourceSpec
		policy enum.ShutdownPolicy
		bound  bool
	}{
		{
			spec:   ops.SourceSpec{Name: "day", Kind: enum.SourceCSV, Type: ops.SourceCSV, Path: "testdata"},
			policy: enum.ShutdownJoin,
			bound:  true,
		},
		{
			spec:   ops.SourceSpec{Name: "live", Kind: enum.SourceCTP, Type: ops.SourceGateway, URL: "ws://localhost:1", Symbols: []string{"rb2410"}},
			policy: enum.ShutdownJoin,
		},
		{
			spec: ops.SourceSpec{
				Name: "demo", Kind: enum.SourceCTP, Type: ops.SourceSim, Symbols: []string{"rb2410"},
				Sim: ops.SimSpec{BasePrice: model.Price(3500000), TickSize: model.Price(1000), Count: 10},
			},
			policy: enum.ShutdownTerminate,
			bound:  true,
		},
	}

	for _, tc := range specs {
		t.Run(tc.spec.Name, func(t *testing.T) {
			src, err := buildSource(tc.spec, loaded, &tees{}, obs.Discard)
			require.NoError(t, err)
			assert.Equal(t, tc.spec.Name, src.Name())
			assert.Equal(t, tc.spec.Kind, src.Kind())
			assert.Equal(t, tc.policy, src.Policy())
			assert.Equal(t, tc.bound, src.Bounded())
		})
	}
}

func TestBuildSourcePolicyOverride(t *testing.T) {
	spec := ops.SourceSpec{Name: "day", Kind: enum.SourceCSV, Type: ops.SourceCSV, Path: "testdata", Policy: enum.ShutdownTerminate}
	src, err := buildSource(spec, testLoaded(), &tees{}, obs.Discard)
	require.NoError(t, err)
	assert.Equal(t, enum.ShutdownTerminate, src.Policy())
	assert.True(t, src.Bounded())

	spec = ops.SourceSpec{
		Name: "demo", Kind: enum.SourceCTP, Type: ops.SourceSim, Symbols: []string{"rb2410"},
		Sim: ops.SimSpec{BasePrice: model.Price(3500000)}, Policy: enum.ShutdownJoin,
	}
	src, err = buildSource(spec, testLoaded(), &tees{}, obs.Discard)
	require.NoError(t, err)
	assert.Equal(t, enum.ShutdownJoin, src.Policy())
}

func TestBuildSourceArchiveNeedsStore(t *testing.T) {
	spec := ops.SourceSpec{Name: "pg", Kind: enum.SourceCTP, Type: ops.SourceArchive, TradingDay: 20240102}
	_, err := buildSource(spec, testLoaded(), &tees{}, obs.Discard)
	require.Error(t, err)

	_, err = buildSource(ops.SourceSpec{Name: "x", Type: "ftp"}, testLoaded(), &tees{}, obs.Discard)
	require.Error(t, err)
}

func TestBuildStrategies(t *testing.T) {
	built := buildStrategies([]ops.StrategySpec{
		{Name: "p", Type: ops.StrategyPrinter, Kind: enum.SourceCSV},
		{Name: "c", Type: ops.StrategyCollector, Kind: enum.SourceCTP, Symbols: []string{"rb2410"}},
	}, obs.Discard)

	require.Len(t, built.all, 2)
	require.Len(t, built.collectors, 1)
	assert.IsType(t, &strategy.Printer{}, built.all[0])
	assert.Equal(t, "c", built.collectors[0].Name())
	assert.Equal(t, []string{"rb2410"}, built.collectors[0].SubscribedSymbols())
}
