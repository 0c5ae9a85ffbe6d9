package archive

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kline/internal/model"
	"kline/internal/model/enum"
)

type memRepo struct {
	mu        sync.Mutex
	rows      []Tick
	inserts   int
	migrated  bool
	insertErr error
}

func (m *memRepo) Migrate(context.Context) error {
	m.migrated = true
	return nil
}

func (m *memRepo) Insert(_ context.Context, rows []Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserts++
	for _, r := range rows {
		r.ID = uint64(len(m.rows) + 1)
		m.rows = append(m.rows, r)
	}
	return nil
}

func (m *memRepo) Scan(_ context.Context, q Query, fn func([]Tick) error) error {
	m.mu.Lock()
	var match []Tick
	want := map[string]bool{}
	for _, s := range q.Symbols {
		want[s] = true
	}
	for _, r := range m.rows {
		if r.TradingDay == q.TradingDay && (len(want) == 0 || want[r.Symbol]) {
			match = append(match, r)
		}
	}
	m.mu.Unlock()
	sort.SliceStable(match, func(i, j int) bool { return match[i].EventTs < match[j].EventTs })
	for len(match) > 0 {
		n := min(q.BatchSize, len(match))
		if err := fn(match[:n]); err != nil {
			return err
		}
		match = match[n:]
	}
	return nil
}

func snapshot(symbol string, day int32, sec int64) model.Snapshot {
	ts := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second).UnixNano()
	s := model.Snapshot{
		Symbol:        model.NewCode(symbol),
		TradingDay:    day,
		EventTsNano:   ts,
		RecvTsNano:    ts + 10,
		Source:        enum.SourceXTP,
		Last:          model.Price(10_000 + sec),
		TotalVolume:   model.Quantity(100 * sec),
		TotalTurnover: model.Notional(1_000_000 * sec),
		DeltaVolume:   100,
	}
	s.Bids[0] = model.Level{Price: 9_990, Quantity: 3}
	return s
}

func TestStoreBatchesAppends(t *testing.T) {
	repo := &memRepo{}
	s, err := NewStore(context.Background(), Config{BatchSize: 3, Migrate: true}, repo, nil)
	require.NoError(t, err)
	assert.True(t, repo.migrated)

	for i := int64(0); i < 7; i++ {
		require.NoError(t, s.Append(snapshot("600000", 20240102, i)))
	}
	assert.Equal(t, 2, repo.inserts)
	assert.Equal(t, uint64(6), s.Written())

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 3, repo.inserts)
	assert.Equal(t, uint64(7), s.Written())
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 3, repo.inserts)
}

func TestStoreConcurrentAppend(t *testing.T) {
	repo := &memRepo{}
	s, err := NewStore(context.Background(), Config{BatchSize: 16}, repo, nil)
	require.NoError(t, err)
	s.Start()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := int64(0); i < 100; i++ {
				assert.NoError(t, s.Append(snapshot("S"+string(rune('A'+p)), 20240102, i)))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, uint64(400), s.Written())
	assert.Len(t, repo.rows, 400)
}

func TestStoreInsertFailure(t *testing.T) {
	repo := &memRepo{insertErr: errors.New("db down")}
	s, err := NewStore(context.Background(), Config{BatchSize: 2}, repo, nil)
	require.NoError(t, err)

	require.NoError(t, s.Append(snapshot("600000", 20240102, 0)))
	assert.ErrorIs(t, s.Append(snapshot("600000", 20240102, 1)), repo.insertErr)
	assert.Equal(t, uint64(2), s.Failed())
	assert.Zero(t, s.Written())
}

func TestStoreScanRestoresRawTicks(t *testing.T) {
	repo := &memRepo{}
	s, err := NewStore(context.Background(), Config{BatchSize: 2}, repo, nil)
	require.NoError(t, err)
	for _, snap := range []model.Snapshot{
		snapshot("600000", 20240102, 2),
		snapshot("000001", 20240102, 1),
		snapshot("600000", 20240102, 0),
		snapshot("600000", 20240103, 5),
	} {
		require.NoError(t, s.Append(snap))
	}
	require.NoError(t, s.Close(context.Background()))

	var got []Tick
	require.NoError(t, s.Scan(context.Background(), Query{TradingDay: 20240102, Symbols: []string{"600000"}}, func(rows []Tick) error {
		got = append(got, rows...)
		return nil
	}))
	require.Len(t, got, 2)
	assert.Less(t, got[0].EventTs, got[1].EventTs)

	want := snapshot("600000", 20240102, 0)
	raw := got[0].RawTick()
	assert.Equal(t, "600000", raw.Symbol)
	assert.Equal(t, want.EventTsNano, raw.EventTsNano)
	assert.Equal(t, want.RecvTsNano, raw.RecvTsNano)
	assert.Equal(t, want.TotalVolume, raw.Volume)
	assert.Equal(t, want.Bids, raw.Bids)
	assert.Equal(t, enum.SourceXTP, got[0].SourceKind())
}

func TestNewStoreRequiresRepository(t *testing.T) {
	_, err := NewStore(context.Background(), Config{}, nil, nil)
	assert.Error(t, err)
}

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("postgres://localhost:5432/kline?sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestGormQuerySQL(t *testing.T) {
	db := dryRunDB(t)
	repo := NewGormRepository(db, 100)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []Tick
		return repo.query(tx, Query{TradingDay: 20240102, Symbols: []string{"600000", "000001"}}).Limit(100).Find(&rows)
	})
	assert.Contains(t, sql, `FROM "kline_ticks"`)
	assert.Contains(t, sql, "trading_day = 20240102")
	assert.Contains(t, sql, "symbol IN ('600000','000001')")
	assert.Contains(t, sql, "ORDER BY event_ts,id")
	assert.Contains(t, sql, "LIMIT 100")
}
