package archive

import (
	"context"

	"gorm.io/gorm"
)

// Query selects the ticks of one trading day.
type Query struct {
	TradingDay int32
	// Symbols restricts the result; empty means all.
	Symbols   []string
	BatchSize int
}

// Repository persists archived ticks.
type Repository interface {
	Migrate(ctx context.Context) error
	Insert(ctx context.Context, rows []Tick) error
	// Scan calls fn with consecutive batches in event time order.
	Scan(ctx context.Context, q Query, fn func([]Tick) error) error
}

// GormRepository is the Repository over gorm.
type GormRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewGormRepository(db *gorm.DB, batchSize int) *GormRepository {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &GormRepository{db: db, batchSize: batchSize}
}

func (r *GormRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Tick{})
}

func (r *GormRepository) Insert(ctx context.Context, rows []Tick) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, r.batchSize).Error
}

func (r *GormRepository) Scan(ctx context.Context, q Query, fn func([]Tick) error) error {
	size := q.BatchSize
	if size <= 0 {
		size = r.batchSize
	}
	db := r.db.WithContext(ctx)

	var (
		lastTs  int64
		lastID  uint64
		started bool
	)
	for {
		tx := r.query(db, q)
		if started {
			tx = tx.Where("(event_ts, id) > (?, ?)", lastTs, lastID)
		}
		var batch []Tick
		if err := tx.Limit(size).Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < size {
			return nil
		}
		last := batch[len(batch)-1]
		lastTs, lastID, started = last.EventTs, last.ID, true
	}
}

// query orders by event time; ID breaks ties in insertion order. Scan pages
// on the same key.
func (r *GormRepository) query(tx *gorm.DB, q Query) *gorm.DB {
	tx = tx.Model(&Tick{}).Where("trading_day = ?", q.TradingDay)
	if len(q.Symbols) > 0 {
		tx = tx.Where("symbol IN ?", q.Symbols)
	}
	return tx.Order("event_ts").Order("id")
}
