package sink

import (
	"context"
	"fmt"

	"github.com/mbhatt/pageweight/pkg/db"
)

// Store buffers metrics and persists them as one run on Flush.
type Store struct {
	store     *db.Store
	traceFile string
	metrics   []db.Metric
}

func NewStore(store *db.Store, traceFile string) (*Store, error) {
	if store == nil {
		return nil, fmt.Errorf("no store")
	}
	return &Store{
		store:     store,
		traceFile: traceFile,
	}, nil
}

func (s *Store) Add(name, unit string, value float64) {
	s.metrics = append(s.metrics, db.Metric{
		Name:  name,
		Unit:  unit,
		Value: value,
	})
}

// Flush writes the buffered run to the database and returns its run id.
func (s *Store) Flush(ctx context.Context) (int64, error) {
	runID, err := s.store.SaveRun(ctx, s.traceFile, s.metrics)
	if err != nil {
		return 0, fmt.Errorf("save run: %v", err)
	}
	return runID, nil
}
