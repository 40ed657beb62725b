package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/mbhatt/pageweight/pkg/util"
	"go.uber.org/zap"
)

// Store persists measurement runs and their emitted metrics.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %v", err)
	}
	return nil
}

type StoreOpts struct {
	Logger *zap.Logger
}

var dbFilePath string

func init() {
	const dbFilename = "pageweight-runs.db"
	cacheDir, err := util.PageweightCacheDir()
	if err != nil {
		panic(fmt.Sprintf("failed to find cache dir: %v", err))
	}
	dbFilePath = filepath.Join(cacheDir, dbFilename)
}

func genDSN(fileName string) string {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=500", fileName)
	return dsn
}

func NewStore(opts StoreOpts) (*Store, error) {
	dsn := genDSN(dbFilePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db file: %v", err)
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("no logger")
	}
	err = migrate(db)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		logger: opts.Logger,
	}, nil
}

// Run is one persisted measurement run.
type Run struct {
	ID        int64
	CreatedAt int64
	TraceFile string
}

// Metric is one metric emitted during a run.
type Metric struct {
	ID    int64
	RunID int64
	Name  string
	Unit  string
	Value float64
}

// SaveRun stores a run and all of its metrics in one transaction and
// returns the run's id.
func (s *Store) SaveRun(ctx context.Context, traceFile string,
	metrics []Metric) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`insert into runs(created_at, trace_file) values(?, ?);`,
		time.Now().Unix(), traceFile)
	if err != nil {
		return 0, fmt.Errorf("insert run: %v", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %v", err)
	}
	for _, m := range metrics {
		_, err := tx.ExecContext(ctx,
			`insert into metrics(run_id, name, unit, value) values(?, ?, ?, ?);`,
			runID, m.Name, m.Unit, m.Value)
		if err != nil {
			return 0, fmt.Errorf("insert metric '%v': %v", m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %v", err)
	}
	return runID, nil
}

// ListRuns returns stored runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, created_at, trace_file from runs order by id desc;`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %v", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.TraceFile); err != nil {
			return nil, fmt.Errorf("scan run: %v", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %v", err)
	}
	return runs, nil
}

// MetricsForRun returns a run's metrics in emission order.
func (s *Store) MetricsForRun(ctx context.Context, runID int64) ([]Metric, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, run_id, name, unit, value from metrics
		 where run_id = ? order by id asc;`, runID)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %v", err)
	}
	defer rows.Close()
	var metrics []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.ID, &m.RunID, &m.Name, &m.Unit,
			&m.Value); err != nil {
			return nil, fmt.Errorf("scan metric: %v", err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load metrics: %v", err)
	}
	return metrics, nil
}
