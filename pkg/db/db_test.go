package db

import (
	"context"
	"testing"

	"github.com/mbhatt/pageweight/pkg/log"
	"github.com/mbhatt/pageweight/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewStore(t *testing.T) {
	util.EnsureCacheDirs()
	type args struct {
		opts StoreOpts
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{
			name: "store without logger",
			args: args{
				opts: StoreOpts{
					Logger: nil,
				},
			},
			wantErr: true,
		},
		{
			name: "store with logger",
			args: args{
				opts: StoreOpts{
					Logger: log.Logger,
				},
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(tt.args.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewStore() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
		})
	}
}

func getStore(t *testing.T) *Store {
	t.Helper()
	db := getDB(t)
	require.NoError(t, migrate(db))
	return &Store{
		db:     db,
		logger: zap.NewNop(),
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	store := getStore(t)
	defer func() {
		require.NoError(t, store.Close())
	}()
	ctx := context.Background()

	metrics := []Metric{
		{Name: "content_length", Unit: "bytes", Value: 300},
		{Name: "original_content_length", Unit: "bytes", Value: 2000},
		{Name: "data_saving", Unit: "percent", Value: 85},
	}
	runID, err := store.SaveRun(ctx, "trace.har", metrics)
	require.NoError(t, err)
	require.NotZero(t, runID)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, runID, runs[0].ID)
	require.Equal(t, "trace.har", runs[0].TraceFile)
	require.NotZero(t, runs[0].CreatedAt)

	loaded, err := store.MetricsForRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, m := range loaded {
		require.Equal(t, runID, m.RunID)
		require.Equal(t, metrics[i].Name, m.Name)
		require.Equal(t, metrics[i].Unit, m.Unit)
		require.Equal(t, metrics[i].Value, m.Value)
	}
}

func TestListRunsOrder(t *testing.T) {
	store := getStore(t)
	defer func() {
		require.NoError(t, store.Close())
	}()
	ctx := context.Background()

	first, err := store.SaveRun(ctx, "first.har", nil)
	require.NoError(t, err)
	second, err := store.SaveRun(ctx, "second.har", nil)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second, runs[0].ID, "most recent run first")
	require.Equal(t, first, runs[1].ID)
}
