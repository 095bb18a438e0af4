package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
)

type chartGatewayFunc func(ctx context.Context, query models.ChartQuery) ([]byte, error)

func (f chartGatewayFunc) FetchChart(ctx context.Context, query models.ChartQuery) ([]byte, error) {
	return f(ctx, query)
}

type stubSelection struct {
	record *models.StudentRecord
}

func (s stubSelection) Selection() *models.StudentRecord {
	if s.record == nil {
		return nil
	}
	copied := s.record.Clone()
	return &copied
}

func TestRefreshWithoutResolvableQueryIssuesNoRequest(t *testing.T) {
	var calls int32
	gw := chartGatewayFunc(func(ctx context.Context, q models.ChartQuery) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("png"), nil
	})
	svc := NewChartService(gw, stubSelection{}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Nil(t, svc.Image(), "explicit empty state")
	assert.False(t, svc.Loading())
}

func TestRefreshFetchesSelectedStudent(t *testing.T) {
	var got models.ChartQuery
	gw := chartGatewayFunc(func(ctx context.Context, q models.ChartQuery) ([]byte, error) {
		got = q
		return []byte("png"), nil
	})
	selected := &models.StudentRecord{ID: 5, Name: "Li"}
	svc := NewChartService(gw, stubSelection{record: selected}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, models.ChartByStudent, got.Mode)
	assert.Equal(t, int64(5), got.StudentID)
	assert.Equal(t, []byte("png"), svc.Image())
	assert.False(t, svc.Loading(), "loading clears on actual completion")
	assert.NoError(t, svc.LastError())
}

func TestCacheTokenBumpsOnEveryRefresh(t *testing.T) {
	var tokens []int64
	gw := chartGatewayFunc(func(ctx context.Context, q models.ChartQuery) ([]byte, error) {
		tokens = append(tokens, q.CacheToken)
		return []byte("png"), nil
	})
	svc := NewChartService(gw, stubSelection{record: &models.StudentRecord{ID: 1}}, zap.NewNop())

	require.NoError(t, svc.Refresh(context.Background()))
	require.NoError(t, svc.Refresh(context.Background()))
	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
}

func TestModeSwitchClearsInapplicableComponent(t *testing.T) {
	svc := NewChartService(nil, stubSelection{record: &models.StudentRecord{ID: 5}}, zap.NewNop())

	svc.SetMode(models.ChartBySubject)
	svc.SetSubject("Math")
	q := svc.Query()
	assert.Equal(t, "Math", q.Subject)
	assert.Zero(t, q.StudentID, "selection is ignored in by-subject mode")

	svc.SetMode(models.ChartByStudent)
	q = svc.Query()
	assert.Equal(t, int64(5), q.StudentID)
	assert.Empty(t, q.Subject, "subject text cleared when switching back")
}

func TestRefreshErrorIsRecorded(t *testing.T) {
	gw := chartGatewayFunc(func(ctx context.Context, q models.ChartQuery) ([]byte, error) {
		return nil, appErrors.Clone(appErrors.ErrTransport, "backend unreachable")
	})
	svc := NewChartService(gw, stubSelection{record: &models.StudentRecord{ID: 1}}, zap.NewNop())

	require.Error(t, svc.Refresh(context.Background()))
	assert.Error(t, svc.LastError())
	assert.False(t, svc.Loading())
}

// Two rapid refreshes where the first response arrives after the second: the
// display ends up showing the first response. Last to settle wins, an
// accepted policy since the chart is non-authoritative.
func TestLastSettledResponseWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	gw := chartGatewayFunc(func(ctx context.Context, q models.ChartQuery) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return []byte("first"), nil
		}
		return []byte("second"), nil
	})
	svc := NewChartService(gw, stubSelection{record: &models.StudentRecord{ID: 1}}, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Refresh(context.Background()))
	}()

	<-started
	assert.True(t, svc.Loading())
	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, []byte("second"), svc.Image())
	assert.Equal(t, uint64(2), svc.SettledGeneration())

	close(release)
	wg.Wait()
	assert.Equal(t, []byte("first"), svc.Image())
	assert.Equal(t, uint64(1), svc.SettledGeneration())
	assert.False(t, svc.Loading())
}
