package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
)

type chartGateway interface {
	FetchChart(ctx context.Context, query models.ChartQuery) ([]byte, error)
}

// selectionProvider is the chart's only input from the student directory.
// Reads only; the chart has no write path back.
type selectionProvider interface {
	Selection() *models.StudentRecord
}

// ChartService derives the grade-distribution query from the current
// selection, mode and subject text, and owns its own loading/error state.
//
// Refreshes are generation-tagged: whichever response settles last overwrites
// the displayed image, regardless of request-issue order. The chart display
// is non-authoritative, so the race is deliberate rather than guarded. The
// loading flag clears when the fetch actually settles, not on a timer.
type ChartService struct {
	mu     sync.Mutex
	gw     chartGateway
	sel    selectionProvider
	logger *zap.Logger

	mode       models.ChartMode
	subject    string
	cacheToken int64

	generation uint64
	settledGen uint64
	image      []byte
	lastErr    error
	loading    bool
}

// NewChartService constructs the chart view, starting in by-student mode.
func NewChartService(gw chartGateway, sel selectionProvider, logger *zap.Logger) *ChartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartService{gw: gw, sel: sel, logger: logger, mode: models.ChartByStudent}
}

// Mode returns the current chart mode.
func (s *ChartService) Mode() models.ChartMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches between by-student and by-subject, clearing the
// inapplicable query component.
func (s *ChartService) SetMode(mode models.ChartMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	if mode == models.ChartByStudent {
		s.subject = ""
	}
}

// SetSubject records the subject text used in by-subject mode.
func (s *ChartService) SetSubject(subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
}

// Query derives the current chart query. It is recomputed on demand, never
// stored: selection, mode and subject are the only inputs.
func (s *ChartService) Query() models.ChartQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query()
}

func (s *ChartService) query() models.ChartQuery {
	q := models.ChartQuery{Mode: s.mode, CacheToken: s.cacheToken}
	switch s.mode {
	case models.ChartByStudent:
		if selected := s.sel.Selection(); selected != nil {
			q.StudentID = selected.ID
		}
	case models.ChartBySubject:
		q.Subject = s.subject
	}
	return q
}

// Refresh bumps the cache token and fetches the image for the derived query.
// An unresolvable query renders the empty state without issuing a request.
// The settled response overwrites the display state unconditionally.
func (s *ChartService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	q := s.query()
	if !q.Resolvable() {
		s.image = nil
		s.lastErr = nil
		s.loading = false
		s.mu.Unlock()
		return nil
	}
	s.cacheToken++
	q.CacheToken = s.cacheToken
	s.generation++
	gen := s.generation
	s.loading = true
	s.mu.Unlock()

	image, err := s.gw.FetchChart(ctx, q)
	s.settle(gen, image, err)
	return err
}

// settle records a completed fetch. Last to settle wins.
func (s *ChartService) settle(gen uint64, image []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settledGen = gen
	s.loading = false
	if err != nil {
		s.lastErr = err
		s.logger.Warn("chart fetch failed", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	s.image = image
	s.lastErr = nil
}

// Image returns the currently displayed chart bytes, nil in the empty state.
func (s *ChartService) Image() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// Loading reports whether a fetch is in flight.
func (s *ChartService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the error of the most recently settled fetch, nil after a
// success or in the empty state.
func (s *ChartService) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SettledGeneration returns the generation of the fetch that settled last,
// which is what the display reflects.
func (s *ChartService) SettledGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settledGen
}
