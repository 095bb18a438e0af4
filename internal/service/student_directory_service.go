package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
)

type studentGateway interface {
	ListStudents(ctx context.Context) ([]models.StudentRecord, error)
	CreateStudent(ctx context.Context, record models.StudentRecord) error
	UpdateStudent(ctx context.Context, id int64, record models.StudentRecord) error
	DeleteStudent(ctx context.Context, id int64) error
}

// RoleProvider exposes the current session for permission checks.
type RoleProvider interface {
	Session() models.Session
}

// Confirmer asks the user to approve a destructive operation. A nil Confirmer
// approves everything.
type Confirmer func(prompt string) bool

// StudentDirectoryService owns the authoritative local copy of the student
// collection and the current selection. The collection is never partially
// updated: every reload replaces it wholesale, and every successful mutation
// reloads before the operation is considered complete.
type StudentDirectoryService struct {
	mu      sync.Mutex
	gw      studentGateway
	roles   RoleProvider
	confirm Confirmer
	logger  *zap.Logger

	records  []models.StudentRecord
	selected *models.StudentRecord
}

// NewStudentDirectoryService constructs the student directory.
func NewStudentDirectoryService(gw studentGateway, roles RoleProvider, confirm Confirmer, logger *zap.Logger) *StudentDirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentDirectoryService{gw: gw, roles: roles, confirm: confirm, logger: logger}
}

// Load replaces the entire local collection with the backend's current list.
// The selection is a weak reference by id: if the selected id disappeared it
// is cleared. On transport failure the previous collection is kept.
func (s *StudentDirectoryService) Load(ctx context.Context) error {
	students, err := s.gw.ListStudents(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = students
	if s.selected != nil && !containsID(students, s.selected.ID) {
		s.selected = nil
	}
	return nil
}

// Reset wipes the local mirror and selection without a server round-trip.
func (s *StudentDirectoryService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.selected = nil
}

// Records returns a copy of the current collection.
func (s *StudentDirectoryService) Records() []models.StudentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records)
}

// Filter returns the subsequence of the directory whose name contains the
// query, case-sensitively. An empty query returns the full directory in
// order. Filter is pure: it never mutates the underlying collection.
func (s *StudentDirectoryService) Filter(query string) []models.StudentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if query == "" {
		return cloneRecords(s.records)
	}
	var out []models.StudentRecord
	for _, record := range s.records {
		if strings.Contains(record.Name, query) {
			out = append(out, record.Clone())
		}
	}
	return out
}

// Select copies the chosen record into the selection. Copy semantics: edits
// to the selection view never reach the directory entry until a save
// round-trip occurs.
func (s *StudentDirectoryService) Select(record models.StudentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := record.Clone()
	s.selected = &copied
}

// SelectByID selects the directory entry with the given id, if present.
func (s *StudentDirectoryService) SelectByID(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.ID == id {
			copied := record.Clone()
			s.selected = &copied
			return true
		}
	}
	return false
}

// Selection returns a copy of the selected record, or nil when nothing is
// selected.
func (s *StudentDirectoryService) Selection() *models.StudentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	copied := s.selected.Clone()
	return &copied
}

// ClearSelection drops the selection.
func (s *StudentDirectoryService) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// Create registers a new record and reloads the directory before returning,
// so the caller always observes its own write.
func (s *StudentDirectoryService) Create(ctx context.Context, payload models.StudentRecord) error {
	if err := s.requireTeacher(); err != nil {
		return err
	}
	if err := s.gw.CreateStudent(ctx, payload); err != nil {
		return err
	}
	return s.Load(ctx)
}

// Update saves the payload over the record with the given id and reloads. If
// the updated record is currently selected, the selection is refreshed from
// the saved payload itself rather than a second fetch, for immediate
// consistency of the detail view.
func (s *StudentDirectoryService) Update(ctx context.Context, id int64, payload models.StudentRecord) error {
	if err := s.requireTeacher(); err != nil {
		return err
	}
	if err := s.gw.UpdateStudent(ctx, id, payload); err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil && s.selected.ID == id {
		refreshed := payload.Clone()
		refreshed.ID = id
		s.selected = &refreshed
	}
	return nil
}

// Delete removes the record after explicit confirmation. On success the
// directory reloads and a matching selection is cleared; on failure directory
// and selection stay untouched. A declined confirmation is not an error.
func (s *StudentDirectoryService) Delete(ctx context.Context, record models.StudentRecord) error {
	if err := s.requireTeacher(); err != nil {
		return err
	}
	if s.confirm != nil && !s.confirm(fmt.Sprintf("delete student %q?", record.Name)) {
		return nil
	}
	if err := s.gw.DeleteStudent(ctx, record.ID); err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil && s.selected.ID == record.ID {
		s.selected = nil
	}
	return nil
}

// requireTeacher blocks mutations for non-teacher sessions before any request
// is sent. The backend rejects them too; that path surfaces as an ordinary
// mutation failure.
func (s *StudentDirectoryService) requireTeacher() error {
	if s.roles == nil || !s.roles.Session().CanMutate() {
		return appErrors.Clone(appErrors.ErrForbidden, "teacher role required")
	}
	return nil
}

func containsID(records []models.StudentRecord, id int64) bool {
	for _, record := range records {
		if record.ID == id {
			return true
		}
	}
	return false
}

func cloneRecords(records []models.StudentRecord) []models.StudentRecord {
	if records == nil {
		return nil
	}
	out := make([]models.StudentRecord, len(records))
	for i, record := range records {
		out[i] = record.Clone()
	}
	return out
}
