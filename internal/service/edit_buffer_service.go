package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
)

// studentWriter is the commit target: the student directory, which owns the
// reload-and-reselect semantics of a successful save.
type studentWriter interface {
	Create(ctx context.Context, payload models.StudentRecord) error
	Update(ctx context.Context, id int64, payload models.StudentRecord) error
}

// GradeRow is one editable subject/score pair. Rows exist so the user can
// add, remove and reorder assessments before committing; only on commit do
// they collapse back into the grades mapping.
type GradeRow struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

// EditBuffer is the transient working copy behind the create/edit form. ID is
// zero for an unsaved record. Only the name carries a client-side constraint;
// every other field trusts server-side validation.
type EditBuffer struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name" validate:"required"`
	Age       int        `json:"age"`
	Gender    string     `json:"gender"`
	Major     string     `json:"major"`
	ClassName string     `json:"class_name"`
	Rows      []GradeRow `json:"rows"`
}

const defaultAge = 18

// EditBufferService owns the in-progress form state. It never mutates the
// directory itself: a commit goes through the directory's create/update
// operations, and only their success closes the buffer.
type EditBufferService struct {
	writer    studentWriter
	validator *validator.Validate
	logger    *zap.Logger

	buffer *EditBuffer
}

// NewEditBufferService constructs the edit buffer component.
func NewEditBufferService(writer studentWriter, validate *validator.Validate, logger *zap.Logger) *EditBufferService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditBufferService{writer: writer, validator: validate, logger: logger}
}

// Open reports whether an editing affordance is active.
func (s *EditBufferService) Open() bool {
	return s.buffer != nil
}

// Buffer returns the live buffer for form binding, nil when closed.
func (s *EditBufferService) Buffer() *EditBuffer {
	return s.buffer
}

// OpenForCreate resets the buffer to creation defaults.
func (s *EditBufferService) OpenForCreate() {
	s.buffer = &EditBuffer{Age: defaultAge, Rows: []GradeRow{}}
}

// OpenForEdit deep-copies the record into the buffer, expanding its grade
// mapping into ordered rows. Subjects are sorted for a stable display order;
// the mapping itself carries none.
func (s *EditBufferService) OpenForEdit(record models.StudentRecord) {
	buf := &EditBuffer{
		ID:        record.ID,
		Name:      record.Name,
		Age:       record.Age,
		Gender:    record.Gender,
		Major:     record.Major,
		ClassName: record.ClassName,
		Rows:      []GradeRow{},
	}
	subjects := make([]string, 0, len(record.Grades))
	for subject := range record.Grades {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	for _, subject := range subjects {
		buf.Rows = append(buf.Rows, GradeRow{Subject: subject, Score: record.Grades[subject]})
	}
	s.buffer = buf
}

// AddGradeRow appends an empty subject/score row. No server interaction.
func (s *EditBufferService) AddGradeRow() {
	if s.buffer == nil {
		return
	}
	s.buffer.Rows = append(s.buffer.Rows, GradeRow{})
}

// RemoveGradeRow drops the row at index; out-of-range indexes are ignored.
func (s *EditBufferService) RemoveGradeRow(index int) {
	if s.buffer == nil || index < 0 || index >= len(s.buffer.Rows) {
		return
	}
	s.buffer.Rows = append(s.buffer.Rows[:index], s.buffer.Rows[index+1:]...)
}

// Cancel discards the buffer without committing.
func (s *EditBufferService) Cancel() {
	s.buffer = nil
}

// Commit validates the buffer, collapses the grade rows back into a mapping
// (duplicate subjects silently overwrite earlier entries, matching the
// original form's behavior), and dispatches create or update depending on id
// presence. A failed commit never closes the buffer: its state is preserved
// verbatim for retry.
func (s *EditBufferService) Commit(ctx context.Context) error {
	if s.buffer == nil {
		return appErrors.Clone(appErrors.ErrValidation, "no edit in progress")
	}
	if err := s.validator.Struct(s.buffer); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name is required")
	}

	payload := models.StudentRecord{
		Name:      s.buffer.Name,
		Age:       s.buffer.Age,
		Gender:    s.buffer.Gender,
		Major:     s.buffer.Major,
		ClassName: s.buffer.ClassName,
		Grades:    collapseRows(s.buffer.Rows),
	}

	var err error
	if s.buffer.ID == 0 {
		err = s.writer.Create(ctx, payload)
	} else {
		err = s.writer.Update(ctx, s.buffer.ID, payload)
	}
	if err != nil {
		return err
	}
	s.buffer = nil
	return nil
}

func collapseRows(rows []GradeRow) map[string]float64 {
	grades := make(map[string]float64, len(rows))
	for _, row := range rows {
		grades[row.Subject] = row.Score
	}
	return grades
}
