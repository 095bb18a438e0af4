package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
)

type mockWriter struct {
	createErr error
	updateErr error

	createCalls int
	updateCalls int
	lastPayload models.StudentRecord
	lastID      int64
}

func (m *mockWriter) Create(ctx context.Context, payload models.StudentRecord) error {
	m.createCalls++
	m.lastPayload = payload
	return m.createErr
}

func (m *mockWriter) Update(ctx context.Context, id int64, payload models.StudentRecord) error {
	m.updateCalls++
	m.lastID = id
	m.lastPayload = payload
	return m.updateErr
}

func newEditor(writer *mockWriter) *EditBufferService {
	return NewEditBufferService(writer, validator.New(), zap.NewNop())
}

func TestOpenForCreateResetsToDefaults(t *testing.T) {
	svc := newEditor(&mockWriter{})
	svc.OpenForCreate()

	buf := svc.Buffer()
	require.NotNil(t, buf)
	assert.Zero(t, buf.ID)
	assert.Empty(t, buf.Name)
	assert.Equal(t, 18, buf.Age)
	assert.Empty(t, buf.Rows)
}

func TestOpenForEditDeepCopiesAndExpandsGrades(t *testing.T) {
	svc := newEditor(&mockWriter{})
	record := models.StudentRecord{
		ID: 5, Name: "Li", Age: 20, Gender: models.GenderFemale, Major: "CS", ClassName: "A1",
		Grades: map[string]float64{"Physics": 75, "Math": 88},
	}
	svc.OpenForEdit(record)

	buf := svc.Buffer()
	require.NotNil(t, buf)
	assert.Equal(t, int64(5), buf.ID)
	require.Len(t, buf.Rows, 2)
	assert.Equal(t, GradeRow{Subject: "Math", Score: 88}, buf.Rows[0])
	assert.Equal(t, GradeRow{Subject: "Physics", Score: 75}, buf.Rows[1])

	buf.Rows[0].Score = 0
	assert.Equal(t, 88.0, record.Grades["Math"], "buffer edits never reach the source record")
}

func TestGradeRowMutation(t *testing.T) {
	svc := newEditor(&mockWriter{})
	svc.OpenForCreate()

	svc.AddGradeRow()
	svc.AddGradeRow()
	svc.RemoveGradeRow(0)

	buf := svc.Buffer()
	require.Len(t, buf.Rows, 1)
	assert.Equal(t, GradeRow{Subject: "", Score: 0}, buf.Rows[0])

	svc.RemoveGradeRow(5)
	svc.RemoveGradeRow(-1)
	assert.Len(t, buf.Rows, 1, "out-of-range removals are ignored")
}

func TestCommitValidatesName(t *testing.T) {
	writer := &mockWriter{}
	svc := newEditor(writer)
	svc.OpenForCreate()

	err := svc.Commit(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, writer.createCalls, "nothing dispatched")
	assert.True(t, svc.Open(), "buffer stays open")
}

func TestCommitCreateCollapsesRows(t *testing.T) {
	writer := &mockWriter{}
	svc := newEditor(writer)
	svc.OpenForCreate()

	buf := svc.Buffer()
	buf.Name = "Li"
	buf.Age = 20
	buf.Gender = models.GenderFemale
	buf.Major = "CS"
	buf.ClassName = "A1"
	buf.Rows = []GradeRow{{Subject: "Math", Score: 88}, {Subject: "English", Score: 72}}

	require.NoError(t, svc.Commit(context.Background()))
	assert.Equal(t, 1, writer.createCalls)
	assert.Equal(t, 0, writer.updateCalls)
	assert.Equal(t, map[string]float64{"Math": 88, "English": 72}, writer.lastPayload.Grades)
	assert.False(t, svc.Open(), "buffer closed on success")
}

func TestCommitDuplicateSubjectsLastWriteWins(t *testing.T) {
	writer := &mockWriter{}
	svc := newEditor(writer)
	svc.OpenForCreate()

	buf := svc.Buffer()
	buf.Name = "Li"
	buf.Rows = []GradeRow{{Subject: "Math", Score: 60}, {Subject: "Math", Score: 95}}

	require.NoError(t, svc.Commit(context.Background()))
	assert.Equal(t, map[string]float64{"Math": 95}, writer.lastPayload.Grades)
}

func TestCommitDispatchesUpdateWhenIDPresent(t *testing.T) {
	writer := &mockWriter{}
	svc := newEditor(writer)
	svc.OpenForEdit(models.StudentRecord{ID: 7, Name: "Li", Grades: map[string]float64{"Math": 88}})

	require.NoError(t, svc.Commit(context.Background()))
	assert.Equal(t, 1, writer.updateCalls)
	assert.Equal(t, int64(7), writer.lastID)
	assert.Zero(t, writer.lastPayload.ID, "payload carries no id; the route does")
}

func TestCommitFailureKeepsBufferVerbatim(t *testing.T) {
	writer := &mockWriter{updateErr: appErrors.Clone(appErrors.ErrNotFound, "not found")}
	svc := newEditor(writer)
	svc.OpenForEdit(models.StudentRecord{ID: 7, Name: "Li", Age: 20, Grades: map[string]float64{"Math": 88}})

	before := *svc.Buffer()
	beforeRows := append([]GradeRow{}, svc.Buffer().Rows...)

	err := svc.Commit(context.Background())
	require.Error(t, err)
	require.True(t, svc.Open())
	after := *svc.Buffer()
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Age, after.Age)
	assert.Equal(t, beforeRows, after.Rows)
}

func TestCommitWithoutOpenBufferFails(t *testing.T) {
	svc := newEditor(&mockWriter{})
	err := svc.Commit(context.Background())
	require.Error(t, err)
}

func TestCancelDiscardsBuffer(t *testing.T) {
	svc := newEditor(&mockWriter{})
	svc.OpenForCreate()
	svc.Cancel()
	assert.False(t, svc.Open())
	assert.Nil(t, svc.Buffer())
}
