package review

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type fixture struct {
	svc     *Service
	patient *model.Patient
	doctor  *model.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	p := &model.Patient{Base: model.NewBase(), Name: "Sara Adel", Email: "sara@example.com"}
	require.NoError(t, store.Patients().Create(ctx, p))
	d := &model.Doctor{Base: model.NewBase(), Name: "Dr. Youmna Ali"}
	require.NoError(t, store.Doctors().Create(ctx, d))

	return &fixture{svc: NewService(store.Reviews(), validator.New()), patient: p, doctor: d}
}

func (f *fixture) request(rating int) *model.CreateReviewRequest {
	return &model.CreateReviewRequest{
		PatientID: f.patient.ID.String(),
		DoctorID:  f.doctor.ID.String(),
		Rating:    &rating,
		Comment:   "great",
	}
}

func statusOf(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return 0
}

func intPtr(i int) *int { return &i }

func TestCreate_RatingBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, rating := range []int{1, 5} {
		r, err := f.svc.Create(ctx, f.request(rating))
		require.NoError(t, err)
		assert.Equal(t, rating, r.Rating)
		assert.Equal(t, "Sara Adel", r.PatientName)
		assert.Equal(t, "Dr. Youmna Ali", r.DoctorName)
	}

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.Create(ctx, f.request(rating))
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
		assert.Contains(t, err.Error(), MsgRatingRange)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(3)
	req.Rating = nil
	_, err := f.svc.Create(ctx, req)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	req = f.request(3)
	req.DoctorID = uuid.NewString()
	_, err = f.svc.Create(ctx, req)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	req = f.request(3)
	req.PatientID = "7"
	_, err = f.svc.Create(ctx, req)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestListUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.request(2))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := f.svc.Create(ctx, f.request(4))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, &f.doctor.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	other := uuid.New()
	none, err := f.svc.List(ctx, &other)
	require.NoError(t, err)
	assert.Empty(t, none)

	updated, err := f.svc.Update(ctx, first.ID, &model.UpdateReviewRequest{Rating: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "great", updated.Comment)

	_, err = f.svc.Update(ctx, first.ID, &model.UpdateReviewRequest{Rating: intPtr(9)})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.svc.Update(ctx, uuid.New(), &model.UpdateReviewRequest{})
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	require.NoError(t, f.svc.Delete(ctx, first.ID))
	assert.Equal(t, http.StatusNotFound, statusOf(f.svc.Delete(ctx, first.ID)))
}
