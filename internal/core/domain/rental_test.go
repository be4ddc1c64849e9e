package domain

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newActive() *Rental {
	return NewRental("r1", Movie{ID: "m1", Title: "Inception"}, "c1", t0, 48*time.Hour)
}

func TestRentalStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to RentalStatus
		want     bool
	}{
		{StatusActive, StatusPendingReturn, true},
		{StatusPendingReturn, StatusReturned, true},
		{StatusActive, StatusReturned, false},
		{StatusPendingReturn, StatusActive, false},
		{StatusReturned, StatusActive, false},
		{StatusReturned, StatusPendingReturn, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestRental_TransitionsFollowStateMachine(t *testing.T) {
	for _, st := range []RentalStatus{StatusReturned, RentalStatus("lost")} {
		r := newActive()
		r.Status = st

		assert.ErrorIs(t, r.RequestReturn(t0), ErrNotActive, "request from %s", st)
		assert.ErrorIs(t, r.ApproveReturn(t0), ErrNotPendingReturn, "approve from %s", st)
		assert.Equal(t, st, r.Status)
		assert.Nil(t, r.ReturnRequestDate)
		assert.Nil(t, r.ActualReturnDate)
	}
}

func TestRentalStatus_IsOpenMatchesOpenStatuses(t *testing.T) {
	for _, st := range []RentalStatus{StatusActive, StatusPendingReturn, StatusReturned, RentalStatus("lost")} {
		assert.Equal(t, slices.Contains(OpenStatuses(), st), st.IsOpen(), "%s", st)
	}
	assert.ElementsMatch(t, []RentalStatus{StatusActive, StatusPendingReturn}, OpenStatuses())
}

func TestNewRental(t *testing.T) {
	r := newActive()

	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, "Inception", r.MovieTitle)
	assert.Equal(t, t0.Add(48*time.Hour), r.PlannedReturnDate)
	assert.Nil(t, r.ReturnRequestDate)
	assert.Nil(t, r.ActualReturnDate)
	require.NoError(t, r.CheckInvariants())
}

func TestRental_Lifecycle(t *testing.T) {
	r := newActive()

	require.NoError(t, r.RequestReturn(t0.Add(time.Hour)))
	assert.Equal(t, StatusPendingReturn, r.Status)
	require.NotNil(t, r.ReturnRequestDate)
	assert.Equal(t, t0.Add(time.Hour), *r.ReturnRequestDate)
	require.NoError(t, r.CheckInvariants())

	require.NoError(t, r.ApproveReturn(t0.Add(2*time.Hour)))
	assert.Equal(t, StatusReturned, r.Status)
	require.NotNil(t, r.ActualReturnDate)
	assert.Equal(t, t0.Add(2*time.Hour), *r.ActualReturnDate)
	require.NoError(t, r.CheckInvariants())
}

func TestRental_RequestReturnTwice(t *testing.T) {
	r := newActive()
	require.NoError(t, r.RequestReturn(t0))

	first := *r.ReturnRequestDate
	err := r.RequestReturn(t0.Add(time.Minute))

	assert.True(t, errors.Is(err, ErrNotActive))
	assert.Equal(t, first, *r.ReturnRequestDate)
}

func TestRental_ApproveRequiresPending(t *testing.T) {
	r := newActive()

	err := r.ApproveReturn(t0)
	assert.ErrorIs(t, err, ErrNotPendingReturn)
	assert.Equal(t, StatusActive, r.Status)
	assert.Nil(t, r.ActualReturnDate)

	require.NoError(t, r.RequestReturn(t0))
	require.NoError(t, r.ApproveReturn(t0))
	assert.ErrorIs(t, r.ApproveReturn(t0.Add(time.Hour)), ErrNotPendingReturn)
	assert.Equal(t, t0, *r.ActualReturnDate)
}

func TestRental_CheckInvariants(t *testing.T) {
	r := newActive()
	r.Status = StatusReturned
	assert.ErrorIs(t, r.CheckInvariants(), ErrInvariantViolation)

	r = newActive()
	r.Status = StatusPendingReturn
	assert.ErrorIs(t, r.CheckInvariants(), ErrInvariantViolation)

	r = newActive()
	r.Status = "lost"
	assert.ErrorIs(t, r.CheckInvariants(), ErrInvariantViolation)
}

func TestClient_MatchesFullName(t *testing.T) {
	c := Client{FirstName: "Jan", LastName: "Kowalski"}

	assert.True(t, c.MatchesFullName("jan kowalski"))
	assert.True(t, c.MatchesFullName("  JAN   Kowalski "))
	assert.False(t, c.MatchesFullName("jan"))
	assert.False(t, c.MatchesFullName("kowalski jan"))
}

func TestCaller_Owns(t *testing.T) {
	r := newActive()

	assert.True(t, Caller{ID: "c1", Role: RoleUser}.Owns(r))
	assert.False(t, Caller{ID: "c2", Role: RoleAdmin}.Owns(r))
	assert.False(t, Caller{}.Owns(r))
	assert.False(t, Caller{ID: "c1"}.Owns(nil))
}
