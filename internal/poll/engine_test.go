package poll

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movienight/internal/domain"
	"movienight/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.Store) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	store := storage.New(db)
	require.NoError(t, store.InitSchema())

	return NewEngine(store), store
}

func addMovie(t *testing.T, store *storage.Store, id, title string) {
	t.Helper()
	require.NoError(t, store.AddMovie(context.Background(), domain.Movie{TMDBID: id, Title: title}))
}

func castVote(t *testing.T, e *Engine, id, voter string, score int) {
	t.Helper()
	_, err := e.CastVote(context.Background(), id, voter, score)
	require.NoError(t, err)
}

func TestCastVote_RejectsScoresOutsideTheSet(t *testing.T) {
	e, store := newTestEngine(t)
	addMovie(t, store, "42", "Heat")

	for _, score := range []int{-101, -99, -50, -1, 6, 100} {
		_, err := e.CastVote(context.Background(), "42", "u1", score)
		assert.ErrorIs(t, err, ErrInvalidScore, "score %d", score)
	}

	for _, score := range []int{domain.VetoScore, 0, 1, 2, 3, 4, 5} {
		_, err := e.CastVote(context.Background(), "42", "u1", score)
		assert.NoError(t, err, "score %d", score)
	}
}

func TestCastVote_UnknownMovieRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CastVote(context.Background(), "missing", "u1", 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCastVote_ReportsReplacement(t *testing.T) {
	e, store := newTestEngine(t)
	addMovie(t, store, "42", "Heat")

	res, err := e.CastVote(context.Background(), "42", "u1", 3)
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, 3, res.Score)

	res, err = e.CastVote(context.Background(), "42", "u1", 5)
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, 5, res.Score)
}

func TestStandings_VetoMovesCandidateToVetoedPartition(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	addMovie(t, store, "a", "Alpha")
	castVote(t, e, "a", "u1", 5)
	castVote(t, e, "a", "u2", 4)

	st, err := e.Standings(ctx, nil)
	require.NoError(t, err)
	require.Len(t, st.Active, 1)
	assert.Empty(t, st.Vetoed)
	assert.Equal(t, 9, st.Active[0].Total)

	// a single veto flips the partition on the next computation
	castVote(t, e, "a", "u3", domain.VetoScore)

	st, err = e.Standings(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, st.Active)
	require.Len(t, st.Vetoed, 1)
	assert.Equal(t, "Alpha", st.Vetoed[0].Title)
}

func TestStandings_VoterFilterRestrictsAggregation(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	addMovie(t, store, "a", "Alpha")
	castVote(t, e, "a", "u1", 5)
	castVote(t, e, "a", "u2", domain.VetoScore)

	// unfiltered: vetoed
	st, err := e.Standings(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, st.Active)
	assert.Len(t, st.Vetoed, 1)

	// restricted to u1 the veto vote is invisible
	st, err = e.Standings(ctx, []string{"u1"})
	require.NoError(t, err)
	require.Len(t, st.Active, 1)
	assert.Equal(t, 5, st.Active[0].Total)
	assert.Equal(t, 1, st.Active[0].VoteCount)
	assert.Empty(t, st.Vetoed)
}

func TestStandings_EmptyIsDistinctFromZero(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	st, err := e.Standings(ctx, nil)
	require.NoError(t, err)
	assert.True(t, st.Empty())

	addMovie(t, store, "a", "Alpha")
	castVote(t, e, "a", "u1", 0)

	st, err = e.Standings(ctx, nil)
	require.NoError(t, err)
	assert.False(t, st.Empty())
	require.Len(t, st.Active, 1)
	assert.Equal(t, 0, st.Active[0].Total)
}

func TestStandings_ActiveOrderedByTotalDesc(t *testing.T) {
	e, store := newTestEngine(t)

	addMovie(t, store, "a", "Alpha")
	addMovie(t, store, "b", "Beta")
	addMovie(t, store, "c", "Gamma")
	castVote(t, e, "a", "u1", 2)
	castVote(t, e, "b", "u1", 5)
	castVote(t, e, "c", "u1", 4)

	st, err := e.Standings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, st.Active, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{st.Active[0].TMDBID, st.Active[1].TMDBID, st.Active[2].TMDBID})
}

func TestPickWinner_DrawsOnlyFromTopThreeActive(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	// A(12), B(9), C(9, vetoed), D(5), E(2)
	addMovie(t, store, "a", "A")
	addMovie(t, store, "b", "B")
	addMovie(t, store, "c", "C")
	addMovie(t, store, "d", "D")
	addMovie(t, store, "e", "E")

	castVote(t, e, "a", "u1", 5)
	castVote(t, e, "a", "u2", 4)
	castVote(t, e, "a", "u3", 3)
	castVote(t, e, "b", "u1", 5)
	castVote(t, e, "b", "u2", 4)
	castVote(t, e, "c", "u1", 5)
	castVote(t, e, "c", "u2", 4)
	castVote(t, e, "c", "u3", domain.VetoScore)
	castVote(t, e, "d", "u1", 5)
	castVote(t, e, "e", "u1", 2)

	// exercise every index of the top-3 slice
	for idx := 0; idx < 3; idx++ {
		e.randIntN = func(n int) int {
			require.Equal(t, 3, n)
			return idx
		}
		winner, err := e.PickWinner(ctx)
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b", "d"}, winner.TMDBID)
		assert.NotEqual(t, "c", winner.TMDBID)
		assert.NotEqual(t, "e", winner.TMDBID)
	}
}

func TestPickWinner_FewerThanThreeCandidates(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	addMovie(t, store, "a", "Alpha")
	castVote(t, e, "a", "u1", 4)

	e.randIntN = func(n int) int {
		require.Equal(t, 1, n)
		return 0
	}
	winner, err := e.PickWinner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", winner.TMDBID)

	addMovie(t, store, "b", "Beta")
	castVote(t, e, "b", "u1", 5)

	e.randIntN = func(n int) int {
		require.Equal(t, 2, n)
		return 1
	}
	winner, err = e.PickWinner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", winner.TMDBID) // index 1 after Beta(5) > Alpha(4)
}

func TestPickWinner_NoEligibleCandidates(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	_, err := e.PickWinner(ctx)
	assert.ErrorIs(t, err, ErrNoCandidates)

	// a vetoed-only field is still not eligible
	addMovie(t, store, "a", "Alpha")
	castVote(t, e, "a", "u1", domain.VetoScore)

	_, err = e.PickWinner(ctx)
	assert.ErrorIs(t, err, ErrNoCandidates)
}
