// Package poll implements the voting and ranking rules: score validation,
// the veto partition and the top-3 winner draw.
package poll

import (
	"context"
	"errors"
	"math/rand/v2"

	"movienight/internal/domain"
	"movienight/internal/storage"
)

var (
	ErrInvalidScore = errors.New("invalid score")
	ErrNoCandidates = errors.New("no eligible candidates")
)

// topContenders is the size of the pool the winner is drawn from.
const topContenders = 3

type Engine struct {
	store *storage.Store

	// randIntN is swapped out in tests to make the winner draw deterministic.
	randIntN func(n int) int
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{
		store:    store,
		randIntN: rand.IntN,
	}
}

// VoteResult describes the outcome of a cast vote for UI messaging.
type VoteResult struct {
	Score    int
	Replaced bool
}

// CastVote validates and records a voter's score for a movie. The score must
// be in the accepted set and the movie must exist; re-voting overwrites the
// prior score for the same (movie, voter) pair.
func (e *Engine) CastVote(ctx context.Context, tmdbID, voterID string, score int) (VoteResult, error) {
	if !domain.ValidScore(score) {
		return VoteResult{}, ErrInvalidScore
	}

	exists, err := e.store.MovieExists(ctx, tmdbID)
	if err != nil {
		return VoteResult{}, err
	}
	if !exists {
		return VoteResult{}, storage.ErrNotFound
	}

	replaced, err := e.store.UpsertVote(ctx, tmdbID, voterID, score)
	if err != nil {
		return VoteResult{}, err
	}
	return VoteResult{Score: score, Replaced: replaced}, nil
}

// Standings recomputes the aggregate per movie and splits the result into
// active and vetoed candidates. An empty voterIDs slice aggregates over all
// voters. Active candidates keep the store's ordering: total descending,
// tmdb_id ascending on ties.
func (e *Engine) Standings(ctx context.Context, voterIDs []string) (domain.Standings, error) {
	rows, err := e.store.Standings(ctx, voterIDs)
	if err != nil {
		return domain.Standings{}, err
	}

	var st domain.Standings
	for _, r := range rows {
		if r.Vetoed() {
			st.Vetoed = append(st.Vetoed, r)
		} else {
			st.Active = append(st.Active, r)
		}
	}
	return st, nil
}

// PickWinner draws uniformly at random from the top three active candidates
// by total score (fewer if fewer exist). Vetoed movies are never eligible.
func (e *Engine) PickWinner(ctx context.Context) (domain.Standing, error) {
	st, err := e.Standings(ctx, nil)
	if err != nil {
		return domain.Standing{}, err
	}
	if len(st.Active) == 0 {
		return domain.Standing{}, ErrNoCandidates
	}

	top := st.Active
	if len(top) > topContenders {
		top = top[:topContenders]
	}
	return top[e.randIntN(len(top))], nil
}
