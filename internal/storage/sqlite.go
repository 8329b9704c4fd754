package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect import
	"github.com/jmoiron/sqlx"

	"movienight/internal/domain"
)

//go:embed schema.sql
var embeddedSchema embed.FS

var (
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousTitle is returned when a title lookup matches more than
	// one movie. Callers must fall back to the TMDB id.
	ErrAmbiguousTitle = errors.New("ambiguous title")
)

type Store struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, dialect: goqu.Dialect("sqlite3")}
}

func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return err
	}

	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return err
	}

	schema := strings.TrimSpace(string(b))
	_, err = s.db.Exec(schema)
	return err
}

// ---------- Movies ----------

// AddMovie inserts the candidate if absent. Re-adding an existing tmdb_id is
// a no-op: the original row is kept even if the new data differs.
func (s *Store) AddMovie(ctx context.Context, m domain.Movie) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO movies(tmdb_id, title, poster, year)
VALUES (?, ?, ?, ?)
ON CONFLICT(tmdb_id) DO NOTHING
`, m.TMDBID, m.Title, m.Poster, m.Year)
	return err
}

func (s *Store) GetMovie(ctx context.Context, tmdbID string) (*domain.Movie, error) {
	var row movieRow
	err := s.db.GetContext(ctx, &row, `SELECT tmdb_id, title, poster, year FROM movies WHERE tmdb_id = ?`, tmdbID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m := row.toDomain()
	return &m, nil
}

// FindMovieByTitle resolves a movie by exact title. It fails closed: zero
// matches yield ErrNotFound, more than one ErrAmbiguousTitle.
func (s *Store) FindMovieByTitle(ctx context.Context, title string) (*domain.Movie, error) {
	var rows []movieRow
	err := s.db.SelectContext(ctx, &rows, `SELECT tmdb_id, title, poster, year FROM movies WHERE title = ? ORDER BY tmdb_id`, title)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		m := rows[0].toDomain()
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d movies", ErrAmbiguousTitle, title, len(rows))
	}
}

func (s *Store) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	var rows []movieRow
	err := s.db.SelectContext(ctx, &rows, `SELECT tmdb_id, title, poster, year FROM movies ORDER BY title`)
	if err != nil {
		return nil, err
	}

	movies := make([]domain.Movie, 0, len(rows))
	for _, r := range rows {
		movies = append(movies, r.toDomain())
	}
	return movies, nil
}

func (s *Store) MovieExists(ctx context.Context, tmdbID string) (bool, error) {
	var cnt int
	err := s.db.GetContext(ctx, &cnt, `SELECT COUNT(1) FROM movies WHERE tmdb_id = ?`, tmdbID)
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// RemoveMovie deletes the movie and, through ON DELETE CASCADE, all of its
// votes in a single statement.
func (s *Store) RemoveMovie(ctx context.Context, tmdbID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE tmdb_id = ?`, tmdbID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Clear wipes all movies and votes. Linked accounts survive a reset.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM votes`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM movies`); err != nil {
		return err
	}
	return tx.Commit()
}

// ---------- Votes ----------

// UpsertVote records a voter's score for a movie, overwriting any prior score
// for the same (tmdb_id, user_id) pair. It reports whether a prior score was
// replaced.
func (s *Store) UpsertVote(ctx context.Context, tmdbID, userID string, score int) (replaced bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var cnt int
	if err := tx.GetContext(ctx, &cnt, `SELECT COUNT(1) FROM votes WHERE tmdb_id = ? AND user_id = ?`, tmdbID, userID); err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO votes(tmdb_id, user_id, score)
VALUES (?, ?, ?)
ON CONFLICT(tmdb_id, user_id) DO UPDATE SET
    score = excluded.score
`, tmdbID, userID, score)
	if err != nil {
		return false, err
	}
	return cnt > 0, tx.Commit()
}

// Standings aggregates votes per movie: total, minimum score and vote count,
// ordered by total descending with tmdb_id as the stable tie-break. An empty
// voterIDs slice aggregates over all voters.
func (s *Store) Standings(ctx context.Context, voterIDs []string) ([]domain.Standing, error) {
	q := s.dialect.
		From(goqu.T("movies").As("m")).
		Prepared(true).
		Join(goqu.T("votes").As("v"), goqu.On(goqu.Ex{"m.tmdb_id": goqu.I("v.tmdb_id")})).
		Select(
			goqu.I("m.tmdb_id"),
			goqu.I("m.title"),
			goqu.SUM(goqu.I("v.score")).As("total"),
			goqu.MIN(goqu.I("v.score")).As("min_score"),
			goqu.COUNT(goqu.I("v.user_id")).As("vote_count"),
		).
		GroupBy(goqu.I("m.tmdb_id"), goqu.I("m.title")).
		Order(goqu.I("total").Desc(), goqu.I("m.tmdb_id").Asc())

	if len(voterIDs) > 0 {
		q = q.Where(goqu.I("v.user_id").In(voterIDs))
	}

	query, args, err := q.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build standings query: %w", err)
	}

	var rows []standingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	standings := make([]domain.Standing, 0, len(rows))
	for _, r := range rows {
		standings = append(standings, domain.Standing(r))
	}
	return standings, nil
}

// ---------- Linked accounts ----------

func (s *Store) UpsertLink(ctx context.Context, userID, traktUsername string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users(discord_id, trakt_username)
VALUES (?, ?)
ON CONFLICT(discord_id) DO UPDATE SET
    trakt_username = excluded.trakt_username
`, userID, traktUsername)
	return err
}

func (s *Store) ListLinkedUsernames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `SELECT trakt_username FROM users ORDER BY discord_id`)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ---------- Row types ----------

type movieRow struct {
	TMDBID string `db:"tmdb_id"`
	Title  string `db:"title"`
	Poster string `db:"poster"`
	Year   string `db:"year"`
}

func (r movieRow) toDomain() domain.Movie {
	return domain.Movie{TMDBID: r.TMDBID, Title: r.Title, Poster: r.Poster, Year: r.Year}
}

type standingRow struct {
	TMDBID    string `db:"tmdb_id"`
	Title     string `db:"title"`
	Total     int    `db:"total"`
	MinScore  int    `db:"min_score"`
	VoteCount int    `db:"vote_count"`
}
