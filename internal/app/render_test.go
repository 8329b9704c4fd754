package app

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movienight/internal/domain"
	"movienight/internal/tmdb"
	"movienight/internal/trakt"
)

func TestVoteCustomID_RoundTrip(t *testing.T) {
	tests := []struct {
		tmdbID string
		score  int
	}{
		{"949", 5},
		{"949", 0},
		{"12345", domain.VetoScore},
	}

	for _, tt := range tests {
		id, score, err := parseVoteCustomID(voteCustomID(tt.tmdbID, tt.score))
		require.NoError(t, err)
		assert.Equal(t, tt.tmdbID, id)
		assert.Equal(t, tt.score, score)
	}
}

func TestParseVoteCustomID_Malformed(t *testing.T) {
	for _, customID := range []string{"", "vote:", "vote:949", "vote:949:abc", "pick:949:5"} {
		_, _, err := parseVoteCustomID(customID)
		assert.Error(t, err, "customID %q", customID)
	}
}

func TestStandingsEmbed_Empty(t *testing.T) {
	embed := standingsEmbed(domain.Standings{})
	assert.Equal(t, "No active movies in the leaderboard!", embed.Description)
	assert.Empty(t, embed.Title)
}

func TestStandingsEmbed_RanksAndVetoes(t *testing.T) {
	st := domain.Standings{
		Active: []domain.Standing{
			{Title: "Heat", Total: 12, VoteCount: 3},
			{Title: "Solaris", Total: 9, VoteCount: 2},
		},
		Vetoed: []domain.Standing{
			{Title: "Cats", Total: -96, MinScore: domain.VetoScore, VoteCount: 2},
		},
	}

	embed := standingsEmbed(st)
	assert.Equal(t, "📊 Movie Ranking Standings", embed.Title)
	assert.Contains(t, embed.Description, "1. **Heat** — `12 pts` (3 votes)")
	assert.Contains(t, embed.Description, "2. **Solaris** — `9 pts` (2 votes)")

	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "🚫 Vetoed", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "~~Cats~~")
}

func TestStandingsEmbed_OnlyVetoed(t *testing.T) {
	st := domain.Standings{
		Vetoed: []domain.Standing{{Title: "Cats", MinScore: domain.VetoScore}},
	}

	embed := standingsEmbed(st)
	assert.Equal(t, "None", embed.Description)
	require.Len(t, embed.Fields, 1)
}

func TestMovieCardEmbed(t *testing.T) {
	m := &tmdb.Movie{
		ID:          949,
		Title:       "Heat",
		Overview:    strings.Repeat("x", 500),
		ReleaseDate: "1995-12-15",
		PosterPath:  "/heat.jpg",
		VoteAverage: 7.9,
	}

	embed := movieCardEmbed(m, nil)
	assert.Equal(t, "Heat (1995)", embed.Title)
	assert.Equal(t, "https://www.themoviedb.org/movie/949", embed.URL)
	assert.Len(t, embed.Description, 450+len("..."))
	require.NotNil(t, embed.Image)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "⭐ **7.9/10**", embed.Fields[0].Value)

	reports := []trakt.Report{
		{Username: "alice", InCollection: true},
		{Username: "bob", WatchedAt: "2024-03-09"},
	}
	embed = movieCardEmbed(m, reports)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "🛰️ Trakt Intelligence", embed.Fields[1].Name)
	assert.Contains(t, embed.Fields[1].Value, "**alice** has this in their **Collection**")
	assert.Contains(t, embed.Fields[1].Value, "**bob** watched this on 2024-03-09")
}

func TestMovieCardComponents(t *testing.T) {
	m := &tmdb.Movie{ID: 949, Title: "Heat", IMDBID: "tt0113277"}

	rows := movieCardComponents("949", m, "https://www.youtube.com/watch?v=abc", "https://requests.example.org")
	require.Len(t, rows, 4)

	stars := rows[0].(discordgo.ActionsRow)
	require.Len(t, stars.Components, 5)
	assert.Equal(t, "vote:949:5", stars.Components[0].(discordgo.Button).CustomID)

	low := rows[1].(discordgo.ActionsRow)
	require.Len(t, low.Components, 2)
	veto := low.Components[1].(discordgo.Button)
	assert.Equal(t, "vote:949:-100", veto.CustomID)
	assert.Equal(t, discordgo.DangerButton, veto.Style)

	sites := rows[2].(discordgo.ActionsRow)
	require.Len(t, sites.Components, 3) // trailer, tmdb, imdb
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", sites.Components[0].(discordgo.Button).URL)

	extras := rows[3].(discordgo.ActionsRow)
	require.Len(t, extras.Components, 3) // letterboxd, justwatch, jellyseerr
	assert.Equal(t, "https://requests.example.org/movie/949", extras.Components[2].(discordgo.Button).URL)
}

func TestMovieCardComponents_OptionalButtonsAbsent(t *testing.T) {
	m := &tmdb.Movie{ID: 949, Title: "Heat"}

	rows := movieCardComponents("949", m, "", "")
	sites := rows[2].(discordgo.ActionsRow)
	assert.Len(t, sites.Components, 1) // tmdb only
	extras := rows[3].(discordgo.ActionsRow)
	assert.Len(t, extras.Components, 2) // no jellyseerr
}

func TestMovieSelectMenu_CapsOptions(t *testing.T) {
	movies := make([]domain.Movie, 30)
	for i := range movies {
		movies[i] = domain.Movie{TMDBID: string(rune('a' + i)), Title: "Movie", Year: "2000"}
	}

	menu := movieSelectMenu(movies)
	assert.Equal(t, voteSelectID, menu.CustomID)
	assert.Len(t, menu.Options, maxSelectOptions)
}

func TestScoreIconAndLabel(t *testing.T) {
	assert.Equal(t, "🔥", scoreIcon(5))
	assert.Equal(t, "⛔", scoreIcon(domain.VetoScore))
	assert.Equal(t, "⭐", scoreIcon(42))
	assert.Equal(t, "VETO", voteLabel(domain.VetoScore))
	assert.Equal(t, "3 Stars", voteLabel(3))
}

func TestIsDigits(t *testing.T) {
	assert.True(t, isDigits("949"))
	assert.False(t, isDigits(""))
	assert.False(t, isDigits("heat"))
	assert.False(t, isDigits("94x9"))
	assert.False(t, isDigits("-949"))
}

func TestInteractionUserID(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "111"}},
	}}
	assert.Equal(t, "111", interactionUserID(guild))

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "222"},
	}}
	assert.Equal(t, "222", interactionUserID(dm))
}
