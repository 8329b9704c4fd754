package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"movienight/internal/domain"
	"movienight/internal/poll"
	"movienight/internal/storage"
	"movienight/internal/tmdb"
	"movienight/internal/trakt"
)

const (
	// enrichmentBudget bounds the whole trailer + Trakt fan-out for one card.
	enrichmentBudget = 45 * time.Second

	autocompleteTimeout = 2 * time.Second
	storeTimeout        = 10 * time.Second

	// standingsTTL is how long the standings posted after a vote stay up.
	standingsTTL = 15 * time.Second
)

func (a *App) handleMovie(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	query := strings.TrimSpace(i.ApplicationCommandData().Options[0].StringValue())

	// external lookups ahead, ack first
	if err := deferResponse(s, i); err != nil {
		log.Error("defer failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), enrichmentBudget)
	defer cancel()

	tmdbID := query
	if !isDigits(query) {
		// free text that bypassed autocomplete: fall back to the top search hit
		results, err := a.tmdb.SearchMovies(ctx, query)
		if err != nil || len(results) == 0 {
			if err != nil {
				log.Error("tmdb search failed", "error", err)
			}
			a.followupText(s, i, log, "Movie not found. Pick one of the search suggestions!")
			return
		}
		tmdbID = strconv.FormatInt(results[0].ID, 10)
	}

	m, err := a.tmdb.MovieByID(ctx, tmdbID)
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			a.followupText(s, i, log, "Movie not found. Pick one of the search suggestions!")
			return
		}
		log.Error("tmdb lookup failed", "error", err)
		a.followupText(s, i, log, "The movie database is unreachable right now, try again later.")
		return
	}

	movie := domain.Movie{
		TMDBID: tmdbID,
		Title:  m.Title,
		Poster: m.PosterURL(),
		Year:   m.Year(),
	}
	if err := a.store.AddMovie(ctx, movie); err != nil {
		log.Error("add movie failed", "error", err)
		a.followupText(s, i, log, "Could not save the movie, try again.")
		return
	}

	a.sendMovieCard(ctx, s, i, log, tmdbID, m)
}

func (a *App) handleMovieAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	query := strings.TrimSpace(i.ApplicationCommandData().Options[0].StringValue())

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	results, err := a.tmdb.SearchMovies(ctx, query)
	if err != nil {
		// autocomplete is best-effort, an empty list is a valid answer
		log.Debug("autocomplete search failed", "error", err)
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(results))
	for _, m := range results {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (%s)", m.Title, m.Year()),
			Value: strconv.FormatInt(m.ID, 10),
		})
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.Error("autocomplete respond failed", "error", err)
	}
}

func (a *App) handleVoteList(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	movies, err := a.store.ListMovies(ctx)
	if err != nil {
		log.Error("list movies failed", "error", err)
		a.respondText(s, i, log, "Could not load the movie list.", true)
		return
	}
	if len(movies) == 0 {
		a.respondText(s, i, log, "No movies found! Use `/movie` first.", true)
		return
	}

	menu := movieSelectMenu(movies)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    "Select a movie:",
			Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}}},
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error("vote list respond failed", "error", err)
	}
}

func (a *App) handleVoteSelect(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	tmdbID := values[0]

	if err := deferResponse(s, i); err != nil {
		log.Error("defer failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), enrichmentBudget)
	defer cancel()

	m, err := a.tmdb.MovieByID(ctx, tmdbID)
	if err != nil {
		log.Error("tmdb lookup failed", "tmdb_id", tmdbID, "error", err)
		a.followupText(s, i, log, "Failed to fetch movie data.")
		return
	}

	a.sendMovieCard(ctx, s, i, log, tmdbID, m)
}

func (a *App) handleVoteButton(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	tmdbID, score, err := parseVoteCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		log.Error("bad vote custom id", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	voterID := interactionUserID(i)
	res, err := a.engine.CastVote(ctx, tmdbID, voterID, score)
	switch {
	case errors.Is(err, poll.ErrInvalidScore):
		a.respondText(s, i, log, "That vote value is not allowed.", true)
		return
	case errors.Is(err, storage.ErrNotFound):
		a.respondText(s, i, log, "This movie is no longer on the list.", true)
		return
	case err != nil:
		log.Error("cast vote failed", "tmdb_id", tmdbID, "error", err)
		a.respondText(s, i, log, "Something went wrong, try again.", true)
		return
	}

	title := tmdbID
	if m, err := a.store.GetMovie(ctx, tmdbID); err == nil {
		title = m.Title
	}

	log.Info("vote cast", "tmdb_id", tmdbID, "score", res.Score, "replaced", res.Replaced)

	content := fmt.Sprintf("%s <@%s> voted %s for **%s**!", scoreIcon(res.Score), voterID, voteLabel(res.Score), title)
	if res.Replaced {
		content += " (previous vote replaced)"
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		log.Error("vote respond failed", "error", err)
		return
	}

	a.postStandingsSnapshot(ctx, s, i.ChannelID, log)
}

// postStandingsSnapshot drops the current leaderboard into the channel and
// removes it again after a short while to keep the channel tidy.
func (a *App) postStandingsSnapshot(ctx context.Context, s *discordgo.Session, channelID string, log *slog.Logger) {
	st, err := a.engine.Standings(ctx, nil)
	if err != nil {
		log.Error("standings failed", "error", err)
		return
	}

	msg, err := s.ChannelMessageSendEmbed(channelID, standingsEmbed(st))
	if err != nil {
		log.Error("send standings failed", "error", err)
		return
	}

	time.AfterFunc(standingsTTL, func() {
		if err := s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			log.Debug("delete standings snapshot failed", "error", err)
		}
	})
}

func (a *App) handleRanking(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	var voterIDs []string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type == discordgo.ApplicationCommandOptionUser {
			if u := opt.UserValue(nil); u != nil {
				voterIDs = append(voterIDs, u.ID)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	st, err := a.engine.Standings(ctx, voterIDs)
	if err != nil {
		log.Error("standings failed", "error", err)
		a.respondText(s, i, log, "Could not compute the ranking.", true)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{standingsEmbed(st)},
		},
	})
	if err != nil {
		log.Error("ranking respond failed", "error", err)
	}
}

func (a *App) handleWatched(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	input := strings.TrimSpace(i.ApplicationCommandData().Options[0].StringValue())

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var movie *domain.Movie
	var err error
	if isDigits(input) {
		movie, err = a.store.GetMovie(ctx, input)
	} else {
		movie, err = a.store.FindMovieByTitle(ctx, input)
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.respondText(s, i, log, "Movie not found.", true)
		return
	case errors.Is(err, storage.ErrAmbiguousTitle):
		a.respondText(s, i, log, "Several movies share that title — remove by TMDB id instead.", true)
		return
	case err != nil:
		log.Error("watched lookup failed", "error", err)
		a.respondText(s, i, log, "Something went wrong, try again.", true)
		return
	}

	removed, err := a.store.RemoveMovie(ctx, movie.TMDBID)
	if err != nil {
		log.Error("remove movie failed", "tmdb_id", movie.TMDBID, "error", err)
		a.respondText(s, i, log, "Something went wrong, try again.", true)
		return
	}
	if !removed {
		a.respondText(s, i, log, "Movie not found.", true)
		return
	}

	log.Info("movie removed", "tmdb_id", movie.TMDBID, "title", movie.Title)
	a.respondText(s, i, log, fmt.Sprintf("✅ **%s** removed.", movie.Title), false)
}

func (a *App) handleSetTrakt(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	username := strings.TrimSpace(i.ApplicationCommandData().Options[0].StringValue())
	if username == "" {
		a.respondText(s, i, log, "Username must not be empty.", true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := a.store.UpsertLink(ctx, interactionUserID(i), username); err != nil {
		log.Error("link account failed", "error", err)
		a.respondText(s, i, log, "Could not save the link, try again.", true)
		return
	}
	a.respondText(s, i, log, fmt.Sprintf("✅ Linked to: **%s**", username), true)
}

func (a *App) handlePick(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	winner, err := a.engine.PickWinner(ctx)
	switch {
	case errors.Is(err, poll.ErrNoCandidates):
		a.respondText(s, i, log, "No movies with votes to pick from!", false)
		return
	case err != nil:
		log.Error("pick winner failed", "error", err)
		a.respondText(s, i, log, "Something went wrong, try again.", true)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "🥁 Rolling..."},
	})
	if err != nil {
		log.Error("pick respond failed", "error", err)
		return
	}

	log.Info("winner picked", "tmdb_id", winner.TMDBID, "title", winner.Title)

	// a little drumroll before the reveal
	time.Sleep(2 * time.Second)

	empty := ""
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &empty,
		Embeds:  &[]*discordgo.MessageEmbed{winnerEmbed(winner)},
	})
	if err != nil {
		log.Error("winner reveal failed", "error", err)
	}
}

func (a *App) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger) {
	// command registration already restricts this to admins; keep the check
	// anyway since permission overrides can widen it
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		a.respondText(s, i, log, "Only administrators can reset the list.", true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := a.store.Clear(ctx); err != nil {
		log.Error("clear failed", "error", err)
		a.respondText(s, i, log, "Something went wrong, try again.", true)
		return
	}

	log.Info("database cleared")
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "🧹 Reset",
				Description: "All movies and votes cleared.",
				Color:       colorRed,
			}},
		},
	})
	if err != nil {
		log.Error("clear respond failed", "error", err)
	}
}

// sendMovieCard fetches the optional enrichments (trailer, Trakt reports)
// and posts the voting card as a follow-up. Enrichment failures degrade to a
// card without that section.
func (a *App) sendMovieCard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger, tmdbID string, m *tmdb.Movie) {
	trailerURL, err := a.tmdb.TrailerURL(ctx, tmdbID)
	if err != nil {
		log.Debug("trailer lookup failed", "tmdb_id", tmdbID, "error", err)
	}

	var reports []trakt.Report
	if a.trakt != nil {
		usernames, err := a.store.ListLinkedUsernames(ctx)
		if err != nil {
			log.Error("list linked usernames failed", "error", err)
		} else if len(usernames) > 0 {
			reports = a.trakt.CheckMovie(ctx, tmdbID, usernames)
		}
	}

	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{movieCardEmbed(m, reports)},
		Components: movieCardComponents(tmdbID, m, trailerURL, a.cfg.JellyseerrBaseURL),
	})
	if err != nil {
		log.Error("send movie card failed", "tmdb_id", tmdbID, "error", err)
	}
}

// ---------- Response helpers ----------

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (a *App) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Error("respond failed", "error", err)
	}
}

func (a *App) followupText(s *discordgo.Session, i *discordgo.InteractionCreate, log *slog.Logger, content string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content}); err != nil {
		log.Error("followup failed", "error", err)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
