// Package app wires the Discord interaction surface to the voting engine,
// the store and the external metadata/history clients. Handlers only extract
// input and render responses; the rules live in internal/poll.
package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"movienight/internal/config"
	"movienight/internal/poll"
	"movienight/internal/storage"
	"movienight/internal/tmdb"
	"movienight/internal/trakt"
)

type App struct {
	session *discordgo.Session
	store   *storage.Store
	engine  *poll.Engine
	tmdb    *tmdb.Client
	trakt   *trakt.Client
	cfg     *config.Config
	logger  *slog.Logger
}

// New builds the bot. traktClient may be nil when no Trakt client id is
// configured; the history enrichment is skipped in that case.
func New(session *discordgo.Session, store *storage.Store, tmdbClient *tmdb.Client, traktClient *trakt.Client, cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		session: session,
		store:   store,
		engine:  poll.NewEngine(store),
		tmdb:    tmdbClient,
		trakt:   traktClient,
		cfg:     cfg,
		logger:  logger,
	}
}

func (a *App) Start() error {
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.logger.Info("bot online", "username", s.State.User.Username, "bot_id", s.State.User.ID)
	})
	a.session.AddHandler(a.handleInteraction)

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}

	if err := a.registerCommands(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

func (a *App) Stop() {
	_ = a.session.Close()
}

func (a *App) registerCommands() error {
	adminOnly := int64(discordgo.PermissionAdministrator)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "movie",
			Description: "Search and add a movie to the list",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "query",
					Description:  "Movie title (pick a suggestion) or TMDB id",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "vote",
			Description: "Vote for a movie from the candidate list",
		},
		{
			Name:        "ranking",
			Description: "Show movie ranking",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user1",
					Description: "Only count votes from these users",
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user2",
					Description: "Only count votes from these users",
				},
			},
		},
		{
			Name:        "watched",
			Description: "Remove a movie from the candidate list",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "movie",
					Description: "Exact title or TMDB id",
					Required:    true,
				},
			},
		},
		{
			Name:        "set_trakt",
			Description: "Link your Trakt account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "Your Trakt.tv username",
					Required:    true,
				},
			},
		},
		{
			Name:        "pick",
			Description: "Pick a random winner from the Top 3",
		},
		{
			Name:                     "clear",
			Description:              "Reset the movie list (Admin only)",
			DefaultMemberPermissions: &adminOnly,
		},
	}

	for _, cmd := range commands {
		if _, err := a.session.ApplicationCommandCreate(a.session.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("create command %s: %w", cmd.Name, err)
		}
		a.logger.Debug("registered command", "name", cmd.Name)
	}
	return nil
}

func (a *App) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	log := a.logger.With("interaction_id", uuid.NewString(), "user_id", interactionUserID(i))

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		log = log.With("command", name)
		switch name {
		case "movie":
			a.handleMovie(s, i, log)
		case "vote":
			a.handleVoteList(s, i, log)
		case "ranking":
			a.handleRanking(s, i, log)
		case "watched":
			a.handleWatched(s, i, log)
		case "set_trakt":
			a.handleSetTrakt(s, i, log)
		case "pick":
			a.handlePick(s, i, log)
		case "clear":
			a.handleClear(s, i, log)
		}

	case discordgo.InteractionApplicationCommandAutocomplete:
		if i.ApplicationCommandData().Name == "movie" {
			a.handleMovieAutocomplete(s, i, log)
		}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		log = log.With("custom_id", customID)
		switch {
		case strings.HasPrefix(customID, votePrefix):
			a.handleVoteButton(s, i, log)
		case customID == voteSelectID:
			a.handleVoteSelect(s, i, log)
		}
	}
}

// interactionUserID extracts the acting user's id for guild and DM
// interactions alike.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
