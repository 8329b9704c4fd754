package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"movienight/internal/domain"
	"movienight/internal/tmdb"
	"movienight/internal/trakt"
)

const (
	votePrefix   = "vote:"
	voteSelectID = "vote_select"

	colorCard   = 0x2B2D31
	colorGold   = 0xF1C40F
	colorOrange = 0xE67E22
	colorPurple = 0x9B59B6
	colorRed    = 0xE74C3C

	overviewLimit = 450

	// Discord caps select menus at 25 options.
	maxSelectOptions = 25
)

var scoreIcons = map[int]string{
	5:                "🔥",
	4:                "✅",
	3:                "🆗",
	2:                "🤨",
	1:                "🥱",
	0:                "💩",
	domain.VetoScore: "⛔",
}

func voteCustomID(tmdbID string, score int) string {
	return fmt.Sprintf("%s%s:%d", votePrefix, tmdbID, score)
}

func parseVoteCustomID(customID string) (tmdbID string, score int, err error) {
	rest, ok := strings.CutPrefix(customID, votePrefix)
	if !ok {
		return "", 0, fmt.Errorf("not a vote custom id: %q", customID)
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return "", 0, fmt.Errorf("malformed vote custom id: %q", customID)
	}
	score, err = strconv.Atoi(rest[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed vote score in %q: %w", customID, err)
	}
	return rest[:idx], score, nil
}

func scoreIcon(score int) string {
	if icon, ok := scoreIcons[score]; ok {
		return icon
	}
	return "⭐"
}

func voteLabel(score int) string {
	if score == domain.VetoScore {
		return "VETO"
	}
	return fmt.Sprintf("%d Stars", score)
}

// movieCardEmbed renders the nomination card for a TMDB movie, with optional
// Trakt reports appended as a field.
func movieCardEmbed(m *tmdb.Movie, reports []trakt.Report) *discordgo.MessageEmbed {
	overview := m.Overview
	if len(overview) > overviewLimit {
		overview = overview[:overviewLimit] + "..."
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s (%s)", m.Title, m.Year()),
		URL:         tmdbMovieURL(m.ID),
		Description: overview,
		Color:       colorCard,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "TMDB Rating",
				Value:  fmt.Sprintf("⭐ **%.1f/10**", m.VoteAverage),
				Inline: true,
			},
		},
	}
	if poster := m.PosterURL(); poster != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: poster}
	}

	if len(reports) > 0 {
		lines := make([]string, 0, len(reports)*2)
		for _, r := range reports {
			if r.InCollection {
				lines = append(lines, fmt.Sprintf("📦 **%s** has this in their **Collection**", r.Username))
			}
			if r.WatchedAt != "" {
				lines = append(lines, fmt.Sprintf("👁️ **%s** watched this on %s", r.Username, r.WatchedAt))
			}
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🛰️ Trakt Intelligence",
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

// movieCardComponents builds the vote buttons and external link rows for a
// movie card. trailerURL and jellyseerrBaseURL may be empty.
func movieCardComponents(tmdbID string, m *tmdb.Movie, trailerURL, jellyseerrBaseURL string) []discordgo.MessageComponent {
	starRow := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "5 ⭐", Style: discordgo.SuccessButton, CustomID: voteCustomID(tmdbID, 5)},
		discordgo.Button{Label: "4 ⭐", Style: discordgo.SuccessButton, CustomID: voteCustomID(tmdbID, 4)},
		discordgo.Button{Label: "3 ⭐", Style: discordgo.SecondaryButton, CustomID: voteCustomID(tmdbID, 3)},
		discordgo.Button{Label: "2 ⭐", Style: discordgo.SecondaryButton, CustomID: voteCustomID(tmdbID, 2)},
		discordgo.Button{Label: "1 ⭐", Style: discordgo.SecondaryButton, CustomID: voteCustomID(tmdbID, 1)},
	}}
	lowRow := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "0 ⭐", Style: discordgo.SecondaryButton, CustomID: voteCustomID(tmdbID, 0)},
		discordgo.Button{
			Label:    "VETO",
			Style:    discordgo.DangerButton,
			CustomID: voteCustomID(tmdbID, domain.VetoScore),
			Emoji:    &discordgo.ComponentEmoji{Name: "🚫"},
		},
	}}

	var siteButtons []discordgo.MessageComponent
	if trailerURL != "" {
		siteButtons = append(siteButtons, discordgo.Button{Label: "Trailer 🍿", Style: discordgo.LinkButton, URL: trailerURL})
	}
	siteButtons = append(siteButtons, discordgo.Button{Label: "TMDB 🎬", Style: discordgo.LinkButton, URL: tmdbMovieURL(m.ID)})
	if m.IMDBID != "" {
		siteButtons = append(siteButtons, discordgo.Button{Label: "IMDb 🎥", Style: discordgo.LinkButton, URL: "https://www.imdb.com/title/" + m.IMDBID})
	}

	extraButtons := []discordgo.MessageComponent{
		discordgo.Button{Label: "Letterboxd 💚", Style: discordgo.LinkButton, URL: "https://letterboxd.com/tmdb/" + tmdbID},
		discordgo.Button{Label: "JustWatch 📺", Style: discordgo.LinkButton, URL: "https://www.justwatch.com/de/Suche?q=" + url.QueryEscape(m.Title)},
	}
	if jellyseerrBaseURL != "" {
		extraButtons = append(extraButtons, discordgo.Button{Label: "Jellyseerr 📥", Style: discordgo.LinkButton, URL: jellyseerrBaseURL + "/movie/" + tmdbID})
	}

	return []discordgo.MessageComponent{
		starRow,
		lowRow,
		discordgo.ActionsRow{Components: siteButtons},
		discordgo.ActionsRow{Components: extraButtons},
	}
}

func tmdbMovieURL(id int64) string {
	return fmt.Sprintf("https://www.themoviedb.org/movie/%d", id)
}

// standingsEmbed renders the leaderboard: active movies ranked by total,
// vetoed ones struck through in their own field.
func standingsEmbed(st domain.Standings) *discordgo.MessageEmbed {
	if st.Empty() {
		return &discordgo.MessageEmbed{
			Description: "No active movies in the leaderboard!",
			Color:       colorOrange,
		}
	}

	lines := make([]string, 0, len(st.Active))
	for i, s := range st.Active {
		lines = append(lines, fmt.Sprintf("%d. **%s** — `%d pts` (%d votes)", i+1, s.Title, s.Total, s.VoteCount))
	}
	description := "None"
	if len(lines) > 0 {
		description = strings.Join(lines, "\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📊 Movie Ranking Standings",
		Description: description,
		Color:       colorGold,
	}

	if len(st.Vetoed) > 0 {
		vetoed := make([]string, 0, len(st.Vetoed))
		for _, s := range st.Vetoed {
			vetoed = append(vetoed, fmt.Sprintf("~~%s~~", s.Title))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🚫 Vetoed",
			Value: strings.Join(vetoed, ", "),
		})
	}
	return embed
}

func winnerEmbed(winner domain.Standing) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎲 Winner",
		Description: fmt.Sprintf("# 🏆 %s", winner.Title),
		Color:       colorPurple,
	}
}

// movieSelectMenu builds the voting dropdown over current candidates, capped
// at Discord's option limit.
func movieSelectMenu(movies []domain.Movie) discordgo.SelectMenu {
	if len(movies) > maxSelectOptions {
		movies = movies[:maxSelectOptions]
	}

	options := make([]discordgo.SelectMenuOption, 0, len(movies))
	for _, m := range movies {
		options = append(options, discordgo.SelectMenuOption{
			Label: fmt.Sprintf("%s (%s)", m.Title, m.Year),
			Value: m.TMDBID,
		})
	}
	return discordgo.SelectMenu{
		CustomID:    voteSelectID,
		Placeholder: "Select a movie to open the voting card...",
		Options:     options,
	}
}
