// Package config builds the process configuration once at startup from the
// environment. The struct is passed by reference and never mutated afterwards.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DiscordToken string
	TMDBToken    string

	// TraktClientID is optional; when empty the watch-history enrichment is
	// disabled.
	TraktClientID string

	// JellyseerrBaseURL is optional; when set, movie cards carry a request
	// link into the Jellyseerr instance.
	JellyseerrBaseURL string

	DBPath string
	Debug  bool
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		DiscordToken:      os.Getenv("DISCORD_TOKEN"),
		TMDBToken:         os.Getenv("TMDB_API_TOKEN"),
		TraktClientID:     os.Getenv("TRAKT_CLIENT_ID"),
		JellyseerrBaseURL: strings.TrimRight(os.Getenv("JELLYSEERR_BASE_URL"), "/"),
		DBPath:            getenv("DB_PATH", "data/movie_night.db"),
		Debug:             getbool("BOT_DEBUG", false),
	}

	if cfg.DiscordToken == "" {
		return nil, errors.New("DISCORD_TOKEN is not set")
	}
	if cfg.TMDBToken == "" {
		return nil, errors.New("TMDB_API_TOKEN is not set")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
