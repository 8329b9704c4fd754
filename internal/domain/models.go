package domain

// VetoScore is the sentinel a voter casts to disqualify a movie outright.
const VetoScore = -100

// VetoThreshold marks a movie as vetoed once its lowest vote falls at or
// below this value.
const VetoThreshold = -50

// ValidScore reports whether s is one of the accepted vote values:
// the veto sentinel or a star rating from 0 to 5.
func ValidScore(s int) bool {
	return s == VetoScore || (s >= 0 && s <= 5)
}

type Movie struct {
	TMDBID string
	Title  string
	Poster string
	Year   string
}

type Vote struct {
	TMDBID string
	UserID string
	Score  int
}

type LinkedAccount struct {
	UserID        string
	TraktUsername string
}

// Standing is a movie's aggregate over its current votes.
type Standing struct {
	TMDBID    string
	Title     string
	Total     int
	MinScore  int
	VoteCount int
}

// Vetoed reports whether any voter cast the veto sentinel for this movie.
func (s Standing) Vetoed() bool {
	return s.MinScore <= VetoThreshold
}

// Standings partitions the current candidates: Active is ordered by total
// score descending, Vetoed holds movies disqualified by a veto vote.
type Standings struct {
	Active []Standing
	Vetoed []Standing
}

// Empty reports whether no movie has received any vote yet.
func (s Standings) Empty() bool {
	return len(s.Active) == 0 && len(s.Vetoed) == 0
}
