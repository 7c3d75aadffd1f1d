package scoring

import (
	"github.com/mcoot/blendin/internal/model"
)

// Config holds the point values awarded at the end of a round
type Config struct {
	FakerReward   int // Awarded to the faker when they are not caught
	CatcherReward int // Awarded to each player who voted for a caught faker
}

// DefaultConfig returns the standard point values
func DefaultConfig() Config {
	return Config{
		FakerReward:   3,
		CatcherReward: 2,
	}
}

// Service applies the majority-vote scoring rule.
// It holds no state beyond its config and is safe for concurrent use.
type Service struct {
	cfg Config
}

// New creates a new scoring Service
func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Result is the outcome of scoring a single round
type Result struct {
	FakerID       model.PlayerID
	Caught        bool
	VotesForFaker int
	VotesCast     int
	Deltas        map[model.PlayerID]int // Every roster player has an entry, possibly 0
}

// ScoreRound determines whether the faker was caught and who earns points.
// The faker is caught only by a strict majority of the votes cast; ties and
// pluralities leave them uncaught.
func (s *Service) ScoreRound(fakerID model.PlayerID, votes map[model.PlayerID]model.PlayerID, players []model.PlayerID) *Result {
	result := &Result{
		FakerID:   fakerID,
		VotesCast: len(votes),
		Deltas:    make(map[model.PlayerID]int, len(players)),
	}
	for _, id := range players {
		result.Deltas[id] = 0
	}

	for _, target := range votes {
		if target == fakerID {
			result.VotesForFaker++
		}
	}
	result.Caught = 2*result.VotesForFaker > result.VotesCast

	if !result.Caught {
		if _, ok := result.Deltas[fakerID]; ok {
			result.Deltas[fakerID] += s.cfg.FakerReward
		}
		return result
	}

	for voter, target := range votes {
		if voter == fakerID || target != fakerID {
			continue
		}
		if _, ok := result.Deltas[voter]; ok {
			result.Deltas[voter] += s.cfg.CatcherReward
		}
	}
	return result
}

// Apply adds the round's deltas to the matching players' scores
func (r *Result) Apply(players []model.Player) {
	for i := range players {
		players[i].Score += r.Deltas[players[i].ID]
	}
}
