package services

import (
	"context"
	"sort"
	"time"

	"triviad/store"
)

// StatsService computes leaderboards and per-user stats from retained
// history records. Read-side only; it never touches active games.
type StatsService struct {
	store *store.GameStore
}

func NewStatsService(gs *store.GameStore) *StatsService {
	return &StatsService{store: gs}
}

type LeaderboardEntry struct {
	UserID  string `json:"user_id"`
	Correct int    `json:"correct"`
	Played  int    `json:"played"`
}

// Leaderboard ranks users by correct answers across history records ending
// at or after since (zero time means all retained history). Ties break by
// games played, then user id for stable output.
func (s *StatsService) Leaderboard(ctx context.Context, guildID string, since time.Time) ([]LeaderboardEntry, error) {
	history, err := s.store.AllHistory(ctx, guildID)
	if err != nil {
		return nil, err
	}

	tally := make(map[string]*LeaderboardEntry)
	for _, record := range history {
		if !since.IsZero() && record.EndedAt.Before(since) {
			continue
		}
		for userID, sub := range record.Submissions {
			entry, ok := tally[userID]
			if !ok {
				entry = &LeaderboardEntry{UserID: userID}
				tally[userID] = entry
			}
			entry.Played++
			if sub.IsCorrect != nil && *sub.IsCorrect {
				entry.Correct++
			}
		}
	}

	entries := make([]LeaderboardEntry, 0, len(tally))
	for _, entry := range tally {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Correct != entries[j].Correct {
			return entries[i].Correct > entries[j].Correct
		}
		if entries[i].Played != entries[j].Played {
			return entries[i].Played > entries[j].Played
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}

// UserStats returns one user's played/correct counts over retained history.
func (s *StatsService) UserStats(ctx context.Context, guildID, userID string) (LeaderboardEntry, error) {
	entries, err := s.Leaderboard(ctx, guildID, time.Time{})
	if err != nil {
		return LeaderboardEntry{UserID: userID}, err
	}
	for _, entry := range entries {
		if entry.UserID == userID {
			return entry, nil
		}
	}
	return LeaderboardEntry{UserID: userID}, nil
}
