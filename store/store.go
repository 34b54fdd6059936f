package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"triviad/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DefaultHistoryTTL bounds how long completed games are retained.
const DefaultHistoryTTL = 7 * 24 * time.Hour

// GameStore provides CRUD and collection operations over the three logical
// regions of the shared store: registrations, active games and history.
// Reads return the best available snapshot; consistency across keys comes
// from the submission script and the lock manager, never from client-side
// multi-step transactions.
type GameStore struct {
	rdb        *redis.Client
	historyTTL time.Duration
}

func NewGameStore(rdb *redis.Client, historyTTL time.Duration) *GameStore {
	if historyTTL <= 0 {
		historyTTL = DefaultHistoryTTL
	}
	return &GameStore{rdb: rdb, historyTTL: historyTTL}
}

// Scopes returns every scope id the store has seen writes for. Schedulers use
// this to enumerate work from the store alone, with no other channel.
func (s *GameStore) Scopes(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, scopesKey).Result()
}

func (s *GameStore) trackScope(ctx context.Context, scope string) {
	if err := s.rdb.SAdd(ctx, scopesKey, scope).Err(); err != nil {
		log.Printf("Failed to track scope %s: %v", scope, err)
	}
}

// --- Active games ---

// CreateGame writes a new game into the active region. The epoch form of
// ends_at is precomputed so the submission script can compare it numerically.
func (s *GameStore) CreateGame(ctx context.Context, game *models.Game) error {
	scope := ScopeID(game.GuildID)
	game.EndsAtEpoch = float64(game.EndsAt.UnixMilli()) / 1000

	blob, err := encode(game)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, activeGamesKey(scope), game.ID, blob).Err(); err != nil {
		return err
	}
	s.trackScope(ctx, scope)
	return nil
}

// UpdateGame overwrites an active game record.
func (s *GameStore) UpdateGame(ctx context.Context, game *models.Game) error {
	scope := ScopeID(game.GuildID)
	game.EndsAtEpoch = float64(game.EndsAt.UnixMilli()) / 1000

	blob, err := encode(game)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, activeGamesKey(scope), game.ID, blob).Err()
}

// GetGame returns a specific active game, or ErrNotFound.
func (s *GameStore) GetGame(ctx context.Context, guildID, gameID string) (*models.Game, error) {
	blob, err := s.rdb.HGet(ctx, activeGamesKey(ScopeID(guildID)), gameID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var game models.Game
	if err := decode(blob, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// DeleteGame removes a game and its submissions from the active region,
// reporting whether the game existed. Unlike MoveToHistory this keeps
// nothing; it is the cancel path.
func (s *GameStore) DeleteGame(ctx context.Context, guildID, gameID string) (bool, error) {
	scope := ScopeID(guildID)
	deleted, err := s.rdb.HDel(ctx, activeGamesKey(scope), gameID).Result()
	if err != nil {
		return false, err
	}
	if err := s.rdb.Del(ctx, submissionsKey(scope, gameID)).Err(); err != nil {
		return deleted > 0, err
	}
	return deleted > 0, nil
}

// ListActiveGames returns all active games for a scope. A corrupt record is
// logged and skipped so one bad entry cannot stop processing of the rest.
func (s *GameStore) ListActiveGames(ctx context.Context, guildID string) (map[string]*models.Game, error) {
	blobs, err := s.rdb.HGetAll(ctx, activeGamesKey(ScopeID(guildID))).Result()
	if err != nil {
		return nil, err
	}

	games := make(map[string]*models.Game, len(blobs))
	for gameID, blob := range blobs {
		var game models.Game
		if err := decode(blob, &game); err != nil {
			log.Printf("Failed to decode game %s: %v", gameID, err)
			continue
		}
		games[gameID] = &game
	}
	return games, nil
}

// --- Registrations ---

// SaveRegistration creates or replaces a registration.
func (s *GameStore) SaveRegistration(ctx context.Context, reg *models.Registration) error {
	scope := ScopeID(reg.GuildID)
	blob, err := encode(reg)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, registrationsKey(scope), reg.ID, blob).Err(); err != nil {
		return err
	}
	s.trackScope(ctx, scope)
	return nil
}

// GetRegistration returns one registration, or ErrNotFound.
func (s *GameStore) GetRegistration(ctx context.Context, guildID, regID string) (*models.Registration, error) {
	blob, err := s.rdb.HGet(ctx, registrationsKey(ScopeID(guildID)), regID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var reg models.Registration
	if err := decode(blob, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetRegistrations returns all registrations for a scope.
func (s *GameStore) GetRegistrations(ctx context.Context, guildID string) (map[string]*models.Registration, error) {
	blobs, err := s.rdb.HGetAll(ctx, registrationsKey(ScopeID(guildID))).Result()
	if err != nil {
		return nil, err
	}

	regs := make(map[string]*models.Registration, len(blobs))
	for regID, blob := range blobs {
		var reg models.Registration
		if err := decode(blob, &reg); err != nil {
			log.Printf("Failed to decode registration %s: %v", regID, err)
			continue
		}
		regs[regID] = &reg
	}
	return regs, nil
}

// DeleteRegistration removes a registration, reporting whether it existed.
func (s *GameStore) DeleteRegistration(ctx context.Context, guildID, regID string) (bool, error) {
	deleted, err := s.rdb.HDel(ctx, registrationsKey(ScopeID(guildID)), regID).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// ClearRegistrationsByChannel deletes every registration targeting the given
// channel and returns how many were removed.
func (s *GameStore) ClearRegistrationsByChannel(ctx context.Context, guildID, channelID string) (int, error) {
	regs, err := s.GetRegistrations(ctx, guildID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	key := registrationsKey(ScopeID(guildID))
	for regID, reg := range regs {
		if reg.ChannelID != channelID {
			continue
		}
		if err := s.rdb.HDel(ctx, key, regID).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// ClearAllRegistrations deletes every registration for a scope.
func (s *GameStore) ClearAllRegistrations(ctx context.Context, guildID string) (int, error) {
	key := registrationsKey(ScopeID(guildID))
	count, err := s.rdb.HLen(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return 0, err
		}
	}
	return int(count), nil
}

// --- Submissions ---

// GetSubmissions returns all submissions for a game, keyed by user id.
func (s *GameStore) GetSubmissions(ctx context.Context, guildID, gameID string) (map[string]*models.Submission, error) {
	blobs, err := s.rdb.HGetAll(ctx, submissionsKey(ScopeID(guildID), gameID)).Result()
	if err != nil {
		return nil, err
	}

	subs := make(map[string]*models.Submission, len(blobs))
	for userID, blob := range blobs {
		var sub models.Submission
		if err := decode(blob, &sub); err != nil {
			log.Printf("Failed to decode submission for user %s: %v", userID, err)
			continue
		}
		subs[userID] = &sub
	}
	return subs, nil
}

// UpdateSubmission overwrites one submission, used to attach a grading
// verdict computed after the synchronous submit path.
func (s *GameStore) UpdateSubmission(ctx context.Context, guildID, gameID, userID string, sub *models.Submission) error {
	blob, err := encode(sub)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, submissionsKey(ScopeID(guildID), gameID), userID, blob).Err()
}

// --- History ---

// MoveToHistory writes the compact history record for a closed game and then
// removes it from the active region. It is idempotent: repeating it after the
// active entry is gone rewrites the same history record and no-ops the HDEL,
// so a crash between the two steps is recovered by simply calling it again.
func (s *GameStore) MoveToHistory(ctx context.Context, game *models.Game, submissions map[string]*models.Submission) error {
	scope := ScopeID(game.GuildID)

	endedAt := time.Now().UTC()
	if game.ClosedAt != nil {
		endedAt = *game.ClosedAt
	}

	record := &models.GameHistory{
		GameID:        game.ID,
		Question:      game.Question,
		CorrectAnswer: game.CorrectAnswer,
		Category:      game.Category,
		StartedAt:     game.StartedAt,
		EndedAt:       endedAt,
		Submissions:   submissions,
	}
	blob, err := encode(record)
	if err != nil {
		return err
	}

	err = s.rdb.ZAdd(ctx, historyIndexKey(scope), redis.Z{
		Score:  float64(endedAt.UnixMilli()) / 1000,
		Member: game.ID,
	}).Err()
	if err != nil {
		return err
	}
	if err := s.rdb.SetEx(ctx, historyKey(scope, game.ID), blob, s.historyTTL).Err(); err != nil {
		return err
	}

	// The submissions hash was copied into the record; let it decay with the
	// same retention instead of growing unbounded.
	if err := s.rdb.Expire(ctx, submissionsKey(scope, game.ID), s.historyTTL).Err(); err != nil {
		log.Printf("Failed to expire submissions for game %s: %v", game.ID, err)
	}

	return s.rdb.HDel(ctx, activeGamesKey(scope), game.ID).Err()
}

// RecentHistory returns up to limit completed games, newest first. Records
// whose TTL already elapsed are silently absent.
func (s *GameStore) RecentHistory(ctx context.Context, guildID string, limit int) ([]*models.GameHistory, error) {
	scope := ScopeID(guildID)
	gameIDs, err := s.rdb.ZRevRange(ctx, historyIndexKey(scope), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*models.GameHistory, 0, len(gameIDs))
	for _, gameID := range gameIDs {
		blob, err := s.rdb.Get(ctx, historyKey(scope, gameID)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}

		var record models.GameHistory
		if err := decode(blob, &record); err != nil {
			log.Printf("Failed to decode history for game %s: %v", gameID, err)
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// AllHistory returns every retained history record keyed by game id, used for
// leaderboard and stats computation.
func (s *GameStore) AllHistory(ctx context.Context, guildID string) (map[string]*models.GameHistory, error) {
	scope := ScopeID(guildID)
	gameIDs, err := s.rdb.ZRevRange(ctx, historyIndexKey(scope), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make(map[string]*models.GameHistory, len(gameIDs))
	for _, gameID := range gameIDs {
		blob, err := s.rdb.Get(ctx, historyKey(scope, gameID)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}

		var record models.GameHistory
		if err := decode(blob, &record); err != nil {
			log.Printf("Failed to decode history for game %s: %v", gameID, err)
			continue
		}
		records[gameID] = &record
	}
	return records, nil
}

// --- Used seeds ---

// MarkSeedUsed records a question seed as consumed. Returns false if the seed
// was already marked.
func (s *GameStore) MarkSeedUsed(ctx context.Context, guildID, seed string) (bool, error) {
	added, err := s.rdb.SAdd(ctx, usedSeedsKey(ScopeID(guildID)), seed).Result()
	if err != nil {
		return false, err
	}
	return added > 0, nil
}

// IsSeedUsed reports whether a question seed was consumed before.
func (s *GameStore) IsSeedUsed(ctx context.Context, guildID, seed string) (bool, error) {
	return s.rdb.SIsMember(ctx, usedSeedsKey(ScopeID(guildID)), seed).Result()
}

// UsedSeeds returns all consumed seeds for a scope.
func (s *GameStore) UsedSeeds(ctx context.Context, guildID string) ([]string, error) {
	return s.rdb.SMembers(ctx, usedSeedsKey(ScopeID(guildID))).Result()
}

// UsedSeedCount returns how many seeds have been consumed.
func (s *GameStore) UsedSeedCount(ctx context.Context, guildID string) (int64, error) {
	return s.rdb.SCard(ctx, usedSeedsKey(ScopeID(guildID))).Result()
}

// TrimUsedSeeds bounds the used-seed set to keepCount members. Sets have no
// ordering, so the eviction removes arbitrary excess members; this is a
// best-effort size bound, not an LRU.
func (s *GameStore) TrimUsedSeeds(ctx context.Context, guildID string, keepCount int) (int, error) {
	key := usedSeedsKey(ScopeID(guildID))
	count, err := s.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count <= int64(keepCount) {
		return 0, nil
	}

	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	excess := members[keepCount:]
	removed, err := s.rdb.SRem(ctx, key, toAnySlice(excess)...).Result()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

func toAnySlice(members []string) []any {
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

// --- Bulk maintenance ---

// StatsCleared reports what ClearStats removed.
type StatsCleared struct {
	Games       int `json:"games"`
	Submissions int `json:"submissions"`
	Seeds       int `json:"seeds"`
}

// ClearStats removes all historical data for a scope while preserving active
// games and registrations.
func (s *GameStore) ClearStats(ctx context.Context, guildID string) (*StatsCleared, error) {
	scope := ScopeID(guildID)
	cleared := &StatsCleared{}

	gameIDs, err := s.rdb.ZRevRange(ctx, historyIndexKey(scope), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	for _, gameID := range gameIDs {
		if err := s.rdb.Del(ctx, historyKey(scope, gameID)).Err(); err != nil {
			return cleared, err
		}
		cleared.Games++

		exists, err := s.rdb.Exists(ctx, submissionsKey(scope, gameID)).Result()
		if err != nil {
			return cleared, err
		}
		if exists > 0 {
			if err := s.rdb.Del(ctx, submissionsKey(scope, gameID)).Err(); err != nil {
				return cleared, err
			}
			cleared.Submissions++
		}
	}
	if err := s.rdb.Del(ctx, historyIndexKey(scope)).Err(); err != nil {
		return cleared, err
	}

	seeds, err := s.rdb.SCard(ctx, usedSeedsKey(scope)).Result()
	if err != nil {
		return cleared, err
	}
	if seeds > 0 {
		if err := s.rdb.Del(ctx, usedSeedsKey(scope)).Err(); err != nil {
			return cleared, err
		}
	}
	cleared.Seeds = int(seeds)

	return cleared, nil
}
