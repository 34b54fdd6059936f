package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"triviad/models"
)

// Outcome is the result of one submission attempt. Every value other than
// OutcomeOK is an ordinary, expected result that callers map to a user-facing
// message; none of them are errors.
type Outcome string

const (
	OutcomeOK               Outcome = "OK"
	OutcomeGameNotFound     Outcome = "GAME_NOT_FOUND"
	OutcomeGameClosed       Outcome = "GAME_CLOSED"
	OutcomeWindowClosed     Outcome = "WINDOW_CLOSED"
	OutcomeAlreadySubmitted Outcome = "ALREADY_SUBMITTED"
)

// submitScript is the Atomic Submission Protocol. All five validate-and-write
// steps execute as one server-side unit, so no other writer can observe or
// mutate game or submission state between the checks and the write. Two
// concurrent submissions for the same (game, user) pair are strictly ordered
// here and exactly one succeeds; a submission racing the closer loses the
// moment closed_at becomes visible.
//
// KEYS[1] = active games hash, KEYS[2] = submissions hash
// ARGV[1] = game id, ARGV[2] = user id, ARGV[3] = submission JSON,
// ARGV[4] = current unix time (seconds, fractional)
var submitScript = redis.NewScript(`
local game_json = redis.call("HGET", KEYS[1], ARGV[1])
if not game_json then
	return {"err", "GAME_NOT_FOUND"}
end

local game = cjson.decode(game_json)
if game["closed_at"] then
	return {"err", "GAME_CLOSED"}
end

local ends_at = tonumber(game["ends_at_epoch"])
if ends_at and tonumber(ARGV[4]) >= ends_at then
	return {"err", "WINDOW_CLOSED"}
end

if redis.call("HEXISTS", KEYS[2], ARGV[2]) == 1 then
	return {"err", "ALREADY_SUBMITTED"}
end

redis.call("HSET", KEYS[2], ARGV[2], ARGV[3])
return {"ok", "SUBMITTED"}
`)

// SubmitAnswer validates and records one user's answer against one game as a
// single indivisible store-side operation. The returned error covers only
// infrastructure failures (connection, script, malformed reply); validation
// failures come back as the Outcome.
func (s *GameStore) SubmitAnswer(ctx context.Context, guildID, gameID, userID string, sub *models.Submission) (Outcome, error) {
	scope := ScopeID(guildID)

	blob, err := encode(sub)
	if err != nil {
		return "", err
	}

	now := float64(time.Now().UnixMilli()) / 1000
	keys := []string{activeGamesKey(scope), submissionsKey(scope, gameID)}
	result, err := submitScript.Run(ctx, s.rdb, keys,
		gameID, userID, blob, fmt.Sprintf("%f", now)).Result()
	if err != nil {
		return "", err
	}

	reply, ok := result.([]interface{})
	if !ok || len(reply) != 2 {
		return "", fmt.Errorf("unexpected submission script reply: %v", result)
	}
	status, _ := reply[0].(string)
	detail, _ := reply[1].(string)

	if status == "ok" {
		return OutcomeOK, nil
	}
	switch Outcome(detail) {
	case OutcomeGameNotFound, OutcomeGameClosed, OutcomeWindowClosed, OutcomeAlreadySubmitted:
		return Outcome(detail), nil
	default:
		return "", fmt.Errorf("unknown submission outcome %q", detail)
	}
}
