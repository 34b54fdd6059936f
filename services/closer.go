package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"triviad/models"
	"triviad/store"
)

// Closer finalizes expired games exactly once across all replicas. The
// sequence per game is: lock, double-check, commit closed_at, grade, deliver
// results, move to history. The closed_at write is the commit point; every
// step after it is either idempotent or best-effort, so a crash anywhere
// leaves the game recoverable by the next cycle.
type Closer struct {
	store    *store.GameStore
	locks    *store.LockManager
	judge    AnswerJudge
	sink     DeliverySink
	archiver *Archiver // optional
	lockTTL  time.Duration
	now      func() time.Time
}

func NewCloser(gs *store.GameStore, locks *store.LockManager, judge AnswerJudge, sink DeliverySink, archiver *Archiver) *Closer {
	return &Closer{
		store:    gs,
		locks:    locks,
		judge:    judge,
		sink:     sink,
		archiver: archiver,
		lockTTL:  60 * time.Second,
		now:      time.Now,
	}
}

// RunOnce performs one closing cycle across all known scopes.
func (c *Closer) RunOnce(ctx context.Context) {
	scopes, err := c.store.Scopes(ctx)
	if err != nil {
		log.Printf("Closer: failed to list scopes: %v", err)
		return
	}

	now := c.now().UTC()
	for _, scope := range scopes {
		active, err := c.store.ListActiveGames(ctx, scope)
		if err != nil {
			log.Printf("Closer: failed to list active games for %s: %v", scope, err)
			continue
		}

		for _, game := range active {
			switch {
			case game.Closed():
				// A previous closer committed the close but crashed before
				// finishing the history move. Complete it without repeating
				// scoring or delivery.
				if err := c.processGame(ctx, game); err != nil {
					log.Printf("Closer: recovery of game %.8s failed: %v", game.ID, err)
				}
			case game.Expired(now):
				if err := c.processGame(ctx, game); err != nil {
					log.Printf("Closer: failed to close game %.8s: %v", game.ID, err)
				}
			}
		}
	}
}

// processGame runs the close state machine for one candidate under the
// per-game lock.
func (c *Closer) processGame(ctx context.Context, candidate *models.Game) error {
	resource := fmt.Sprintf("trivia:%s:game:%s", store.ScopeID(candidate.GuildID), candidate.ID)
	token, acquired, err := c.locks.Acquire(ctx, resource, c.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		// Another replica is handling this game this cycle.
		return nil
	}
	defer func() {
		if err := c.locks.Release(ctx, resource, token); err != nil {
			log.Printf("Closer: failed to release lock for game %.8s: %v", candidate.ID, err)
		}
	}()

	// Double-check under the lock: the candidate was selected from a
	// snapshot that may be stale by now.
	game, err := c.store.GetGame(ctx, candidate.GuildID, candidate.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Already fully processed by another replica.
		return nil
	}
	if err != nil {
		return err
	}

	if game.Closed() {
		return c.finishWithoutScoring(ctx, game)
	}

	// Commit point. Once this write lands no other replica will repeat the
	// work below, even if this one crashes immediately after.
	closedAt := c.now().UTC()
	game.ClosedAt = &closedAt
	if err := c.store.UpdateGame(ctx, game); err != nil {
		return err
	}

	submissions, err := c.store.GetSubmissions(ctx, game.GuildID, game.ID)
	if err != nil {
		return err
	}

	c.gradeSubmissions(ctx, game, submissions)

	results := buildResults(game, submissions)
	c.deliverResults(ctx, game, results)

	if err := c.store.MoveToHistory(ctx, game, submissions); err != nil {
		return err
	}

	if c.archiver != nil {
		if err := c.archiver.Archive(ctx, game, submissions, results); err != nil {
			log.Printf("Closer: archive failed for game %.8s: %v", game.ID, err)
		}
	}

	log.Printf("Closer: closed game %.8s (%d submissions, %d correct)",
		game.ID, results.Participants, results.CorrectCount)
	return nil
}

// finishWithoutScoring completes the history move for a game whose close was
// already committed. Verdicts were persisted on the submissions before any
// crash, so nothing is re-scored and nothing is re-delivered.
func (c *Closer) finishWithoutScoring(ctx context.Context, game *models.Game) error {
	submissions, err := c.store.GetSubmissions(ctx, game.GuildID, game.ID)
	if err != nil {
		return err
	}
	if err := c.store.MoveToHistory(ctx, game, submissions); err != nil {
		return err
	}
	log.Printf("Closer: completed interrupted close of game %.8s", game.ID)
	return nil
}

// gradeSubmissions attaches a verdict to every ungraded submission, writing
// each verdict back so it is never recomputed. Cached verdicts are reused
// unchanged.
func (c *Closer) gradeSubmissions(ctx context.Context, game *models.Game, submissions map[string]*models.Submission) {
	for userID, sub := range submissions {
		if sub.Graded() {
			continue
		}

		verdict, err := c.judge.Judge(ctx, sub.Answer, game.CorrectAnswer, game.Question, game.Options)
		if err != nil {
			log.Printf("Closer: grading failed for user %s on game %.8s: %v", userID, game.ID, err)
			continue
		}

		gradedAt := c.now().UTC()
		sub.IsCorrect = &verdict.IsCorrect
		sub.Feedback = verdict.Feedback
		sub.GradedAt = &gradedAt

		if err := c.store.UpdateSubmission(ctx, game.GuildID, game.ID, userID, sub); err != nil {
			log.Printf("Closer: failed to persist verdict for user %s on game %.8s: %v", userID, game.ID, err)
		}
	}
}

// Results aggregates the outcome of one closed game.
type Results struct {
	GameID       string   `json:"game_id"`
	Participants int      `json:"participants"`
	CorrectCount int      `json:"correct_count"`
	CorrectUsers []string `json:"correct_users"`
}

func buildResults(game *models.Game, submissions map[string]*models.Submission) *Results {
	results := &Results{
		GameID:       game.ID,
		Participants: len(submissions),
	}
	for userID, sub := range submissions {
		if sub.IsCorrect != nil && *sub.IsCorrect {
			results.CorrectUsers = append(results.CorrectUsers, userID)
		}
	}
	sort.Strings(results.CorrectUsers)
	results.CorrectCount = len(results.CorrectUsers)
	return results
}

// deliverResults posts the results message to the game's thread, or its
// channel when no thread exists. Failures are logged and never undone: the
// close already committed.
func (c *Closer) deliverResults(ctx context.Context, game *models.Game, results *Results) {
	channelID := game.ThreadID
	if channelID == "" {
		channelID = game.ChannelID
	}
	if channelID == "" {
		return
	}

	if _, err := c.sink.PostMessage(ctx, channelID, formatResults(game, results)); err != nil {
		log.Printf("Closer: results delivery failed for game %.8s: %v", game.ID, err)
	}
}

func formatResults(game *models.Game, results *Results) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trivia Results\nQuestion: %s\nCorrect Answer: %s\n", game.Question, game.CorrectAnswer)
	if game.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %s\n", game.Explanation)
	}
	if results.CorrectCount > 0 {
		fmt.Fprintf(&b, "Correct (%d): %s\n", results.CorrectCount, strings.Join(results.CorrectUsers, ", "))
	} else {
		b.WriteString("No one got it correct this time!\n")
	}
	fmt.Fprintf(&b, "Participation: %d player(s) answered\nCategory: %s • Game ID: %.8s",
		results.Participants, game.Category, game.ID)
	return b.String()
}
