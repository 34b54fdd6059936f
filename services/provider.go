package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"html"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"triviad/models"
)

// QuestionProvider is an opaque source of trivia questions. A failing
// provider just means game creation is skipped this cycle and retried on the
// next tick.
type QuestionProvider interface {
	Generate(ctx context.Context, seed, category string) (*models.Question, error)
}

// --- OpenTDB ---

const openTDBBaseURL = "https://opentdb.com/api.php"

// openTDBCategories maps our category names to OpenTDB category ids.
var openTDBCategories = map[string]int{
	"History":           23,
	"Science":           17,
	"Sports":            21,
	"Entertainment":     11,
	"Arts & Literature": 10,
	"Geography":         22,
}

// OpenTDBProvider fetches multiple-choice questions from the Open Trivia
// Database HTTP API.
type OpenTDBProvider struct {
	baseURL    string
	client     *http.Client
	maxRetries int
}

func NewOpenTDBProvider() *OpenTDBProvider {
	return &OpenTDBProvider{
		baseURL:    openTDBBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Category         string   `json:"category"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

func (p *OpenTDBProvider) Generate(ctx context.Context, seed, category string) (*models.Question, error) {
	if category == "" {
		category = seedCategory(seed)
	}
	categoryID, ok := openTDBCategories[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	params := url.Values{}
	params.Set("amount", "1")
	params.Set("type", "multiple")
	params.Set("category", fmt.Sprintf("%d", categoryID))

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			wait := time.Duration(1<<attempt) * time.Second
			log.Printf("OpenTDB rate limited, waiting %s (attempt %d/%d)", wait, attempt+1, p.maxRetries)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			lastErr = errors.New("opentdb rate limited")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("opentdb returned status %d", resp.StatusCode)
			continue
		}

		var body openTDBResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if body.ResponseCode != 0 {
			lastErr = fmt.Errorf("opentdb error: %s (code %d)", openTDBError(body.ResponseCode), body.ResponseCode)
			continue
		}
		if len(body.Results) == 0 {
			lastErr = errors.New("opentdb returned empty results")
			continue
		}

		r := body.Results[0]
		options := make([]string, 0, len(r.IncorrectAnswers)+1)
		for _, a := range r.IncorrectAnswers {
			options = append(options, html.UnescapeString(a))
		}
		correct := html.UnescapeString(r.CorrectAnswer)
		options = append(options, correct)
		rand.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})

		return &models.Question{
			Question:      html.UnescapeString(r.Question),
			CorrectAnswer: correct,
			Category:      category,
			Options:       options,
		}, nil
	}

	return nil, fmt.Errorf("opentdb request failed after %d attempts: %w", p.maxRetries, lastErr)
}

func openTDBError(code int) string {
	switch code {
	case 1:
		return "no results for query"
	case 2:
		return "invalid parameter"
	case 3:
		return "token not found"
	case 4:
		return "token empty"
	case 5:
		return "rate limit exceeded"
	default:
		return "unknown error"
	}
}

// seedCategory derives a stable category from the seed so the same seed asks
// about the same subject area.
func seedCategory(seed string) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return Categories[int(h.Sum32())%len(Categories)]
}

// --- Static bank ---

// StaticProvider serves questions from a built-in bank, used as the fallback
// of last resort so a provider outage never silences scheduled games.
type StaticProvider struct{}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

var staticBank = []models.Question{
	{Question: "What is the capital of France?", CorrectAnswer: "Paris", Category: "Geography",
		Explanation: "Paris has been France's capital since the 10th century."},
	{Question: "In what year did World War I begin?", CorrectAnswer: "1914", Category: "History",
		Explanation: "The war began in July 1914 after the assassination of Archduke Franz Ferdinand."},
	{Question: "What planet is known as the Red Planet?", CorrectAnswer: "Mars", Category: "Science",
		Explanation: "Iron oxide on its surface gives Mars its reddish appearance."},
	{Question: "How many players are on a standard soccer team on the field?", CorrectAnswer: "11", Category: "Sports",
		Explanation: "Each side fields eleven players, including the goalkeeper."},
	{Question: "Who wrote the play Hamlet?", CorrectAnswer: "William Shakespeare", Category: "Arts & Literature",
		Explanation: "Hamlet was written by Shakespeare around 1600."},
	{Question: "Which river is the longest in Africa?", CorrectAnswer: "Nile", Category: "Geography",
		Explanation: "The Nile runs about 6,650 km through northeastern Africa."},
	{Question: "Who developed the theory of general relativity?", CorrectAnswer: "Albert Einstein", Category: "Science",
		Explanation: "Einstein published the theory in 1915."},
	{Question: "Which ancient city was buried by Mount Vesuvius in 79 AD?", CorrectAnswer: "Pompeii", Category: "History",
		Explanation: "The eruption preserved the city under volcanic ash."},
}

func (p *StaticProvider) Generate(_ context.Context, seed, category string) (*models.Question, error) {
	candidates := make([]models.Question, 0, len(staticBank))
	for _, q := range staticBank {
		if category == "" || q.Category == category {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no static questions for category %q", category)
	}

	h := fnv.New32a()
	h.Write([]byte(seed))
	q := candidates[int(h.Sum32())%len(candidates)]
	return &q, nil
}

// --- Fallback chain ---

// FallbackProvider tries providers in priority order and returns the first
// success.
type FallbackProvider struct {
	providers []QuestionProvider
}

func NewFallbackProvider(providers ...QuestionProvider) *FallbackProvider {
	return &FallbackProvider{providers: providers}
}

func (f *FallbackProvider) Generate(ctx context.Context, seed, category string) (*models.Question, error) {
	var lastErr error
	for _, p := range f.providers {
		q, err := p.Generate(ctx, seed, category)
		if err == nil {
			return q, nil
		}
		log.Printf("Question provider failed, trying next: %v", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no question providers configured")
	}
	return nil, lastErr
}
