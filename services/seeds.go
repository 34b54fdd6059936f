package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"triviad/store"
)

// Categories in the Trivial Pursuit style; providers return one of these.
var Categories = []string{
	"History",
	"Science",
	"Sports",
	"Entertainment",
	"Arts & Literature",
	"Geography",
}

var baseWords = []string{
	"einstein", "shakespeare", "napoleon", "cleopatra", "davinci", "newton",
	"curie", "darwin", "galileo", "caesar", "alexander", "victoria",
	"pyramids", "colosseum", "eiffeltower", "tajmahal", "greatwall",
	"stonehenge", "acropolis", "louvre", "everest", "amazon", "sahara",
	"nile", "andes", "grandcanyon", "pacific", "mediterranean",
	"rome", "athens", "paris", "london", "tokyo", "istanbul", "venice",
	"telephone", "internet", "airplane", "penicillin", "telescope",
	"electricity", "vaccine", "photography", "democracy", "renaissance",
	"relativity", "gravity", "dna", "photosynthesis",
	"olympics", "worldcup", "marathon", "chess",
	"hamlet", "odyssey", "dracula", "sherlock", "gatsby",
	"blackhole", "galaxy", "volcano", "dinosaur", "fossil",
}

var seedModifiers = []string{
	"origin", "record", "first", "invention", "discovery", "famous",
	"hidden", "rivalry", "legacy", "myth", "number", "location",
}

// MaxUsedSeeds bounds the used-seed set; excess members are evicted in
// arbitrary order (best-effort bound, not an LRU).
const MaxUsedSeeds = 500

func randomSeed() string {
	base := baseWords[rand.Intn(len(baseWords))]
	mod := seedModifiers[rand.Intn(len(seedModifiers))]
	return fmt.Sprintf("%s_%s", base, mod)
}

// PickSeed returns a seed not yet consumed for the scope. Random probing is
// the fast path; if the pool is mostly used it enumerates the remainder, and
// if everything is used it recycles a random seed.
func PickSeed(ctx context.Context, s *store.GameStore, guildID string) (string, error) {
	for i := 0; i < 100; i++ {
		seed := randomSeed()
		used, err := s.IsSeedUsed(ctx, guildID, seed)
		if err != nil {
			return "", err
		}
		if !used {
			return seed, nil
		}
	}

	usedList, err := s.UsedSeeds(ctx, guildID)
	if err != nil {
		return "", err
	}
	used := make(map[string]bool, len(usedList))
	for _, seed := range usedList {
		used[seed] = true
	}

	var unused []string
	for _, base := range baseWords {
		for _, mod := range seedModifiers {
			seed := fmt.Sprintf("%s_%s", base, mod)
			if !used[seed] {
				unused = append(unused, seed)
			}
		}
	}
	if len(unused) == 0 {
		log.Printf("All trivia seeds exhausted for scope %s, recycling", guildID)
		return randomSeed(), nil
	}
	return unused[rand.Intn(len(unused))], nil
}
