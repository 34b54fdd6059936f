package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler wires the poster and closer onto independent timers. Every
// replica runs both; the shared store is the only coordination between them.
func StartScheduler(poster *Poster, closer *Closer, posterEvery, closerEvery time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(closerEvery),
		gocron.NewTask(func() {
			closer.RunOnce(context.Background())
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(posterEvery),
		gocron.NewTask(func() {
			poster.RunOnce(context.Background())
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("Scheduler started (poster every %s, closer every %s)", posterEvery, closerEvery)
	return sched, nil
}
