// Command seed fills the database with sample contents and ratings for
// exercising normalization: most users score normally across the first day,
// then a late surge of low scores arrives from a small crowd.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/Clark-Hu/content-rating/internal/repository"
	"github.com/Clark-Hu/content-rating/internal/store"
)

const (
	userCount    = 100
	contentCount = 5
	surgeUsers   = 20
)

func main() {
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags)

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		logger.Fatal("DB_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.New(ctx, dbURL, store.Options{MaxConns: 4, Logger: logger})
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	repo := repository.New(st)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	users := make([]string, userCount)
	for i := range users {
		users[i] = fmt.Sprintf("user%d", i+1)
		if err := repo.Users.Ensure(ctx, users[i]); err != nil {
			logger.Fatalf("create %s: %v", users[i], err)
		}
	}

	for i := 1; i <= contentCount; i++ {
		content, err := repo.Contents.Create(ctx, repository.ContentCreateParams{
			Title: fmt.Sprintf("Content %d", i),
			Body:  fmt.Sprintf("This is the content text for item %d.", i),
		})
		if err != nil {
			logger.Fatalf("create content %d: %v", i, err)
		}

		// Normal scores from the bulk of the crowd across the first 20 hours.
		for _, user := range users[:userCount-surgeUsers] {
			_, _, err := repo.Ratings.Submit(ctx, repository.SubmitParams{
				UserID:    user,
				ContentID: content.ID,
				Score:     3 + rnd.Intn(3),
				ScoredAt:  now.Add(-time.Duration(rnd.Intn(20)) * time.Hour),
			})
			if err != nil {
				logger.Fatalf("submit normal score for %s: %v", user, err)
			}
		}

		// A late surge of low scores from the remaining users.
		for _, user := range users[userCount-surgeUsers:] {
			_, _, err := repo.Ratings.Submit(ctx, repository.SubmitParams{
				UserID:    user,
				ContentID: content.ID,
				Score:     rnd.Intn(2),
				ScoredAt:  now.Add(-time.Duration(20+rnd.Intn(4)) * time.Hour),
			})
			if err != nil {
				logger.Fatalf("submit surge score for %s: %v", user, err)
			}
		}

		logger.Printf("seeded %s with %d ratings", content.Title, userCount)
	}

	logger.Println("seed complete")
}
