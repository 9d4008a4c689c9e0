package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/highscore-api/internal/domain"
	"github.com/highscore-api/internal/kafka"
	"github.com/highscore-api/internal/service"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "highscore-submissions", "Kafka topic")
	project := flag.String("project", "Smuggling-Pirates", "Project the scores belong to")
	players := flag.Int("players", 200, "Number of distinct players")
	rate := flag.Int("rate", 50, "Submissions per second")
	duration := flag.Duration("duration", 0, "How long to run (0 = until interrupted)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *players < 1 || *rate < 1 {
		logger.Error("players and rate must be positive")
		os.Exit(1)
	}

	producer, err := kafka.NewProducer(strings.Split(*brokers, ","), *topic)
	if err != nil {
		logger.Error("failed to create producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	names := service.NewRandomNames()
	usernames := make([]string, *players)
	for i := range usernames {
		usernames[i] = fmt.Sprintf("%s-%d", names.Generate(), i)
	}

	logger.Info("producing scores",
		"brokers", *brokers,
		"topic", *topic,
		"project", *project,
		"players", *players,
		"rate", *rate,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()
	stats := time.NewTicker(5 * time.Second)
	defer stats.Stop()

	var sent, failed int
	for {
		select {
		case <-quit:
			logger.Info("interrupted", "sent", sent, "failed", failed)
			return

		case <-deadline:
			logger.Info("duration reached", "sent", sent, "failed", failed)
			return

		case <-stats.C:
			logger.Info("progress", "sent", sent, "failed", failed)

		case <-ticker.C:
			// the first tenth of players submits most often, so the top of the board moves
			idx := rand.Intn(*players)
			if rand.Intn(100) < 70 {
				idx = rand.Intn(max(*players/10, 1))
			}

			submission := domain.ScoreSubmission{
				Project:  *project,
				Username: usernames[idx],
				Score:    int64(rand.Intn(10000) + 1),
			}
			if err := producer.Publish(submission); err != nil {
				failed++
				logger.Warn("failed to publish score", "error", err)
				continue
			}
			sent++
		}
	}
}
