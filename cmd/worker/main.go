package main

import (
	"flag"
	"log"
	"time"

	"gifable/internal/pkg/logger"
	"gifable/internal/platform/config"
	"gifable/internal/platform/database"
	"gifable/internal/platform/repositories"
	"gifable/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	viewRepo := repositories.NewMediaViewRepository(db)
	analytics := workers.NewAnalytics(viewRepo, cfg.Analytics.RetentionDays)

	log.Println("Starting Gifable background workers...")

	go runDailyAggregationWorker(analytics)
	go runPurgeWorker(analytics)

	// Keep process alive
	select {}
}

func runDailyAggregationWorker(analytics *workers.Analytics) {
	// Run at 01:00 UTC daily, aggregating the previous day.
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 1, 0, 0, 0, time.UTC)
		duration := next.Sub(now)
		if duration < 0 {
			duration = time.Minute
		}

		log.Printf("Daily aggregation worker sleeping for %v", duration)
		time.Sleep(duration)

		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		if err := analytics.AggregateDay(yesterday); err != nil {
			log.Printf("Error aggregating daily stats: %v", err)
		}
	}
}

func runPurgeWorker(analytics *workers.Analytics) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := analytics.Purge(); err != nil {
			log.Printf("Error purging old views: %v", err)
		}
	}
}
