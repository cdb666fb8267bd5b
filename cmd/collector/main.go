// Command collector captures one snapshot of the configured junctions and
// appends it to junction_data. It is meant to be run on a schedule.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"junctionflow/config"
	"junctionflow/extract"
	"junctionflow/feed"
	"junctionflow/services"
	"junctionflow/storage"
)

func main() {
	if err := run(); err != nil {
		log.Printf("collector failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	loc, err := extract.LoadLocation(cfg.Capture.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Capture.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Capture.RunTimeout)
		defer cancel()
	}

	fmt.Println("collector started")

	if cfg.Metrics.PushgatewayURL != "" {
		defer func() {
			if err := services.PushMetrics(context.Background(), cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName); err != nil {
				log.Printf("metrics push failed: %v", err)
			}
		}()
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	collector := services.NewCollector(feed.NewClient(cfg.Feed), store, cfg.Feed.Junctions, loc)

	if cfg.Redis.URL != "" {
		cache, err := services.NewCacheService(ctx, cfg.Redis)
		if err != nil {
			log.Printf("redis unavailable, skipping live publish: %v", err)
		} else {
			defer cache.Close()
			collector.Publishers = append(collector.Publishers,
				services.NewRedisPublisher(cache, cfg.Redis.Channel),
				services.NewCacheInvalidator(cache),
			)
		}
	}
	if cfg.MQTT.URL != "" {
		client, err := services.ConnectMQTT(cfg.MQTT)
		if err != nil {
			log.Printf("mqtt unavailable, skipping live publish: %v", err)
		} else {
			defer client.Disconnect(250)
			collector.Publishers = append(collector.Publishers, services.NewMQTTPublisher(client, cfg.MQTT.TopicPrefix))
		}
	}

	report, err := collector.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("captured %d of %d junctions at %s %s", report.Captured, len(cfg.Feed.Junctions), report.Stamp.Date, report.Stamp.Time)
	fmt.Println("data inserted successfully")
	return nil
}
