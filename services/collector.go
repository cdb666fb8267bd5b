// Package services holds the collector run and the supporting services the
// commands share: live publishers, the redis cache and summary statistics.
package services

import (
	"context"
	"log"
	"time"

	"junctionflow/extract"
	"junctionflow/feed"
	"junctionflow/models"
)

type Fetcher interface {
	Fetch(ctx context.Context) (feed.Response, error)
}

type Sink interface {
	Append(ctx context.Context, records []models.JunctionRecord) error
}

// Publisher forwards a stored batch to a live channel. Publish failures are
// logged and counted but never fail a run.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, records []models.JunctionRecord) error
}

// Collector performs one fetch, extract, annotate and store pass per Run.
type Collector struct {
	Fetcher    Fetcher
	Sink       Sink
	Junctions  []string
	Location   *time.Location
	Publishers []Publisher
	Logger     *log.Logger
	Now        func() time.Time
}

func NewCollector(fetcher Fetcher, sink Sink, junctions []string, loc *time.Location) *Collector {
	return &Collector{
		Fetcher:   fetcher,
		Sink:      sink,
		Junctions: junctions,
		Location:  loc,
		Logger:    log.Default(),
		Now:       time.Now,
	}
}

// RunReport summarises a completed run.
type RunReport struct {
	Stamp    extract.Stamp
	Captured int
	Skipped  []*extract.MissingJunctionError
}

// Run fetches the feed once and appends every extractable catalog junction.
// Network, parse and storage errors abort the run and are returned unchanged;
// missing junctions are logged and skipped.
func (c *Collector) Run(ctx context.Context) (RunReport, error) {
	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()
	runsTotal.Inc()

	fetchStart := time.Now()
	resp, err := c.Fetcher.Fetch(ctx)
	fetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		runFailures.WithLabelValues("fetch").Inc()
		return RunReport{}, err
	}

	results := extract.Extract(c.Junctions, resp)
	records := extract.Records(results, c.logger())
	skipped := extract.Skipped(results)
	for _, s := range skipped {
		junctionsSkipped.WithLabelValues(string(s.Reason)).Inc()
	}

	instant := c.now()
	report := RunReport{
		Stamp:    extract.StampAt(instant, c.Location),
		Captured: len(records),
		Skipped:  skipped,
	}
	records = extract.Annotate(records, instant, c.Location)

	if err := c.Sink.Append(ctx, records); err != nil {
		runFailures.WithLabelValues("store").Inc()
		return report, err
	}
	junctionsCaptured.Add(float64(len(records)))
	rowsStored.Add(float64(len(records)))

	if len(records) > 0 {
		c.publish(ctx, records)
	}
	return report, nil
}

func (c *Collector) publish(ctx context.Context, records []models.JunctionRecord) {
	for _, p := range c.Publishers {
		if err := p.Publish(ctx, records); err != nil {
			publishFailures.WithLabelValues(p.Name()).Inc()
			c.logger().Printf("%s publish failed: %v", p.Name(), err)
		}
	}
}

func (c *Collector) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}

func (c *Collector) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
