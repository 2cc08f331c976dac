// Package collector accumulates unique leads for a run, checkpoints progress and
// writes the definitive output file.
package collector

import (
	"context"
	"errors"
	"fmt"

	"supplier_leads_scraper/internal/dedup"
	"supplier_leads_scraper/internal/lead"
	"supplier_leads_scraper/internal/logger"
	"supplier_leads_scraper/internal/output"
)

// Mirror receives the finalized leads of a run.
type Mirror interface {
	Record(ctx context.Context, runID string, records []lead.Record) (int, error)
}

// Options configures a Collector.
type Options struct {
	// Path is the definitive output file. Its extension selects the format.
	Path     string
	MaxLeads int
	// CheckpointEvery writes a progress file whenever the lead count is a
	// positive multiple of it. 0 disables checkpoints.
	CheckpointEvery int
	// Index holds the keys to skip. New leads are added to it.
	Index  *dedup.Index
	Mirror Mirror
	RunID  string
	Logger logger.Logger
}

// Collector is the ordered, capped, append-only lead list of one run.
type Collector struct {
	opts      Options
	idx       *dedup.Index
	log       logger.Logger
	leads     []lead.Record
	skipped   int
	finalized bool
}

// New validates opts and returns an empty collector.
func New(opts Options) (*Collector, error) {
	if opts.Path == "" {
		return nil, errors.New("collector: output path is required")
	}
	if opts.MaxLeads <= 0 {
		return nil, fmt.Errorf("collector: max leads must be positive, got %d", opts.MaxLeads)
	}
	if opts.CheckpointEvery < 0 {
		return nil, fmt.Errorf("collector: checkpoint interval must not be negative, got %d", opts.CheckpointEvery)
	}
	if opts.Index == nil {
		opts.Index = dedup.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	return &Collector{
		opts:  opts,
		idx:   opts.Index,
		log:   opts.Logger,
		leads: make([]lead.Record, 0, min(opts.MaxLeads, 256)),
	}, nil
}

// Offer appends the records whose keys are not yet known, in order, stopping as
// soon as the cap is reached. It returns how many were added and whether the
// collector is full.
func (c *Collector) Offer(records []lead.Record) (int, bool) {
	added := 0
	for _, r := range records {
		if c.Full() {
			c.log.Info("Reached maximum leads limit", logger.Int("max_leads", c.opts.MaxLeads))
			break
		}
		if !c.idx.Add(r.Key()) {
			c.skipped++
			c.log.Debug("Skipping duplicate",
				logger.String("company", r.Company),
				logger.String("phone", r.BusinessPhone))
			continue
		}
		c.leads = append(c.leads, r)
		added++
		c.log.Info("Added lead",
			logger.String("company", r.Company),
			logger.String("phone", r.BusinessPhone))
	}
	return added, c.Full()
}

// Full reports whether the cap is reached.
func (c *Collector) Full() bool {
	return len(c.leads) >= c.opts.MaxLeads
}

// Len is the number of collected leads.
func (c *Collector) Len() int {
	return len(c.leads)
}

// Skipped is the number of offered records rejected as duplicates.
func (c *Collector) Skipped() int {
	return c.skipped
}

// Leads returns a copy of the collected leads.
func (c *Collector) Leads() []lead.Record {
	out := make([]lead.Record, len(c.leads))
	copy(out, c.leads)
	return out
}

// Path is the definitive output file.
func (c *Collector) Path() string {
	return c.opts.Path
}

// Checkpoint writes a progress file for page when the lead count is a positive
// multiple of the checkpoint interval. It returns the written path, or "".
func (c *Collector) Checkpoint(page int) (string, error) {
	every := c.opts.CheckpointEvery
	if every == 0 || len(c.leads) == 0 || len(c.leads)%every != 0 {
		return "", nil
	}

	path := output.CheckpointPath(c.opts.Path, page)
	if err := output.Write(path, c.leads); err != nil {
		return "", fmt.Errorf("checkpoint page %d: %w", page, err)
	}
	c.log.Info("Progress saved",
		logger.Int("page", page),
		logger.Int("leads", len(c.leads)),
		logger.String("path", path))
	return path, nil
}

// Finalize writes every collected lead to the output file, a header-only file
// when there are none, and mirrors them to the ledger. Repeated calls are no-ops.
// A ledger failure is logged; the output file stays the result of record.
func (c *Collector) Finalize(ctx context.Context) (string, error) {
	if c.finalized {
		return c.opts.Path, nil
	}

	if err := output.Write(c.opts.Path, c.leads); err != nil {
		return "", fmt.Errorf("finalize: %w", err)
	}
	c.finalized = true
	c.log.Info("Saved leads",
		logger.Int("leads", len(c.leads)),
		logger.String("path", c.opts.Path))

	if c.opts.Mirror != nil && len(c.leads) > 0 {
		n, err := c.opts.Mirror.Record(context.WithoutCancel(ctx), c.opts.RunID, c.leads)
		if err != nil {
			c.log.Warn("Ledger update failed", logger.Error(err))
		} else {
			c.log.Debug("Ledger updated", logger.Int("inserted", n))
		}
	}
	return c.opts.Path, nil
}
