// Package anonymize publishes cast vote records so that no output row can be
// traced to fewer than a minimum number of physical ballots.
//
// Ballots are grouped into styles by the set of contests they carry. Styles
// with fewer ballots than the threshold are merged into synthetic aggregate
// rows, which borrow ballots from common styles until they are large enough,
// cover each of their contests and show no near-unanimous contest. Vote
// totals are verified against the input before anything is returned.
package anonymize

import (
	"fmt"
	"slices"
	"time"

	"cvranon/internal/config"
	"cvranon/internal/cvr"
	"cvranon/internal/logging"

	"go.uber.org/zap"
)

const slowRun = 30 * time.Second

// Options drive a single run.
type Options struct {
	MinBallots        int
	StyleColumn       int
	HeaderLength      int
	StylePrefixLength int
	Policy            string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Anonymize)
}

// OptionsFromConfig maps the anonymize config section onto run options.
func OptionsFromConfig(c config.AnonymizeConfig) Options {
	return Options{
		MinBallots:        c.MinBallots,
		StyleColumn:       c.StyleColumn,
		HeaderLength:      c.HeaderLength,
		StylePrefixLength: c.StylePrefixLength,
		Policy:            c.Policy,
	}
}

func (o Options) validate() error {
	switch {
	case o.MinBallots <= 0:
		return fmt.Errorf("%w: minimum ballots must be positive, got %d", ErrInvalidConfig, o.MinBallots)
	case o.HeaderLength <= 0:
		return fmt.Errorf("%w: header length must be positive, got %d", ErrInvalidConfig, o.HeaderLength)
	case o.StyleColumn < 0 || o.StyleColumn >= o.HeaderLength:
		return fmt.Errorf("%w: style column %d is outside the %d identifying columns", ErrInvalidConfig, o.StyleColumn, o.HeaderLength)
	case o.StylePrefixLength < 0:
		return fmt.Errorf("%w: style prefix length must not be negative, got %d", ErrInvalidConfig, o.StylePrefixLength)
	case !slices.Contains(config.ValidPolicies, o.Policy):
		return fmt.Errorf("%w: unknown aggregation policy %q (valid: %v)", ErrInvalidConfig, o.Policy, config.ValidPolicies)
	}
	return nil
}

// Result is the outcome of a successful run.
type Result struct {
	Table  *cvr.Table
	Report *Report
}

// Run anonymizes t. The input table is not modified. On error no partial
// result is returned; every error wraps one of the package sentinels.
func Run(t *cvr.Table, opts Options) (*Result, error) {
	log := logging.Get(logging.CategoryPlanner)
	timer := logging.StartTimer(logging.CategoryPlanner, "run")
	defer timer.StopWithThreshold(slowRun)

	s, err := prepare(t, opts)
	if err != nil {
		return nil, err
	}
	want := s.arena.tally()

	rare, common := splitRarity(s.buckets)
	p := newPlanner(s.arena, common, opts.MinBallots)
	if opts.Policy == config.PolicySimilarity {
		p.seedSimilarity(rare)
	} else {
		p.seedSingle(rare)
	}
	if err := p.fillTotal(); err != nil {
		return nil, err
	}
	passes := p.settle()

	for _, agg := range p.aggs {
		for _, w := range p.underCovered(agg) {
			s.report.warn(w)
		}
	}
	for _, agg := range p.aggs {
		for _, w := range p.unbalanced(agg) {
			s.report.warn(w)
		}
	}

	remaining := p.pool.remaining()
	if err := verifyConservation(s.arena, remaining, p.aggs); err != nil {
		return nil, err
	}
	out := assemble(t, s.arena, remaining, p.aggs)
	if err := verifyTallies(s.arena.layout, want, out); err != nil {
		return nil, err
	}

	r := s.report
	r.BorrowedBallots = p.pool.borrowed
	for _, b := range p.pool.absorbed {
		r.AbsorbedStyles = append(r.AbsorbedStyles, b.Label)
	}
	r.Passes = passes
	r.OutputRows = len(out.Rows)
	for i, b := range s.buckets {
		r.StyleTable[i].Remaining = b.Count()
	}
	r.Aggregates = make([]AggregateInfo, len(p.aggs))
	for i, agg := range p.aggs {
		r.Aggregates[i] = agg.info()
	}

	log.Info("anonymized ballots",
		zap.Int("ballots", r.TotalBallots),
		zap.Int("rare_ballots", r.RareBallots),
		zap.Int("aggregates", len(p.aggs)),
		zap.Int("borrowed", r.BorrowedBallots),
		zap.Int("passes", passes),
		zap.Int("warnings", len(r.Warnings)))
	return &Result{Table: out, Report: r}, nil
}

// Describe classifies t and audits its style labels without aggregating.
func Describe(t *cvr.Table, opts Options) (*Report, error) {
	s, err := prepare(t, opts)
	if err != nil {
		return nil, err
	}
	for i, b := range s.buckets {
		s.report.StyleTable[i].Remaining = b.Count()
	}
	return s.report, nil
}

type session struct {
	arena   *arena
	buckets []*Bucket
	report  *Report
}

// prepare validates options, maps the layout, parses every ballot, classifies
// styles and records leakage warnings.
func prepare(t *cvr.Table, opts Options) (*session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	layout, err := cvr.NewLayout(t, opts.HeaderLength)
	if err != nil {
		return nil, err
	}
	a, err := newArena(t, layout, opts)
	if err != nil {
		return nil, err
	}
	buckets, err := classify(a, opts.MinBallots)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Threshold:    opts.MinBallots,
		Policy:       opts.Policy,
		TotalBallots: a.len(),
		Styles:       len(buckets),
		StyleTable:   make([]StyleInfo, len(buckets)),
		Aggregates:   []AggregateInfo{},
		Warnings:     []Warning{},
	}
	for i, b := range buckets {
		r.StyleTable[i] = StyleInfo{
			Label:     b.Label,
			Declared:  b.Declared,
			Signature: b.Sig.Key(),
			Contests:  b.Sig.Contests(),
			Ballots:   b.Initial,
			Rare:      b.Rare,
		}
		if b.Rare {
			r.RareStyles++
			r.RareBallots += b.Initial
		} else {
			r.CommonStyles++
		}
	}

	leaks := AuditStyleNames(stylePairs(buckets))
	log := logging.Get(logging.CategoryClassify)
	for _, w := range leaks {
		log.Warn("style leakage", zap.String("detail", w.Message))
		r.warn(w)
	}
	return &session{arena: a, buckets: buckets, report: r}, nil
}
