package numerator

import (
	"context"
	"fmt"
	"time"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict takes every number from the database inside the
	// caller's transaction: no gaps. Used for deliveries, transfers and POs.
	StrategyStrict Strategy = iota

	// StrategyCached hands out numbers from a reserved in-memory range.
	// A restart leaves gaps. Used for issues, PRFs, NCRs and stock takes.
	StrategyCached
)

// Options tunes a strategy.
type Options struct {
	Strategy Strategy
	// RangeSize is how many numbers StrategyCached reserves at once (default 50)
	RangeSize int64
}

// DefaultOptions returns strict numbering.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Reset is the window after which a counter starts again from 1.
type Reset string

const (
	ResetYearly  Reset = "year"
	ResetMonthly Reset = "month"
	ResetNever   Reset = "never"
)

// Config describes how numbers of one document kind look.
type Config struct {
	Prefix      string
	IncludeYear bool
	PadWidth    int // default 5
	Reset       Reset
}

// DefaultConfig yields PREFIX-YYYY-NNNNN numbers restarting every year.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		Reset:       ResetYearly,
	}
}

// Key is the counter a document dated at draws from.
func (c Config) Key(at time.Time) string {
	switch c.Reset {
	case ResetMonthly:
		return c.Prefix + "_" + at.Format("2006_01")
	case ResetYearly:
		return c.Prefix + "_" + at.Format("2006")
	default:
		return c.Prefix
	}
}

// Format renders counter value n for a document dated at.
func (c Config) Format(at time.Time, n int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = 5
	}
	if c.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", c.Prefix, at.Format("2006"), width, n)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, width, n)
}

// Sequence binds a document kind to its format and strategy.
type Sequence struct {
	Config  Config
	Options Options
}

// NewSequence returns the default format for prefix numbered with strategy.
func NewSequence(prefix string, strategy Strategy) Sequence {
	return Sequence{Config: DefaultConfig(prefix), Options: Options{Strategy: strategy}}
}

// Next draws the number of a document dated at from g.
func (s Sequence) Next(ctx context.Context, g Generator, at time.Time) (string, error) {
	opts := s.Options
	number, err := g.GetNextNumber(ctx, s.Config, &opts, at)
	if err != nil {
		return "", fmt.Errorf("generate %s number: %w", s.Config.Prefix, err)
	}
	return number, nil
}
