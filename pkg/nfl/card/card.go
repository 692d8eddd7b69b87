// Package card builds a weekly betting card: a batch of matchups run
// through the full pipeline concurrently, with per-game failure isolation.
package card

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/spreadline/gridiron/pkg/logging"
	"github.com/spreadline/gridiron/pkg/metrics"
	"github.com/spreadline/gridiron/pkg/nfl/epa"
	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/kicker"
	"github.com/spreadline/gridiron/pkg/nfl/pbp"
	"github.com/spreadline/gridiron/pkg/nfl/predict"
	"github.com/spreadline/gridiron/pkg/nfl/signal"
)

// Request is one matchup to evaluate.
type Request struct {
	Context *game.MatchupContext
	Line    *game.MarketLine
}

// Entry is one matchup's outcome. Either both results are set, or Err
// explains why this game failed without touching the rest of the card.
type Entry struct {
	Matchup        string                 `json:"matchup"`
	Prediction     *predict.Result        `json:"prediction,omitempty"`
	Recommendation *signal.Recommendation `json:"recommendation,omitempty"`
	Err            error                  `json:"-"`
	ErrMessage     string                 `json:"error,omitempty"`
}

// Card is one batch run, sorted by descending edge with failures last.
type Card struct {
	Season   int             `json:"season"`
	Week     int             `json:"week"`
	BuiltAt  time.Time       `json:"built_at"`
	Bankroll decimal.Decimal `json:"bankroll"`
	Entries  []Entry         `json:"entries"`
}

// Plays returns the entries with an actionable (non NO PLAY) signal.
func (c *Card) Plays() []Entry {
	var out []Entry
	for _, e := range c.Entries {
		if e.Recommendation != nil && e.Recommendation.Tier != signal.TierNoPlay {
			out = append(out, e)
		}
	}
	return out
}

// Builder wires the pipeline stages together for batch runs.
type Builder struct {
	aggregator *epa.Aggregator
	kickers    *kicker.Analyzer
	engine     *predict.Engine
	generator  *signal.Generator
	metrics    *metrics.PipelineMetrics
	log        *logrus.Logger
}

// NewBuilder creates a card builder. Nil stages fall back to defaults; a
// nil metrics collector disables recording.
func NewBuilder(agg *epa.Aggregator, kck *kicker.Analyzer, eng *predict.Engine, gen *signal.Generator, pm *metrics.PipelineMetrics) *Builder {
	if agg == nil {
		agg = epa.NewAggregator(nil)
	}
	if kck == nil {
		kck = kicker.NewAnalyzer(nil)
	}
	if eng == nil {
		eng = predict.NewEngine(nil, nil)
	}
	if gen == nil {
		gen = signal.NewGenerator(nil)
	}
	return &Builder{
		aggregator: agg,
		kickers:    kck,
		engine:     eng,
		generator:  gen,
		metrics:    pm,
		log:        logging.Get(),
	}
}

// Build runs every matchup through the pipeline. Matchups are independent
// and evaluated in parallel; one failure never aborts the batch.
func (b *Builder) Build(ds *pbp.Dataset, week int, reqs []Request, bankroll decimal.Decimal) *Card {
	start := time.Now()

	c := &Card{
		Week:     week,
		BuiltAt:  start.UTC(),
		Bankroll: bankroll,
		Entries:  make([]Entry, len(reqs)),
	}
	if ds != nil {
		c.Season = ds.Season
	}

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Entries[i] = b.run(ds, &reqs[i], bankroll)
		}(i)
	}
	wg.Wait()

	sort.SliceStable(c.Entries, func(i, j int) bool {
		a, z := c.Entries[i].Recommendation, c.Entries[j].Recommendation
		if a == nil || z == nil {
			return a != nil
		}
		return a.EdgePoints > z.EdgePoints
	})

	failed := 0
	for _, e := range c.Entries {
		if e.Err != nil {
			failed++
		}
	}
	status := "ok"
	if failed > 0 {
		status = "partial"
	}
	if b.metrics != nil {
		b.metrics.CardRuns.WithLabelValues(status).Inc()
		b.metrics.CardDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	}
	b.log.WithFields(logrus.Fields{
		"matchups": len(reqs),
		"failed":   failed,
		"elapsed":  time.Since(start),
	}).Info("Betting card built")

	return c
}

func (b *Builder) run(ds *pbp.Dataset, req *Request, bankroll decimal.Decimal) Entry {
	cc := *req.Context // keep the caller's context untouched
	ctx := &cc
	e := Entry{Matchup: ctx.Matchup()}

	if err := ctx.Validate(); err != nil {
		return b.fail(e, "context", err)
	}

	home := b.aggregator.Profile(ds, ctx.HomeTeam)
	away := b.aggregator.Profile(ds, ctx.AwayTeam)
	if b.metrics != nil {
		if home.InsufficientData {
			b.metrics.SentinelProfile.WithLabelValues(ctx.HomeTeam).Inc()
		}
		if away.InsufficientData {
			b.metrics.SentinelProfile.WithLabelValues(ctx.AwayTeam).Inc()
		}
	}

	if ctx.KickerEdge == 0 && ds != nil {
		homeKick := b.kickers.Rate(ds, ctx.HomeTeam)
		awayKick := b.kickers.Rate(ds, ctx.AwayTeam)
		ctx.KickerEdge = b.kickers.Differential(homeKick, awayKick, ctx.Weather, ctx.Playoff)
	}

	predStart := time.Now()
	pred, err := b.engine.Predict(home, away, ctx)
	if err != nil {
		return b.fail(e, "predict", err)
	}
	e.Prediction = pred
	if b.metrics != nil {
		b.metrics.PredictionLatency.WithLabelValues().Observe(time.Since(predStart).Seconds())
		b.metrics.RecordPrediction(string(pred.Confidence), pred.Margin)
	}

	rec, err := b.generator.Generate(pred, req.Line, bankroll)
	if err != nil {
		return b.fail(e, "signal", err)
	}
	e.Recommendation = rec
	if b.metrics != nil {
		b.metrics.RecordRecommendation(string(rec.Tier), rec.Side, rec.EdgePoints, rec.StakeFraction, rec.Stake)
	}

	return e
}

func (b *Builder) fail(e Entry, stage string, err error) Entry {
	e.Err = err
	e.ErrMessage = err.Error()
	if b.metrics != nil {
		b.metrics.RecordError(stage)
	}
	b.log.WithFields(logrus.Fields{
		"matchup": e.Matchup,
		"stage":   stage,
	}).WithError(err).Warn("Matchup failed, continuing batch")
	return e
}
