package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/psds-microservice/apihub-support/internal/errs"
	"github.com/psds-microservice/apihub-support/internal/metrics"
	"github.com/psds-microservice/apihub-support/internal/model"
	"github.com/psds-microservice/apihub-support/internal/store"
)

// WindowDays is how far back every chart looks, today included.
const WindowDays = 30

const (
	QuotaExceeded = "exceeded"
	QuotaLow      = "low"
	QuotaOK       = "ok"

	ProgressReached     = "reached"
	ProgressApproaching = "approaching"
	ProgressOK          = "ok"
)

type DailyPoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

type SeriesPoint struct {
	Date  time.Time `json:"date"`
	API   string    `json:"api"`
	Count int       `json:"count"`
}

type APISummary struct {
	API         string  `json:"api"`
	Calls       int     `json:"calls"`
	Cost        float64 `json:"cost"`
	SuccessRate float64 `json:"success_rate"`
}

type Overview struct {
	APIs      []APISummary  `json:"apis"`
	Daily     []SeriesPoint `json:"daily"`
	Synthetic bool          `json:"synthetic"`
}

type Usage struct {
	API        string       `json:"api"`
	TotalCalls int          `json:"total_calls"`
	Daily      []DailyPoint `json:"daily"`
	Synthetic  bool         `json:"synthetic"`
}

type QuotaPoint struct {
	Date  time.Time `json:"date"`
	Usage int       `json:"usage"`
	Quota int       `json:"quota"`
}

type Quota struct {
	API          string       `json:"api"`
	QuotaDaily   int          `json:"quota_daily"`
	CostPerCall  float64      `json:"cost_per_call"`
	CurrentUsage int          `json:"current_usage"`
	Remaining    int          `json:"remaining"`
	Status       string       `json:"status"`
	Trend        []QuotaPoint `json:"trend"`
}

type RatePoint struct {
	Date      time.Time `json:"date"`
	RateLimit int       `json:"rate_limit"`
}

type RateLimit struct {
	API                string      `json:"api"`
	RateLimitPerSecond int         `json:"rate_limit_per_second"`
	Trend              []RatePoint `json:"trend"`
}

type Progress struct {
	API       string  `json:"api"`
	Usage     int     `json:"usage"`
	Quota     int     `json:"quota"`
	Percent   float64 `json:"percent"`
	Status    string  `json:"status"`
	Simulated bool    `json:"simulated"`
}

// Stats is the short summary shown by the chat "api stats" command.
type Stats struct {
	Total24h  int          `json:"total_24h"`
	Daily     []DailyPoint `json:"daily"`
	Synthetic bool         `json:"synthetic"`
}

// Aggregator derives dashboard views from the usage log.
type Aggregator struct {
	usage   store.UsageStore
	catalog Catalog
	ttl     time.Duration
	demo    *demoSource
	now     func() time.Time

	mu       sync.Mutex
	cached   []model.UsageLog
	cachedAt time.Time
}

func NewAggregator(usage store.UsageStore, catalog Catalog, cacheTTL time.Duration) *Aggregator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Aggregator{
		usage:   usage,
		catalog: catalog,
		ttl:     cacheTTL,
		demo:    newDemoSource(uint64(time.Now().UnixNano())),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (a *Aggregator) Catalog() Catalog { return a.catalog }

// Record stores one usage log entry and drops the cached window.
func (a *Aggregator) Record(ctx context.Context, l *model.UsageLog) error {
	if err := a.usage.Record(ctx, l); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	metrics.UsageLogsRecordedTotal.WithLabelValues(a.metricLabel(l.API)).Inc()
	a.mu.Lock()
	a.cached = nil
	a.cachedAt = time.Time{}
	a.mu.Unlock()
	return nil
}

// metricLabel keeps the api label to catalog names; the api field is client supplied.
func (a *Aggregator) metricLabel(api string) string {
	if _, ok := a.catalog[api]; ok {
		return api
	}
	return metrics.OtherAPI
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// days returns the n UTC midnights ending today.
func days(now time.Time, n int) []time.Time {
	end := startOfDay(now)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = end.AddDate(0, 0, i-(n-1))
	}
	return out
}

func (a *Aggregator) logs(ctx context.Context) ([]model.UsageLog, error) {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cachedAt.IsZero() || a.ttl <= 0 || now.Sub(a.cachedAt) >= a.ttl {
		since := days(now, WindowDays)[0]
		logs, err := a.usage.Since(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("load usage logs: %w", err)
		}
		a.cached = logs
		a.cachedAt = now
		log.Debug().Int("logs", len(logs)).Msg("dashboard: usage window reloaded")
	}
	return a.cached, nil
}

func (a *Aggregator) config(api string) (APIConfig, error) {
	cfg, ok := a.catalog[api]
	if !ok {
		return APIConfig{}, fmt.Errorf("%w: %q", errs.ErrUnknownAPI, api)
	}
	return cfg, nil
}

// dailyCounts zero-fills counts of the logs matching api ("" for all) over the given days.
func dailyCounts(logs []model.UsageLog, api string, dates []time.Time) []DailyPoint {
	byDay := make(map[time.Time]int, len(dates))
	for _, l := range logs {
		if api != "" && l.API != api {
			continue
		}
		byDay[startOfDay(l.Timestamp.UTC())]++
	}
	out := make([]DailyPoint, len(dates))
	for i, d := range dates {
		out[i] = DailyPoint{Date: d, Count: byDay[d]}
	}
	return out
}

func countAPI(logs []model.UsageLog, api string, since time.Time) int {
	n := 0
	for _, l := range logs {
		if l.API == api && !l.Timestamp.Before(since) {
			n++
		}
	}
	return n
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (a *Aggregator) Overview(ctx context.Context) (*Overview, error) {
	logs, err := a.logs(ctx)
	if err != nil {
		return nil, err
	}
	dates := days(a.now(), WindowDays)
	if len(logs) == 0 {
		return a.syntheticOverview(dates), nil
	}

	type acc struct{ calls, ok int }
	per := make(map[string]*acc)
	for _, l := range logs {
		c := per[l.API]
		if c == nil {
			c = &acc{}
			per[l.API] = c
		}
		c.calls++
		if l.StatusCode < 400 {
			c.ok++
		}
	}
	out := &Overview{}
	for api, c := range per {
		out.APIs = append(out.APIs, APISummary{
			API:         api,
			Calls:       c.calls,
			Cost:        round(float64(c.calls)*a.catalog[api].CostPerCall, 3),
			SuccessRate: round(float64(c.ok)/float64(c.calls), 4),
		})
	}
	sort.Slice(out.APIs, func(i, j int) bool {
		if out.APIs[i].Calls == out.APIs[j].Calls {
			return out.APIs[i].API < out.APIs[j].API
		}
		return out.APIs[i].Calls > out.APIs[j].Calls
	})
	for _, s := range out.APIs {
		for _, p := range dailyCounts(logs, s.API, dates) {
			out.Daily = append(out.Daily, SeriesPoint{Date: p.Date, API: s.API, Count: p.Count})
		}
	}
	return out, nil
}

func (a *Aggregator) syntheticOverview(dates []time.Time) *Overview {
	out := &Overview{Synthetic: true}
	for _, api := range a.catalog.Names() {
		cfg := a.catalog[api]
		out.APIs = append(out.APIs, APISummary{
			API:         api,
			Calls:       500 + a.demo.intN(4500),
			Cost:        round(a.demo.float()*10, 2),
			SuccessRate: 1,
		})
		for i, n := range a.demo.trend(cfg, len(dates), 4) {
			out.Daily = append(out.Daily, SeriesPoint{Date: dates[i], API: api, Count: n})
		}
	}
	return out
}

func (a *Aggregator) Usage(ctx context.Context, api string) (*Usage, error) {
	cfg, err := a.config(api)
	if err != nil {
		return nil, err
	}
	logs, err := a.logs(ctx)
	if err != nil {
		return nil, err
	}
	return a.usageFor(api, cfg, logs), nil
}

func (a *Aggregator) usageFor(api string, cfg APIConfig, logs []model.UsageLog) *Usage {
	dates := days(a.now(), WindowDays)
	out := &Usage{API: api}
	actual := countAPI(logs, api, dates[0])
	if actual > 0 {
		out.Daily = dailyCounts(logs, api, dates)
	} else {
		out.Synthetic = true
		for i, n := range a.demo.trend(cfg, len(dates), 5) {
			out.Daily = append(out.Daily, DailyPoint{Date: dates[i], Count: n})
		}
	}
	// With any logs at all the headline stays factual, even when this API's chart is synthetic.
	if len(logs) > 0 {
		out.TotalCalls = actual
	} else {
		for _, p := range out.Daily {
			out.TotalCalls += p.Count
		}
	}
	return out
}

// QuotaStatus classifies the remaining daily quota.
func QuotaStatus(remaining, quota int) string {
	switch {
	case remaining <= 0:
		return QuotaExceeded
	case float64(remaining) < float64(quota)*0.2:
		return QuotaLow
	default:
		return QuotaOK
	}
}

func (a *Aggregator) Quota(ctx context.Context, api string) (*Quota, error) {
	cfg, err := a.config(api)
	if err != nil {
		return nil, err
	}
	if cfg.QuotaDaily <= 0 {
		return nil, errs.ErrQuotaNotConfigured
	}
	logs, err := a.logs(ctx)
	if err != nil {
		return nil, err
	}
	current := countAPI(logs, api, startOfDay(a.now()))
	remaining := cfg.QuotaDaily - current
	out := &Quota{
		API:          api,
		QuotaDaily:   cfg.QuotaDaily,
		CostPerCall:  cfg.CostPerCall,
		CurrentUsage: current,
		Remaining:    remaining,
		Status:       QuotaStatus(remaining, cfg.QuotaDaily),
	}
	for _, p := range a.usageFor(api, cfg, logs).Daily {
		out.Trend = append(out.Trend, QuotaPoint{Date: p.Date, Usage: p.Count, Quota: cfg.QuotaDaily})
	}
	return out, nil
}

func (a *Aggregator) RateLimit(_ context.Context, api string) (*RateLimit, error) {
	cfg, err := a.config(api)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitPerSecond <= 0 {
		return nil, errs.ErrRateLimitNotDefined
	}
	out := &RateLimit{API: api, RateLimitPerSecond: cfg.RateLimitPerSecond}
	for _, d := range days(a.now(), WindowDays) {
		out.Trend = append(out.Trend, RatePoint{Date: d, RateLimit: cfg.RateLimitPerSecond})
	}
	return out, nil
}

// ProgressStatus classifies today's usage as a percentage of the quota.
func ProgressStatus(percent float64) string {
	switch {
	case percent >= 100:
		return ProgressReached
	case percent >= 80:
		return ProgressApproaching
	default:
		return ProgressOK
	}
}

func (a *Aggregator) Progress(ctx context.Context, api string) (*Progress, error) {
	cfg, err := a.config(api)
	if err != nil {
		return nil, err
	}
	if cfg.QuotaDaily <= 0 {
		return nil, errs.ErrQuotaNotConfigured
	}
	logs, err := a.logs(ctx)
	if err != nil {
		return nil, err
	}
	out := &Progress{API: api, Quota: cfg.QuotaDaily}
	out.Usage = countAPI(logs, api, startOfDay(a.now()))
	if out.Usage == 0 {
		out.Usage = a.demo.intN(cfg.QuotaDaily + 1)
		out.Simulated = true
	}
	out.Percent = round(math.Min(float64(out.Usage)/float64(cfg.QuotaDaily)*100, 100), 2)
	out.Status = ProgressStatus(out.Percent)
	return out, nil
}

// Stats summarises the last 24 hours and the last 7 days across all APIs.
func (a *Aggregator) Stats(ctx context.Context) (*Stats, error) {
	logs, err := a.logs(ctx)
	if err != nil {
		return nil, err
	}
	now := a.now()
	dates := days(now, 7)
	if len(logs) == 0 {
		out := &Stats{Synthetic: true, Daily: make([]DailyPoint, len(dates))}
		for i, d := range dates {
			out.Daily[i].Date = d
		}
		for _, api := range a.catalog.Names() {
			for i, n := range a.demo.trend(a.catalog[api], len(dates), 5) {
				out.Daily[i].Count += n
			}
		}
		out.Total24h = out.Daily[len(out.Daily)-1].Count
		return out, nil
	}
	out := &Stats{Daily: dailyCounts(logs, "", dates)}
	since := now.Add(-24 * time.Hour)
	for _, l := range logs {
		if !l.Timestamp.Before(since) {
			out.Total24h++
		}
	}
	return out, nil
}
