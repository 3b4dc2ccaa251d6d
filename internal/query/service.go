// Package query implements the read side of the API: the raw filtered
// fetch and the count and percentage aggregations by factor.
//
// Parameters arrive as strings and are validated against the Config's
// allowed states, years and factors. Validation failures are returned as
// *ValidationError so transports can answer them with a client error.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"foodsecurity/internal/config"
	"foodsecurity/internal/schema"
	"foodsecurity/internal/storage"
)

// Sentinel parameter values.
const (
	All  = config.All
	None = config.None
)

// NullKey is the grouping key used when the factor column is NULL.
const NullKey = "None"

// Statistic selects the aggregation of the combined endpoint.
type Statistic string

const (
	StatNone       Statistic = "None"
	StatCount      Statistic = "Count"
	StatPercentage Statistic = "Percentage"
)

// Statistics lists the accepted statistic values.
var Statistics = []Statistic{StatNone, StatCount, StatPercentage}

// MsgStatisticsRequired is returned when a factor is chosen without a statistic.
const MsgStatisticsRequired = "You must specify a value for 'statistics' when 'factor' is selected."

// ValidationError reports a bad request parameter.
type ValidationError struct {
	Param string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(param, format string, args ...any) error {
	return &ValidationError{Param: param, Msg: fmt.Sprintf(format, args...)}
}

// Counts maps factor value → security label → count.
type Counts map[string]map[string]int64

// Percentages maps factor value → security label → "12.34%".
type Percentages map[string]map[string]string

// Service answers queries against a Repository.
type Service struct {
	cfg  *config.Config
	repo storage.Repository
}

// NewService returns a Service validating against cfg.
func NewService(cfg *config.Config, repo storage.Repository) *Service {
	return &Service{cfg: cfg, repo: repo}
}

// Filter validates the state and year parameters. "All" disables a clause.
func (s *Service) Filter(state, year string) (storage.Filter, error) {
	var f storage.Filter
	state, year = strings.TrimSpace(state), strings.TrimSpace(year)

	switch {
	case state == "":
		return f, invalid("state", "missing required parameter 'state'")
	case state == All:
	case s.cfg.AllowedState(state):
		f.State = state
	default:
		return f, invalid("state", "invalid value for 'state': %q", state)
	}

	switch {
	case year == "":
		return f, invalid("year", "missing required parameter 'year'")
	case year == All:
	default:
		y, err := strconv.Atoi(year)
		if err != nil || !s.cfg.AllowedYear(y) {
			return f, invalid("year", "invalid value for 'year': %q", year)
		}
		f.Year = y
	}
	return f, nil
}

// Factor resolves a factor display name. ok is false for "None".
func (s *Service) Factor(name string) (col schema.Column, ok bool, err error) {
	name = strings.TrimSpace(name)
	switch name {
	case "":
		return 0, false, invalid("factor", "missing required parameter 'factor'")
	case None:
		return 0, false, nil
	}
	col, ok = s.cfg.Factor(name)
	if !ok {
		return 0, false, invalid("factor", "invalid value for 'factor': %q", name)
	}
	return col, true, nil
}

// ParseStatistic validates the statistics parameter.
func ParseStatistic(v string) (Statistic, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid("statistics", "missing required parameter 'statistics'")
	}
	for _, st := range Statistics {
		if Statistic(v) == st {
			return st, nil
		}
	}
	return "", invalid("statistics", "invalid value for 'statistics': %q", v)
}

// ParseLimit parses the optional limit. Empty means unbounded, as does any
// value <= 0.
func ParseLimit(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalid("limit", "invalid value for 'limit': %q", v)
	}
	return n, nil
}

// Records returns the rows matching f ordered by id.
func (s *Service) Records(ctx context.Context, f storage.Filter, limit int) ([]schema.Record, error) {
	recs, err := s.repo.Records(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("query: records: %w", err)
	}
	return recs, nil
}

// Counts groups rows with a known security level by (factor, security).
// A NULL factor is keyed NullKey; should a stored label equal NullKey too,
// both groups land in one cell and their counts are added. Validated
// configs reject that label on factor columns.
func (s *Service) Counts(ctx context.Context, f storage.Filter, factor schema.Column) (Counts, error) {
	groups, err := s.repo.GroupCounts(ctx, f, factor)
	if err != nil {
		return nil, fmt.Errorf("query: counts: %w", err)
	}
	out := Counts{}
	for _, g := range groups {
		key := NullKey
		if g.Value != nil {
			key = *g.Value
		}
		m := out[key]
		if m == nil {
			m = map[string]int64{}
			out[key] = m
		}
		m[g.Security] += g.Count
	}
	return out, nil
}

// Percentages is Counts with each cell divided by its factor value's total.
func (s *Service) Percentages(ctx context.Context, f storage.Filter, factor schema.Column) (Percentages, error) {
	counts, err := s.Counts(ctx, f, factor)
	if err != nil {
		return nil, err
	}
	return counts.Percentages(), nil
}

// Percentages converts counts to "%.2f%%" shares of each factor value's total.
func (c Counts) Percentages() Percentages {
	out := make(Percentages, len(c))
	for key, bySec := range c {
		var total int64
		for _, n := range bySec {
			total += n
		}
		m := make(map[string]string, len(bySec))
		for sec, n := range bySec {
			m[sec] = FormatPercent(n, total)
		}
		out[key] = m
	}
	return out
}

// FormatPercent renders n/total as "12.34%"; a zero total yields "0.00%".
func FormatPercent(n, total int64) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
}

// Filtered serves the combined endpoint: raw records when no factor is set,
// otherwise the aggregation chosen by stat.
func (s *Service) Filtered(ctx context.Context, f storage.Filter, factor schema.Column, hasFactor bool, stat Statistic, limit int) (any, error) {
	if !hasFactor {
		return s.Records(ctx, f, limit)
	}
	switch stat {
	case StatCount:
		return s.Counts(ctx, f, factor)
	case StatPercentage:
		return s.Percentages(ctx, f, factor)
	default:
		return nil, &ValidationError{Param: "statistics", Msg: MsgStatisticsRequired}
	}
}

// Parameters lists the accepted values of each request parameter.
type Parameters struct {
	State      []string `json:"state"`
	Year       []string `json:"year"`
	Factor     []string `json:"factor"`
	Statistics []string `json:"statistics"`
}

// Parameters returns the allowed values, sentinels first.
func (s *Service) Parameters() Parameters {
	p := Parameters{
		State:  append([]string{All}, s.cfg.States...),
		Year:   []string{All},
		Factor: append([]string{None}, s.cfg.FactorNames()...),
	}
	years := append([]int(nil), s.cfg.Years...)
	sort.Ints(years)
	for _, y := range years {
		p.Year = append(p.Year, strconv.Itoa(y))
	}
	for _, st := range Statistics {
		p.Statistics = append(p.Statistics, string(st))
	}
	return p
}
