// Package chart shapes aggregation and resolution output into named series
// for the dashboard charts and the PDF table renderer.
package chart

import (
	"github.com/pimsight/go-core/internal/duration"
	"github.com/pimsight/go-core/internal/policy"
	"github.com/pimsight/go-core/pkg/types"
)

// Mode selects the question a toggle series answers: the full category
// breakdown, or the size of exactly one filtered category.
type Mode string

const (
	ModeOnly   Mode = "only"
	ModeHasAny Mode = "hasAny"
)

// Palette maps series names to presentation colors. Values are hints for
// the rendering layer, carried through untouched.
var Palette = map[string]string{
	string(types.CategoryPermanent): "#d13438",
	string(types.CategoryEligible):  "#0078d4",
	string(types.CategoryActive):    "#107c10",
	duration.BucketUnder1:           "#8a8886",
	duration.Bucket2to4:             "#0078d4",
	duration.Bucket5to8:             "#2b88d8",
	duration.Bucket9to12:            "#71afe5",
	duration.BucketOver12:           "#d13438",
	duration.BucketNA:               "#c8c6c4",
}

// BuildToggleSeries answers both toggle questions with one chart. In "only"
// mode with a concrete active filter, the series is the single filtered
// entry from onlyFn, or empty when that count is zero (never a zero-value
// entry). Everything else falls back to the full mix.
func BuildToggleSeries(mode Mode, activeFilter string, fullMix func() []types.ChartPoint, onlyFn func() types.ChartPoint) []types.ChartPoint {
	if mode == ModeOnly && activeFilter != "" {
		p := onlyFn()
		if p.Value == 0 {
			return []types.ChartPoint{}
		}
		return []types.ChartPoint{p}
	}
	return fullMix()
}

// BuildDurationHistogram buckets every governed surface's maximum activation
// duration into the fixed-order histogram. Roles contribute one data point;
// groups contribute member and owner surfaces independently, so a group adds
// up to two increments. Surfaces without an expiration rule, and resources
// without any policy, land in the N/A bucket.
func BuildDurationHistogram(roles []types.RoleDetailData, groups []types.PimGroupData) []types.ChartPoint {
	counts := map[string]int{}

	bump := func(rules []types.PolicyRule) {
		counts[surfaceBucket(rules)]++
	}

	for _, r := range roles {
		bump(r.PolicyRules())
	}
	for _, g := range groups {
		bump(g.SurfaceRules(types.AccessMember))
		bump(g.SurfaceRules(types.AccessOwner))
	}

	out := make([]types.ChartPoint, 0, len(duration.BucketOrder))
	for _, name := range duration.BucketOrder {
		out = append(out, types.ChartPoint{Name: name, Value: counts[name], Color: Palette[name]})
	}
	return out
}

// surfaceBucket resolves one surface's activation expiration rule to its
// histogram bucket, N/A when no such rule exists.
func surfaceBucket(rules []types.PolicyRule) string {
	if len(rules) == 0 {
		return duration.BucketNA
	}
	ix := policy.BuildIndex(rules)
	exp, _ := ix.Find(types.VariantExpiration, types.CallerEndUser, types.LevelAssignment).(*types.ExpirationRule)
	if exp == nil {
		return duration.BucketNA
	}
	return duration.BucketLabel(duration.ParseHours(exp.MaximumDuration))
}

// CategorySeries renders per-category counts as a full-mix series in display
// order, colored from the palette. Zero-value categories stay in the mix;
// only the "only" toggle suppresses zeros.
func CategorySeries(counts map[types.AssignmentCategory]int) []types.ChartPoint {
	out := make([]types.ChartPoint, 0, len(types.Categories))
	for _, c := range types.Categories {
		out = append(out, types.ChartPoint{
			Name:  title(c),
			Value: counts[c],
			Color: Palette[string(c)],
		})
	}
	return out
}

// title renders a category name for display ("permanent" -> "Permanent").
func title(c types.AssignmentCategory) string {
	s := string(c)
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
