// Package engine ties the snapshot store, policy resolver, aggregator and
// export builders together behind one facade for the dashboard, the detail
// report and the export pipelines.
package engine

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pimsight/go-core/internal/aggregate"
	"github.com/pimsight/go-core/internal/chart"
	"github.com/pimsight/go-core/internal/export"
	"github.com/pimsight/go-core/internal/filter"
	"github.com/pimsight/go-core/internal/metrics"
	"github.com/pimsight/go-core/internal/policy"
	"github.com/pimsight/go-core/internal/snapshot"
	"github.com/pimsight/go-core/pkg/types"
)

// Config configures the reporting engine.
type Config struct {
	// Logger is used for debug logging; nil disables logging.
	Logger *zap.Logger
	// Metrics receives computation metrics; nil disables monitoring.
	Metrics metrics.Metrics
	// TopPrincipalLimit bounds the dashboard's top-principals list.
	TopPrincipalLimit int
	// ExpiringWindowDays is the lookahead for the expiring-soon list.
	ExpiringWindowDays int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TopPrincipalLimit:  5,
		ExpiringWindowDays: 30,
	}
}

// Options selects what one computation sees. The zero value includes both
// workloads with no filters.
type Options struct {
	// ExcludeRoles / ExcludeGroups are the per-workload visibility toggles.
	ExcludeRoles  bool
	ExcludeGroups bool
	// RoleFilter / GroupFilter are CEL visibility expressions; empty means
	// everything is visible.
	RoleFilter  string
	GroupFilter string
}

// Engine computes dashboard summaries, chart series and exports over the
// current snapshot. Every operation recomputes from scratch; results depend
// only on the snapshot and the options.
type Engine struct {
	store    *snapshot.Store
	resolver *policy.Resolver
	exporter *export.Builder
	filters  *filter.Engine
	metrics  metrics.Metrics
	logger   *zap.Logger
	config   Config
}

// New creates a reporting engine over a snapshot store.
func New(cfg Config, store *snapshot.Store) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoOpMetrics()
	}
	if cfg.TopPrincipalLimit <= 0 {
		cfg.TopPrincipalLimit = DefaultConfig().TopPrincipalLimit
	}
	if cfg.ExpiringWindowDays <= 0 {
		cfg.ExpiringWindowDays = DefaultConfig().ExpiringWindowDays
	}

	filters, err := filter.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create filter engine: %w", err)
	}

	resolver := policy.NewResolver(cfg.Logger)
	e := &Engine{
		store:    store,
		resolver: resolver,
		exporter: export.NewBuilder(resolver),
		filters:  filters,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		config:   cfg,
	}

	store.Notifier().Subscribe(func(ev snapshot.ReplacedEvent) {
		e.metrics.RecordSnapshotReload("ok")
		e.metrics.UpdateSnapshotSize(ev.RoleCount, ev.GroupCount)
	})
	return e, nil
}

// view resolves options into the collection and visibility mask one
// computation runs over.
func (e *Engine) view(opts Options) (aggregate.Collection, aggregate.Visibility, error) {
	snap := e.store.Current()

	var col aggregate.Collection
	if !opts.ExcludeRoles {
		col.Roles = snap.Roles
	}
	if !opts.ExcludeGroups {
		col.Groups = snap.Groups
	}

	var vis aggregate.Visibility
	if opts.RoleFilter != "" {
		pred, err := e.filters.RoleVisibility(opts.RoleFilter)
		if err != nil {
			return aggregate.Collection{}, aggregate.Visibility{}, err
		}
		vis.Role = pred
	}
	if opts.GroupFilter != "" {
		pred, err := e.filters.GroupVisibility(opts.GroupFilter)
		if err != nil {
			return aggregate.Collection{}, aggregate.Visibility{}, err
		}
		vis.Group = pred
	}
	return col, vis, nil
}

// Summary is the dashboard's aggregate snapshot.
type Summary struct {
	Totals          aggregate.Stats                `json:"totals"`
	MemberSplit     aggregate.MemberTypeSplit      `json:"memberSplit"`
	CoveragePercent int                            `json:"coveragePercent"`
	TopPrincipals   []aggregate.PrincipalVolume    `json:"topPrincipals"`
	ExpiringSoon    []aggregate.ExpiringAssignment `json:"expiringSoon"`
	GeneratedAt     time.Time                      `json:"generatedAt"`
}

// Summary computes the dashboard summary over the current snapshot.
func (e *Engine) Summary(opts Options, asOf time.Time) (*Summary, error) {
	start := time.Now()
	col, vis, err := e.view(opts)
	if err != nil {
		return nil, err
	}

	visibleRoles, _ := visibleSlices(col, vis)

	s := &Summary{
		Totals:          aggregate.Totals(col, vis),
		MemberSplit:     aggregate.SplitByMemberType(col, vis),
		CoveragePercent: aggregate.PimCoveragePercent(visibleRoles),
		TopPrincipals:   aggregate.TopPrincipals(col, e.config.TopPrincipalLimit, vis),
		ExpiringSoon:    aggregate.ExpiringWithin(col, e.config.ExpiringWindowDays, asOf, vis),
		GeneratedAt:     asOf,
	}
	e.metrics.RecordAggregation("summary", time.Since(start))
	return s, nil
}

// CategorySeries builds the assignment-distribution series honoring the
// only/hasAny toggle. onlyCategory is the active filter in "only" mode.
func (e *Engine) CategorySeries(opts Options, mode chart.Mode, onlyCategory types.AssignmentCategory) ([]types.ChartPoint, error) {
	start := time.Now()
	col, vis, err := e.view(opts)
	if err != nil {
		return nil, err
	}

	series := chart.BuildToggleSeries(mode, string(onlyCategory),
		func() []types.ChartPoint {
			counts := map[types.AssignmentCategory]int{}
			for _, c := range types.Categories {
				counts[c] = aggregate.CountByCategory(col, c, vis)
			}
			return chart.CategorySeries(counts)
		},
		func() types.ChartPoint {
			mix := chart.CategorySeries(map[types.AssignmentCategory]int{
				onlyCategory: aggregate.CountByCategory(col, onlyCategory, vis),
			})
			for _, p := range mix {
				if p.Value > 0 {
					return p
				}
			}
			return types.ChartPoint{}
		},
	)
	e.metrics.RecordAggregation("categorySeries", time.Since(start))
	return series, nil
}

// DurationHistogram builds the max-activation-duration distribution over the
// visible resources.
func (e *Engine) DurationHistogram(opts Options) ([]types.ChartPoint, error) {
	start := time.Now()
	col, vis, err := e.view(opts)
	if err != nil {
		return nil, err
	}

	roles, groups := visibleSlices(col, vis)
	hist := chart.BuildDurationHistogram(roles, groups)
	e.metrics.RecordAggregation("durationHistogram", time.Since(start))
	return hist, nil
}

// ResolveRole resolves one role's policy for the detail panel. The second
// return is false when the role is not in the snapshot.
func (e *Engine) ResolveRole(roleID string) (types.ResolvedPolicy, bool) {
	for _, r := range e.store.Current().Roles {
		if r.Definition.ID == roleID {
			start := time.Now()
			resolved := e.resolver.Resolve(types.ResourceRole, r.PolicyRules())
			e.metrics.RecordResolution(string(types.ResourceRole), time.Since(start))
			return resolved, true
		}
	}
	return types.ResolvedPolicy{}, false
}

// ResolveGroup resolves both surfaces of one group.
func (e *Engine) ResolveGroup(groupID string) (member, owner types.ResolvedPolicy, ok bool) {
	for _, g := range e.store.Current().Groups {
		if g.Group.ID == groupID {
			start := time.Now()
			member = e.resolver.Resolve(types.ResourceGroupMember, g.SurfaceRules(types.AccessMember))
			owner = e.resolver.Resolve(types.ResourceGroupOwner, g.SurfaceRules(types.AccessOwner))
			e.metrics.RecordResolution(string(types.ResourceGroupMember), time.Since(start))
			return member, owner, true
		}
	}
	return types.ResolvedPolicy{}, types.ResolvedPolicy{}, false
}

// AuthContexts returns the authentication-context display lookup of the
// current snapshot.
func (e *Engine) AuthContexts() map[string]string {
	return e.store.Current().AuthContexts
}

// ExportRoleSummaryCSV writes the role summary table as CSV.
func (e *Engine) ExportRoleSummaryCSV(w io.Writer, opts Options) (export.Metadata, error) {
	col, vis, err := e.view(opts)
	if err != nil {
		return export.Metadata{}, err
	}
	roles, _ := visibleSlices(col, vis)

	meta, err := export.WriteCSV(w, e.exporter.RoleSummaryTable(roles, e.AuthContexts()))
	if err != nil {
		return export.Metadata{}, err
	}
	e.metrics.RecordExport(string(export.FormatCSV), meta.RowCount)
	e.logger.Info("Exported role summary",
		zap.String("exportId", meta.ExportID),
		zap.Int("rows", meta.RowCount),
	)
	return meta, nil
}

// ExportAssignmentDetailCSV writes the per-assignment detail table as CSV.
func (e *Engine) ExportAssignmentDetailCSV(w io.Writer, opts Options) (export.Metadata, error) {
	col, vis, err := e.view(opts)
	if err != nil {
		return export.Metadata{}, err
	}
	roles, groups := visibleSlices(col, vis)

	meta, err := export.WriteCSV(w, e.exporter.AssignmentDetailTable(roles, groups))
	if err != nil {
		return export.Metadata{}, err
	}
	e.metrics.RecordExport(string(export.FormatCSV), meta.RowCount)
	return meta, nil
}

// ExportJSON writes the bulk JSON export object.
func (e *Engine) ExportJSON(w io.Writer, opts Options) (export.Metadata, error) {
	col, vis, err := e.view(opts)
	if err != nil {
		return export.Metadata{}, err
	}
	roles, groups := visibleSlices(col, vis)

	meta, err := export.WriteJSON(w, e.exporter.BuildBulkExport(roles, groups))
	if err != nil {
		return export.Metadata{}, err
	}
	e.metrics.RecordExport(string(export.FormatJSON), meta.RowCount)
	return meta, nil
}

func visibleSlices(col aggregate.Collection, vis aggregate.Visibility) ([]types.RoleDetailData, []types.PimGroupData) {
	roles := col.Roles
	if vis.Role != nil {
		roles = nil
		for _, r := range col.Roles {
			if vis.Role(r) {
				roles = append(roles, r)
			}
		}
	}
	groups := col.Groups
	if vis.Group != nil {
		groups = nil
		for _, g := range col.Groups {
			if vis.Group(g) {
				groups = append(groups, g)
			}
		}
	}
	return roles, groups
}
