package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	LeaderboardLimit int
	RecentLimit      int
}

// DashboardService composes the role-scoped landing page.
type DashboardService struct {
	state  *StateService
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(state *StateService, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = 5
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	return &DashboardService{state: state, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }, cfg: cfg}
}

// Get builds the dashboard for month (YYYY-MM, current month when empty). The second return reports a cache hit.
func (s *DashboardService) Get(ctx context.Context, session models.Session, month string) (*dto.DashboardResponse, bool, error) {
	if month == "" {
		month = s.now().Format("2006-01")
	}
	from, to, err := models.ParseMonth(month)
	if err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	cacheKey := CachePrefixDashboard + string(session.Role) + ":" + session.TeacherID + ":" + month
	var cached dto.DashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, false, err
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	teachers, _, err := loadTeachers(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	infractions, _, err := loadInfractions(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	attendance, _, err := loadAttendance(ctx, s.state)
	if err != nil {
		return nil, false, err
	}

	visible := scope.Students(students)
	joined := JoinInfractions(infractions, visible, classes)
	rollup := RollupPoints(infractions, visible, classes)

	resp := &dto.DashboardResponse{
		Month:     month,
		Role:      scope.Role.Key(),
		RoleLabel: scope.Role.Label(),
		Counts: dto.DashboardCounts{
			Students: len(visible),
			Classes:  len(classes),
			Teachers: len(teachers),
		},
		ByStatus:  make(map[string]int),
		RiskBands: map[models.RiskBand]int{models.RiskLow: 0, models.RiskMedium: 0, models.RiskHigh: 0},
	}

	monthly := make([]models.InfractionView, 0)
	for _, view := range joined {
		resp.ByStatus[string(view.Status)]++
		if view.Date.Within(from, to) {
			monthly = append(monthly, view)
		}
	}
	resp.Counts.Infractions = len(monthly)
	sort.SliceStable(monthly, func(i, j int) bool { return monthly[i].Date.After(monthly[j].Date.Time) })
	resp.Recent = limit(monthly, s.cfg.RecentLimit)

	for _, entry := range rollup {
		resp.RiskBands[entry.Band]++
	}
	resp.TopPoints = limit(rollup, s.cfg.LeaderboardLimit)

	visibleNIS := studentIndex(visible)
	var summary models.AttendanceSummary
	for _, record := range attendance {
		if record.Kind != models.AttendanceStudent || !record.Date.Within(from, to) {
			continue
		}
		if _, ok := visibleNIS[record.SubjectID]; !ok {
			continue
		}
		countStatus(&summary, record.Status)
	}
	resp.Attendance = dto.DashboardAttendance{
		Present:    summary.Present,
		Sick:       summary.Sick,
		Excused:    summary.Excused,
		Absent:     summary.Absent,
		Percentage: FormatPercentage(summary.Present, summary.Total),
	}

	if scope.Can(models.PermViewPayments) {
		status, _, err := loadPaymentStatus(ctx, s.state)
		if err != nil {
			return nil, false, err
		}
		tally := TallyPayments(visible, classes, status)
		resp.Payments = &dto.DashboardPayments{Arrears: tally.Arrears, Collected: tally.Collected}
	}

	if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("dashboard cache write skipped", zap.Error(err))
	}
	return resp, false, nil
}

func limit[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
