package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"leavedesk/internal/models"
)

// Integration describes an optional external dependency for health reports.
type Integration struct {
	Name    string
	Enabled bool
	Backend string
}

// healthService checks the database and reports usage counters.
type healthService struct {
	db           *gorm.DB
	integrations []Integration
	startedAt    time.Time
	now          func() time.Time
}

// NewHealthService creates a new HealthServicer.
func NewHealthService(db *gorm.DB, integrations ...Integration) HealthServicer {
	return &healthService{db: db, integrations: integrations, startedAt: time.Now(), now: time.Now}
}

// Ping checks that the database answers.
func (s *healthService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return persistenceError(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return persistenceError(err)
	}
	return nil
}

// Detailed measures database latency, counts rows and lists integrations.
func (s *healthService) Detailed(ctx context.Context) (*HealthReport, error) {
	started := s.now()
	report := &HealthReport{
		Status:    "healthy",
		Timestamp: started.UTC(),
		Checks:    map[string]DependencyStatus{},
	}

	dbStart := s.now()
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	report.Checks["database"] = DependencyStatus{Status: "ok", ResponseTimeMs: millis(s.now().Sub(dbStart))}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Account{}).Count(&report.AccountCount).Error; err != nil {
		return nil, persistenceError(err)
	}
	if err := db.Model(&models.LeaveRecord{}).Count(&report.RecordCount).Error; err != nil {
		return nil, persistenceError(err)
	}

	for _, in := range s.integrations {
		status := DependencyStatus{Status: "disabled"}
		if in.Enabled {
			status = DependencyStatus{Status: "ok", Detail: in.Backend}
		}
		report.Checks[in.Name] = status
	}

	report.ResponseTimeMs = millis(s.now().Sub(started))
	return report, nil
}

// Metrics returns coarse usage counters.
func (s *healthService) Metrics(ctx context.Context) (*Metrics, error) {
	now := s.now()
	m := &Metrics{
		Timestamp: now.UTC(),
		Uptime:    now.Sub(s.startedAt).Round(time.Second).String(),
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Account{}).Where("is_admin = ?", false).Count(&m.Accounts).Error; err != nil {
		return nil, persistenceError(err)
	}
	if err := db.Model(&models.Account{}).Where("is_admin = ?", true).Count(&m.Administrators).Error; err != nil {
		return nil, persistenceError(err)
	}
	if err := db.Model(&models.LeaveRecord{}).Count(&m.LeaveRecords).Error; err != nil {
		return nil, persistenceError(err)
	}

	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	if err := db.Model(&models.LeaveRecord{}).Where("start_date >= ?", yearStart).Count(&m.RecordsThisYear).Error; err != nil {
		return nil, persistenceError(err)
	}
	return m, nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
