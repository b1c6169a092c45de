package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/collabify/backend/internal/config"
	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const activityCleanupLock = "activity_log_cleanup"

var globalDB *gorm.DB

// InitActivityLogger enables LogInfo/LogWarning/LogError. Before it is called they are no-ops.
func InitActivityLogger(db *gorm.DB) {
	globalDB = db
}

func LogInfo(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog("info", module, action, message, userID, ip, userAgent, extra)
}

func LogWarning(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog("warning", module, action, message, userID, ip, userAgent, extra)
}

func LogError(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog("error", module, action, message, userID, ip, userAgent, extra)
}

// writeLog must not be called inside an open transaction: it uses its own connection.
func writeLog(level, module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	if globalDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.ActivityLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	if err := globalDB.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("failed to write activity log")
	}
}

type ActivityLogService struct {
	db *gorm.DB
}

func NewActivityLogService(db *gorm.DB) *ActivityLogService {
	return &ActivityLogService{db: db}
}

type ActivityLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type ActivityLogListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.ActivityLog `json:"items"`
}

// ListForUser returns the activity recorded for userID, newest first
func (s *ActivityLogService) ListForUser(ctx context.Context, userID uint, req *ActivityLogListRequest) (*ActivityLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.ActivityLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{}).Where("user_id = ?", userID)

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}

	return &ActivityLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// CleanupOldLogs deletes logs older than the specified number of days
// Returns the number of deleted records
func (s *ActivityLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// ActivityCleanupScheduler prunes old activity logs on a cron schedule.
// A scheduler lock row keeps several instances from running the same day's cleanup.
type ActivityCleanupScheduler struct {
	service       *ActivityLogService
	db            *gorm.DB
	retentionDays int
	spec          string
	owner         string
	cron          *cron.Cron
}

func NewActivityCleanupScheduler(db *gorm.DB, cfg config.ActivityLogConfig) *ActivityCleanupScheduler {
	host, _ := os.Hostname()
	return &ActivityCleanupScheduler{
		service:       NewActivityLogService(db),
		db:            db,
		retentionDays: cfg.RetentionDays,
		spec:          cfg.CleanupCron,
		owner:         fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

func (s *ActivityCleanupScheduler) Start() error {
	if s.retentionDays <= 0 {
		logger.Info().Msg("[ActivityLog] Log cleanup disabled (retention_days <= 0)")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(time.Now()) }); err != nil {
		return fmt.Errorf("schedule activity cleanup %q: %w", s.spec, err)
	}
	s.cron.Start()
	logger.Infof("[ActivityLog] Cleanup scheduled (cron: %s, retention: %d days)", s.spec, s.retentionDays)
	return nil
}

func (s *ActivityCleanupScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunOnce performs the cleanup for the day of now unless another instance already claimed it.
// It returns the number of deleted rows.
func (s *ActivityCleanupScheduler) RunOnce(now time.Time) int64 {
	key := now.Format("2006-01-02")
	acquired, err := models.TryAcquireLock(s.db, activityCleanupLock, key, s.owner, 12*time.Hour)
	if err != nil {
		logger.Error().Err(err).Msg("[ActivityLog] Failed to acquire cleanup lock")
		return 0
	}
	if !acquired {
		logger.Debug().Str("key", key).Msg("[ActivityLog] Cleanup already handled by another instance")
		return 0
	}

	deleted, err := s.service.CleanupOldLogs(s.retentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("[ActivityLog] Failed to cleanup old logs")
		return 0
	}
	if deleted > 0 {
		logger.Infof("[ActivityLog] Cleaned up %d logs older than %d days", deleted, s.retentionDays)
	}
	return deleted
}
