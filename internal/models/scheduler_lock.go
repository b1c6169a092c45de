package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// SchedulerLock keeps a scheduled job from running on more than one instance per key.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lockName"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lockKey"`
	LockedBy  string    `gorm:"size:100" json:"lockedBy"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

// TryAcquireLock inserts a lock row for (name, key). It returns false when another
// holder already owns an unexpired lock for the same pair.
func TryAcquireLock(db *gorm.DB, name, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()

	var existing SchedulerLock
	err := db.Where("lock_name = ? AND lock_key = ?", name, key).First(&existing).Error
	switch {
	case err == nil:
		if existing.ExpiresAt.After(now) {
			return false, nil
		}
		// Take over an expired lock only if nobody else did first
		result := db.Model(&SchedulerLock{}).
			Where("id = ? AND expires_at < ?", existing.ID, now).
			Updates(map[string]interface{}{
				"locked_by":  owner,
				"locked_at":  now,
				"expires_at": now.Add(ttl),
			})
		if result.Error != nil {
			return false, result.Error
		}
		return result.RowsAffected == 1, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		lock := SchedulerLock{
			LockName:  name,
			LockKey:   key,
			LockedBy:  owner,
			LockedAt:  now,
			ExpiresAt: now.Add(ttl),
		}
		if err := db.Create(&lock).Error; err != nil {
			// Lost the race against another instance
			var again int64
			if countErr := db.Model(&SchedulerLock{}).
				Where("lock_name = ? AND lock_key = ?", name, key).
				Count(&again).Error; countErr == nil && again > 0 {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}
