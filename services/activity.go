package services

import (
	"log/slog"

	"gorm.io/gorm"

	"meetpoint/models"
)

// ActivityLog persists a feed of notable group events.
type ActivityLog struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewActivityLog(db *gorm.DB) *ActivityLog {
	return &ActivityLog{db: db, log: slog.Default()}
}

// Record writes a feed entry. Fire and forget - the feed is best-effort
// and must never block or fail a mutation.
func (a *ActivityLog) Record(groupID, username string, kind models.ActivityKind, details string) {
	entry := models.Activity{
		GroupID:  groupID,
		Username: username,
		Kind:     kind,
		Details:  details,
	}

	go func() {
		if result := a.db.Create(&entry); result.Error != nil {
			a.log.Warn("activity write failed", "groupId", groupID, "kind", kind, "error", result.Error)
		}
	}()
}

// List returns the most recent entries for a group, newest first.
func (a *ActivityLog) List(groupID string, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.Activity
	result := a.db.Where("group_id = ?", groupID).Order("created_at DESC, id DESC").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, storeErr("list activity", result.Error)
	}
	return entries, nil
}
