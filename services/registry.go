package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meetpoint/models"
)

// Registry owns the set of groups: creation, lookup, listing and roster
// growth. Roster mutations serialize on the per-group lock shared with
// every other mutation path.
type Registry struct {
	db       *gorm.DB
	locks    *GroupLocks
	activity *ActivityLog
	log      *slog.Logger
}

func NewRegistry(db *gorm.DB, locks *GroupLocks, activity *ActivityLog) *Registry {
	return &Registry{
		db:       db,
		locks:    locks,
		activity: activity,
		log:      slog.Default(),
	}
}

// newGroupID generates an opaque time-based token. The random suffix
// keeps two creations within the same millisecond from colliding.
func newGroupID() string {
	return fmt.Sprintf("GRP-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// CreateGroup creates a group with the creator as its first member.
func (r *Registry) CreateGroup(name, creator string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: groupName is required", ErrValidation)
	}
	if creator == "" {
		return nil, fmt.Errorf("%w: createdBy is required", ErrValidation)
	}

	group := models.Group{
		GroupID:   newGroupID(),
		GroupName: name,
		CreatedBy: creator,
		IsActive:  true,
		Members: []models.Member{
			{Username: creator, JoinedAt: time.Now()},
		},
	}

	if result := r.db.Create(&group); result.Error != nil {
		return nil, storeErr("create group", result.Error)
	}

	r.activity.Record(group.GroupID, creator, models.ActivityGroupCreated, name)
	r.log.Info("group created", "groupId", group.GroupID, "createdBy", creator)
	return &group, nil
}

// FindGroup looks up a group by its public identifier, roster included.
func (r *Registry) FindGroup(groupID string) (*models.Group, error) {
	var group models.Group
	result := r.db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC, id ASC")
	}).Where("group_id = ?", groupID).First(&group)
	if result.Error != nil {
		return nil, storeErr("find group", result.Error)
	}
	return &group, nil
}

// ListActive returns all groups that have not been closed.
func (r *Registry) ListActive() ([]models.Group, error) {
	var groups []models.Group
	result := r.db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC, id ASC")
	}).Where("is_active = ?", true).Order("created_at DESC").Find(&groups)
	if result.Error != nil {
		return nil, storeErr("list groups", result.Error)
	}
	return groups, nil
}

// AddMember appends username to the roster. Joining a group you are
// already a member of is a no-op.
func (r *Registry) AddMember(groupID, username string) (*models.Group, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}

	r.locks.Lock(groupID)
	defer r.locks.Unlock(groupID)

	group, err := r.FindGroup(groupID)
	if err != nil {
		return nil, err
	}

	for _, m := range group.Members {
		if m.Username == username {
			return group, nil
		}
	}

	member := models.Member{GroupID: groupID, Username: username, JoinedAt: time.Now()}
	if result := r.db.Create(&member); result.Error != nil {
		return nil, storeErr("add member", result.Error)
	}
	group.Members = append(group.Members, member)

	r.activity.Record(groupID, username, models.ActivityMemberJoined, "")
	return group, nil
}

// Close flips a group inactive. Closed groups stop showing up in
// ListActive; their presences and history stay readable.
func (r *Registry) Close(groupID string) (*models.Group, error) {
	r.locks.Lock(groupID)
	defer r.locks.Unlock(groupID)

	group, err := r.FindGroup(groupID)
	if err != nil {
		return nil, err
	}

	group.IsActive = false
	if result := r.db.Model(&models.Group{}).Where("group_id = ?", groupID).Update("is_active", false); result.Error != nil {
		return nil, storeErr("close group", result.Error)
	}
	return group, nil
}
