package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state shared by every persisted entity.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusRemoved  Status = "REMOVED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusRemoved:
		return true
	}
	return false
}

// Side identifies which participant a voice, turn or avatar belongs to.
type Side string

const (
	SideUser Side = "USER"
	SideAI   Side = "AI"
)

// ParseSide accepts "user"/"USER"/"ai"/"AI".
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideUser:
		return SideUser, true
	case SideAI:
		return SideAI, true
	}
	return "", false
}

// Valid reports whether s is USER or AI.
func (s Side) Valid() bool {
	return s == SideUser || s == SideAI
}

// Key is the lower-case label used in transcripts ("user" / "ai").
func (s Side) Key() string {
	return strings.ToLower(string(s))
}

// Base carries the identity and timestamp columns of every table.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UID       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"uid"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the public UID.
func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.UID == "" {
		b.UID = uuid.NewString()
	}
	return nil
}

// Lifecycle is the soft-delete capability. Rows are never hard-deleted;
// removal flips Status to REMOVED and every read goes through a scope below.
type Lifecycle struct {
	Status Status `gorm:"type:varchar(10);not null;default:ACTIVE;index" json:"status"`
}

// Removed reports whether the row has been soft-deleted.
func (l Lifecycle) Removed() bool {
	return l.Status == StatusRemoved
}

// Owned is embedded by rows that may belong to a user. A nil owner marks a
// global row visible to everyone.
type Owned struct {
	UserID *uint `gorm:"index" json:"-"`
}

// Global reports whether the row has no owner.
func (o Owned) Global() bool {
	return o.UserID == nil
}

// OwnedBy reports whether userID owns the row.
func (o Owned) OwnedBy(userID uint) bool {
	return o.UserID != nil && *o.UserID == userID
}

// ActiveOnly restricts a query to ACTIVE rows.
func ActiveOnly(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", StatusActive)
}

// NotRemoved restricts a query to ACTIVE and INACTIVE rows.
func NotRemoved(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", []Status{StatusActive, StatusInactive})
}

// RemovedOnly restricts a query to soft-deleted rows.
func RemovedOnly(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", StatusRemoved)
}

// OwnerOrGlobal restricts a query to rows owned by userID or owned by nobody.
func OwnerOrGlobal(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? OR user_id IS NULL", userID)
	}
}

// OwnedByUser restricts a query to rows owned by userID.
func OwnedByUser(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// SoftDelete marks every row of model matching the scopes as REMOVED and
// returns how many rows changed.
func SoftDelete(tx *gorm.DB, model any, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	res := tx.Model(model).
		Scopes(scopes...).
		Where("status <> ?", StatusRemoved).
		Update("status", StatusRemoved)
	return res.RowsAffected, res.Error
}

// Chronological orders rows by creation time with the primary key as tie-breaker.
func Chronological(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// NewestFirst orders rows most recent first.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}
