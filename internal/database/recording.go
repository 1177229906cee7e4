package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/OCAP2/tacview/pkg/acmi"
)

// ErrNotFound is returned when no recording has the requested name.
var ErrNotFound = errors.New("recording not found")

// Recording is one catalog row.
type Recording struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	Name          string `gorm:"uniqueIndex;size:128"`
	Host          string `gorm:"size:128"`
	Title         string
	Category      string
	ReferenceTime *time.Time
	RecordingTime *time.Time
	Duration      float64 // seconds of frame time
	Ticks         uint64
	Bytes         uint64
	FilePath      string
	Uploaded      bool
	// Metadata holds the full metadata block as JSON.
	Metadata datatypes.JSON
}

// NewRecording builds a catalog row from the metadata a recording was
// started with.
func NewRecording(name, host string, meta acmi.Metadata) (Recording, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return Recording{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return Recording{
		Name:          name,
		Host:          host,
		Title:         meta.Title,
		Category:      meta.Category,
		ReferenceTime: optionalTime(meta.ReferenceTime),
		RecordingTime: optionalTime(meta.RecordingTime),
		Metadata:      datatypes.JSON(raw),
	}, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// SaveRecording inserts rec, or updates the row with the same name.
func (m *Manager) SaveRecording(rec *Recording) error {
	var existing Recording
	err := m.DB.Where("name = ?", rec.Name).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return m.DB.Create(rec).Error
	case err != nil:
		return err
	}
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	return m.DB.Save(rec).Error
}

// MarkUploaded flags the named recording as uploaded.
func (m *Manager) MarkUploaded(name string) error {
	res := m.DB.Model(&Recording{}).Where("name = ?", name).Update("uploaded", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return nil
}

// FindRecording returns the row with the given name.
func (m *Manager) FindRecording(name string) (Recording, error) {
	var rec Recording
	err := m.DB.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return rec, err
}

// ListRecordings returns recordings, newest first, at most limit rows
// (all when limit <= 0).
func (m *Manager) ListRecordings(limit int) ([]Recording, error) {
	q := m.DB.Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Recording
	return out, q.Find(&out).Error
}

// PendingUploads returns recordings with a file that has not been uploaded.
func (m *Manager) PendingUploads() ([]Recording, error) {
	var out []Recording
	err := m.DB.Where("uploaded = ? AND file_path <> ''", false).Order("id").Find(&out).Error
	return out, err
}
