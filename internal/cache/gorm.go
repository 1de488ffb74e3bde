package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hifz_backend/internal/remote"
)

type CollectionRow struct {
	Name      string         `gorm:"primaryKey;size:64"`
	Documents datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (CollectionRow) TableName() string { return "sync_collections" }

type OutboxRow struct {
	Seq        uint64 `gorm:"primaryKey;autoIncrement"`
	Collection string `gorm:"size:64;not null"`
	DocID      string `gorm:"size:128;not null;index"`
	Op         string `gorm:"size:16;not null"`
	Data       datatypes.JSON
	CreatedAt  time.Time
}

func (OutboxRow) TableName() string { return "sync_outbox" }

type PreferenceRow struct {
	Key       string `gorm:"column:pref_key;primaryKey;size:128"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (PreferenceRow) TableName() string { return "preferences" }

// Models lists the tables the gorm cache needs migrated.
func Models() []interface{} {
	return []interface{}{&CollectionRow{}, &OutboxRow{}, &PreferenceRow{}}
}

type storedDocument struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Gorm keeps the cache in a MySQL or PostgreSQL database.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func encodeDocuments(docs []remote.Document) (datatypes.JSON, error) {
	stored := make([]storedDocument, len(docs))
	for i, d := range docs {
		stored[i] = storedDocument{ID: d.ID, Data: d.Data}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeDocuments(data datatypes.JSON) ([]remote.Document, error) {
	var stored []storedDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	docs := make([]remote.Document, len(stored))
	for i, s := range stored {
		docs[i] = remote.Document{ID: s.ID, Data: s.Data}
	}
	return docs, nil
}

func (g *Gorm) LoadCollections(ctx context.Context) (map[string][]remote.Document, error) {
	var rows []CollectionRow
	if err := g.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]remote.Document, len(rows))
	for _, row := range rows {
		docs, err := decodeDocuments(row.Documents)
		if err != nil {
			return nil, err
		}
		out[row.Name] = docs
	}
	return out, nil
}

func (g *Gorm) SaveCollection(ctx context.Context, collection string, docs []remote.Document) error {
	data, err := encodeDocuments(docs)
	if err != nil {
		return err
	}
	row := CollectionRow{Name: collection, Documents: data, UpdatedAt: time.Now()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (g *Gorm) AppendWrite(ctx context.Context, e OutboxEntry) (uint64, error) {
	row := OutboxRow{
		Collection: e.Collection,
		DocID:      e.DocID,
		Op:         e.Op,
		Data:       datatypes.JSON(e.Data),
		CreatedAt:  e.CreatedAt,
	}
	if len(row.Data) == 0 {
		// deletes carry no document; datatypes.JSON cannot scan NULL back
		row.Data = datatypes.JSON("null")
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.Seq, nil
}

func (g *Gorm) RemoveWrite(ctx context.Context, seq uint64) error {
	return g.db.WithContext(ctx).Delete(&OutboxRow{}, seq).Error
}

func (g *Gorm) PendingWrites(ctx context.Context) ([]OutboxEntry, error) {
	var rows []OutboxRow
	if err := g.db.WithContext(ctx).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]OutboxEntry, len(rows))
	for i, row := range rows {
		out[i] = OutboxEntry{
			Seq:        row.Seq,
			Collection: row.Collection,
			DocID:      row.DocID,
			Op:         row.Op,
			Data:       json.RawMessage(row.Data),
			CreatedAt:  row.CreatedAt,
		}
	}
	return out, nil
}

func (g *Gorm) GetPreference(ctx context.Context, key string) (string, error) {
	var row PreferenceRow
	err := g.db.WithContext(ctx).Where("pref_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrPreferenceNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (g *Gorm) SetPreference(ctx context.Context, key, value string) error {
	row := PreferenceRow{Key: key, Value: value, UpdatedAt: time.Now()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}
