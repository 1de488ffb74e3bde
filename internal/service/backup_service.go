package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
	"hifz_backend/internal/util"
	"hifz_backend/pkg/logger"
)

const manifestName = "manifest.json"

// BackupManifest describes one export.
type BackupManifest struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Version   uint64         `json:"version"`
	Counts    map[string]int `json:"counts"`
	Files     []string       `json:"files"`
}

// BackupService exports the current snapshot to storage, one JSON file per
// collection.
type BackupService struct {
	source  SnapshotSource
	storage StorageProvider
	now     func() time.Time
}

func NewBackupService(source SnapshotSource, storage StorageProvider) *BackupService {
	return &BackupService{source: source, storage: storage, now: time.Now}
}

func collectionDocs(snap *snapshot.Snapshot, c model.Collection) interface{} {
	switch c {
	case model.CollectionStudents:
		return snap.Students.All()
	case model.CollectionTeachers:
		return snap.Teachers.All()
	case model.CollectionAnnouncements:
		return snap.Announcements.All()
	case model.CollectionAdabArchive:
		return snap.AdabArchive.All()
	case model.CollectionSettings:
		return []model.Settings{snap.Settings}
	}
	return nil
}

func collectionLen(snap *snapshot.Snapshot, c model.Collection) int {
	switch c {
	case model.CollectionStudents:
		return snap.Students.Len()
	case model.CollectionTeachers:
		return snap.Teachers.Len()
	case model.CollectionAnnouncements:
		return snap.Announcements.Len()
	case model.CollectionAdabArchive:
		return snap.AdabArchive.Len()
	}
	return 1
}

// Export writes every collection of one snapshot concurrently, then the
// manifest. A backup without a manifest is incomplete.
func (s *BackupService) Export(ctx context.Context) (BackupManifest, error) {
	snap := s.source.Snapshot()
	created := s.now().UTC()
	m := BackupManifest{
		ID:        created.Format("20060102T150405Z"),
		CreatedAt: created,
		Version:   snap.Version,
		Counts:    make(map[string]int, len(model.Collections)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range model.Collections {
		g.Go(func() error {
			data, err := json.MarshalIndent(collectionDocs(snap, c), "", "  ")
			if err != nil {
				return fmt.Errorf("encode %s: %w", c, err)
			}
			name := path.Join(m.ID, string(c)+".json")
			if _, err := s.storage.Upload(gctx, name, data, util.MimeJSON); err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}
			mu.Lock()
			m.Files = append(m.Files, name)
			m.Counts[string(c)] = collectionLen(snap, c)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Log.Error("Backup failed", zap.String("backup", m.ID), zap.Error(err))
		return BackupManifest{}, err
	}
	sort.Strings(m.Files)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return BackupManifest{}, err
	}
	if _, err := s.storage.Upload(ctx, path.Join(m.ID, manifestName), data, util.MimeJSON); err != nil {
		return BackupManifest{}, err
	}
	logger.Log.Info("Backup written", zap.String("backup", m.ID), zap.Uint64("version", m.Version))
	return m, nil
}

// List returns the manifests of complete backups, newest first.
func (s *BackupService) List(ctx context.Context) ([]BackupManifest, error) {
	names, err := s.storage.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []BackupManifest
	for _, name := range names {
		if !strings.HasSuffix(name, "/"+manifestName) {
			continue
		}
		data, err := s.storage.Download(ctx, name)
		if err != nil {
			return nil, err
		}
		var m BackupManifest
		if err := json.Unmarshal(data, &m); err != nil {
			logger.Log.Warn("Skipping unreadable backup manifest", zap.String("name", name), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
