package mutation

import (
	"strings"
	"time"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
)

// PublishAnnouncement creates or edits an announcement.
func PublishAnnouncement(a model.Announcement) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		a.ID = ensureID(a.ID)
		a.Title = strings.TrimSpace(a.Title)
		a.Content = strings.TrimSpace(a.Content)
		if a.Kind == "" {
			a.Kind = model.AnnouncementGeneral
		}
		if cur, ok := s.Announcements.Get(a.ID); ok {
			a.CreatedAt = cur.CreatedAt
		}
		if err := a.Validate(); err != nil {
			return Result{}, err
		}
		return Result{
			Snapshot: s.WithAnnouncements(s.Announcements.With(a)),
			Writes:   []Write{upsert(model.CollectionAnnouncements, a)},
		}, nil
	}
}

func DeleteAnnouncement(id string) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		if !s.Announcements.Has(id) {
			return Result{}, notFound("announcement", id)
		}
		return Result{
			Snapshot: s.WithAnnouncements(s.Announcements.Without(id)),
			Writes:   []Write{remove(model.CollectionAnnouncements, id)},
		}, nil
	}
}

// PurgeExpiredAnnouncements deletes every announcement expired at now.
func PurgeExpiredAnnouncements(now time.Time) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		expired := s.Announcements.Filter(func(a model.Announcement) bool { return !a.IsActive(now) })
		if len(expired) == 0 {
			return unchanged(s), nil
		}
		ids := make([]string, len(expired))
		writes := make([]Write, len(expired))
		for i, a := range expired {
			ids[i] = a.ID
			writes[i] = remove(model.CollectionAnnouncements, a.ID)
		}
		return Result{Snapshot: s.WithAnnouncements(s.Announcements.Without(ids...)), Writes: writes}, nil
	}
}

func UpdateSettings(st model.Settings) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		st.ID = model.SettingsDocID
		st.SchoolName = strings.TrimSpace(st.SchoolName)
		st.Theme = strings.TrimSpace(st.Theme)
		return Result{
			Snapshot: s.WithSettings(st),
			Writes:   []Write{upsert(model.CollectionSettings, st)},
		}, nil
	}
}
