// Package notify pushes announcements to parents' devices.
package notify

import (
	"context"

	"hifz_backend/internal/model"
)

// GeneralTopic reaches every parent of the school.
const GeneralTopic = "general"

// TopicFor is the topic the parents of one teacher's students subscribe to.
func TopicFor(target string) string {
	if target == model.AnnouncementTargetGeneral || target == "" {
		return GeneralTopic
	}
	return "teacher-" + target
}

type Message struct {
	Topic string
	Title string
	Body  string
	Data  map[string]string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// AnnouncementMessage builds the push for a newly published announcement.
func AnnouncementMessage(a model.Announcement) Message {
	title := a.Title
	if title == "" {
		title = a.AuthorName
	}
	body := a.Content
	if a.Kind == model.AnnouncementExamSchedule && body == "" {
		body = "جدول الاختبارات"
	}
	return Message{
		Topic: TopicFor(a.Target),
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":           "announcement",
			"announcementId": a.ID,
			"kind":           string(a.Kind),
		},
	}
}
