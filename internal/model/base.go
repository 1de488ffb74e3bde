package model

import (
	"github.com/google/uuid"
)

// Collection names of the remote document store.
type Collection string

const (
	CollectionStudents      Collection = "students"
	CollectionTeachers      Collection = "teachers"
	CollectionAnnouncements Collection = "announcements"
	CollectionAdabArchive   Collection = "adabArchive"
	CollectionSettings      Collection = "settings"
)

// Collections lists every collection the engine subscribes to.
var Collections = []Collection{
	CollectionStudents,
	CollectionTeachers,
	CollectionAnnouncements,
	CollectionAdabArchive,
	CollectionSettings,
}

// AdminAuthorID marks announcements written by the administrator.
const AdminAuthorID = "admin"

// Entity is any document stored in a collection.
type Entity interface {
	EntityID() string
}

func NewID() string {
	return uuid.New().String()
}
