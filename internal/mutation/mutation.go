// Package mutation is the local mutation layer. Every operation is a pure
// function from the current snapshot to the next one plus the remote writes
// that realise it. Nothing here performs I/O; a failed operation leaves the
// snapshot untouched and returns no writes.
package mutation

import (
	"fmt"
	"strings"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
)

type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Write is one whole-document change to send to the remote store.
type Write struct {
	Collection model.Collection
	DocID      string
	Op         Op
	Doc        model.Entity
}

func (w Write) Key() string {
	return string(w.Collection) + "/" + w.DocID
}

type Result struct {
	Snapshot *snapshot.Snapshot
	Writes   []Write
}

// Mutation turns a snapshot into the next one.
type Mutation func(s *snapshot.Snapshot) (Result, error)

func upsert(c model.Collection, doc model.Entity) Write {
	return Write{Collection: c, DocID: doc.EntityID(), Op: OpUpsert, Doc: doc}
}

func remove(c model.Collection, id string) Write {
	return Write{Collection: c, DocID: id, Op: OpDelete}
}

func unchanged(s *snapshot.Snapshot) Result {
	return Result{Snapshot: s}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
}

func ensureID(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return model.NewID()
	}
	return id
}

func duplicate(field, msg string) error {
	return model.NewValidationError(msg, model.FieldError{Field: field, Error: "already in use"})
}

// student returns a private deep copy of a student, safe to change.
func student(s *snapshot.Snapshot, id string) (model.Student, error) {
	st, ok := s.Students.Get(id)
	if !ok {
		return model.Student{}, notFound("student", id)
	}
	return st.Clone(), nil
}

func putStudent(s *snapshot.Snapshot, st model.Student) Result {
	return Result{
		Snapshot: s.WithStudents(s.Students.With(st)),
		Writes:   []Write{upsert(model.CollectionStudents, st)},
	}
}

// updateStudent applies fn to a copy of the student and stores the result.
func updateStudent(id string, fn func(st *model.Student) error) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		st, err := student(s, id)
		if err != nil {
			return Result{}, err
		}
		if err := fn(&st); err != nil {
			return Result{}, err
		}
		return putStudent(s, st), nil
	}
}
