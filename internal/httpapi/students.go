package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-kit/log/level"

	"github.com/goliatone/go-student-api/repositorycache"
	"github.com/goliatone/go-student-api/store"
)

type messageBody struct {
	Message string `json:"message"`
}

func (a *API) createStudent(w http.ResponseWriter, r *http.Request) error {
	var in store.NewStudent
	if err := decodeJSON(r, &in); err != nil {
		return err
	}

	logger := a.requestLogger(r)
	level.Info(logger).Log("msg", "creating student", "email", in.Email)

	student, err := a.store.Create(r.Context(), in)
	if err != nil {
		return err
	}

	level.Info(logger).Log("msg", "student created", "student_id", student.ID)
	writeJSON(w, r, http.StatusCreated, student)
	return nil
}

func (a *API) listStudents(w http.ResponseWriter, r *http.Request) error {
	level.Debug(a.requestLogger(r)).Log("msg", "fetching students")

	students, err := a.store.List(readContext(r))
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, students)
	return nil
}

func (a *API) getStudent(w http.ResponseWriter, r *http.Request) error {
	id, err := studentID(r)
	if err != nil {
		return err
	}

	student, err := a.store.Get(readContext(r), id)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, student)
	return nil
}

func (a *API) updateStudent(w http.ResponseWriter, r *http.Request) error {
	id, err := studentID(r)
	if err != nil {
		return err
	}

	var patch store.StudentPatch
	if err := decodeJSON(r, &patch); err != nil {
		return err
	}

	student, err := a.store.Update(r.Context(), id, patch)
	if err != nil {
		return err
	}

	level.Info(a.requestLogger(r)).Log("msg", "student updated", "student_id", id)
	writeJSON(w, r, http.StatusOK, student)
	return nil
}

func (a *API) deleteStudent(w http.ResponseWriter, r *http.Request) error {
	id, err := studentID(r)
	if err != nil {
		return err
	}

	if err := a.store.Delete(r.Context(), id); err != nil {
		return err
	}

	level.Info(a.requestLogger(r)).Log("msg", "student deleted", "student_id", id)
	writeJSON(w, r, http.StatusOK, messageBody{Message: "Student deleted successfully"})
	return nil
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) error {
	return store.ErrNotFound
}

// studentID parses the {id} path value.
func studentID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("student id must be an integer", err)
	}
	return id, nil
}

// readContext marks the request context for cache bypass when the client
// sent Cache-Control: no-cache.
func readContext(r *http.Request) context.Context {
	if noCache(r) {
		return repositorycache.WithCacheBypass(r.Context())
	}
	return r.Context()
}
