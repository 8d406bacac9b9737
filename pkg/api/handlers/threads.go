package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"coachchat/pkg/models"
	"coachchat/pkg/store"
	"coachchat/pkg/utils"
	"coachchat/pkg/validation"
)

// Threads exposes the thread store over HTTP.
type Threads struct {
	store *store.Store
}

// RegisterThreads registers all thread routes on the provided router.
func RegisterThreads(r *mux.Router, st *store.Store) {
	h := &Threads{store: st}
	r.HandleFunc("/threads", h.create).Methods(http.MethodPost)
	r.HandleFunc("/threads", h.list).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/archive", h.archive).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/activity", h.activity).Methods(http.MethodPost)
}

type createThreadRequest struct {
	Title        string               `json:"title"`
	Type         models.ThreadType    `json:"type"`
	Participants []models.Participant `json:"participants"`
	CreatedBy    string               `json:"created_by"`
}

// create handles POST /threads. Business rules are enforced here, before
// the store sees the request.
func (h *Threads) create(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateCreateThread(req.Title, req.Type, req.Participants, req.CreatedBy); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	th, err := h.store.CreateThread(r.Context(), store.CreateThreadInput{
		Title:        req.Title,
		Type:         req.Type,
		Participants: req.Participants,
		CreatedBy:    req.CreatedBy,
	}, nil)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, th)
}

// list handles GET /threads. The "user" query parameter is required;
// cursor, limit, direction, type, archived and role are optional.
func (h *Threads) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user")
	if userID == "" {
		utils.JSONError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	opts := store.PageOptions{
		Cursor:    q.Get("cursor"),
		Direction: store.Direction(q.Get("direction")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}

	filters := store.Filters{
		Type: models.ThreadType(q.Get("type")),
		Role: models.Role(q.Get("role")),
	}
	if v := q.Get("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid archived flag")
			return
		}
		filters.Archived = b
	}
	if err := validation.ValidateThreadType(filters.Type); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateRole(filters.Role); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.store.GetThreadsByUser(r.Context(), userID, opts, filters)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCursor) {
			utils.JSONError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, page)
}

// get handles GET /threads/{id}.
func (h *Threads) get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	th, err := h.store.GetThread(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "thread not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, th)
}

type archiveRequest struct {
	ArchiveMessages    bool `json:"archive_messages"`
	NotifyParticipants bool `json:"notify_participants"`
}

// archive handles POST /threads/{id}/archive. Archival is terminal; there
// is no un-archive route.
func (h *Threads) archive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req archiveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	err := h.store.ArchiveThread(r.Context(), id, store.ArchiveOptions{
		ArchiveMessages:    req.ArchiveMessages,
		NotifyParticipants: req.NotifyParticipants,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "thread not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activityRequest struct {
	At time.Time `json:"at"`
}

// activity handles POST /threads/{id}/activity, the hook the message
// pipeline calls when a message lands in the thread.
func (h *Threads) activity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req activityRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := h.store.RecordMessage(r.Context(), id, at); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "thread not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
