package handlers

import (
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"coachchat/pkg/store"
	"coachchat/pkg/utils"
)

// Admin serves operational read-only endpoints.
type Admin struct {
	store  *store.Store
	dbPath string
}

// RegisterAdmin registers the admin routes.
func RegisterAdmin(r *mux.Router, st *store.Store, dbPath string) {
	h := &Admin{store: st, dbPath: dbPath}
	r.HandleFunc("/admin/stats", h.stats).Methods(http.MethodGet)
}

// stats handles GET /admin/stats with thread counts and on-disk size.
func (h *Admin) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.CollectStats(r.Context())
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := struct {
		Threads  int    `json:"threads"`
		Archived int    `json:"archived"`
		DBSize   string `json:"db_size,omitempty"`
	}{Threads: st.Threads, Archived: st.Archived}
	if h.dbPath != "" {
		out.DBSize = humanize.Bytes(dirSize(h.dbPath))
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

// dirSize computes the best-effort on-disk footprint of the database dir.
func dirSize(path string) uint64 {
	var total uint64
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
