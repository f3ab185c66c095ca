package history

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	hist "bgscan/internal/domain/history"
	"bgscan/internal/httpresponse"
	"bgscan/internal/report"
	"bgscan/internal/utils"
)

type HistoryService interface {
	List(ctx context.Context) ([]hist.Item, error)
	Get(ctx context.Context, id string) (hist.Item, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type SettingsService interface {
	Get(ctx context.Context) (hist.Settings, error)
	Update(ctx context.Context, patch hist.SettingsPatch) (hist.Settings, error)
}

type JsonOKResponse struct {
	Text string `json:"text"`
}

type HistoryHandler struct {
	log      *zap.SugaredLogger
	history  HistoryService
	settings SettingsService
}

func NewHistoryHandler(log *zap.SugaredLogger, history HistoryService, settings SettingsService) *HistoryHandler {
	return &HistoryHandler{
		log:      log,
		history:  history,
		settings: settings,
	}
}

// itemID reads the {id} route parameter. Position IDs are base64 and may
// contain '/', so clients send them path-escaped.
func itemID(r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.history.List(r.Context())
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, items)
}

func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "bad history id")
		return
	}
	item, err := h.history.Get(r.Context(), id)
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, item)
}

func (h *HistoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "bad history id")
		return
	}
	if err := h.history.Remove(r.Context(), id); err != nil {
		httpresponse.WriteError(w, err)
		return
	}
	h.log.Infof("запись истории %s удалена", id)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, JsonOKResponse{Text: "history item removed"})
}

func (h *HistoryHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		h.log.Error(err)
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, JsonOKResponse{Text: "history cleared"})
}

// HandleReport renders the item as a PDF download.
func (h *HistoryHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "bad history id")
		return
	}
	item, err := h.history.Get(r.Context(), id)
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err = report.Render(&buf, item); err != nil {
		h.log.Errorw("failed to render report", "position_id", id, "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="position.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *HistoryHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, settings)
}

func (h *HistoryHandler) HandlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch hist.SettingsPatch
	if err := utils.DecodeJSONRequest(r, &patch); err != nil {
		h.log.Error("JSON decode error:", err)
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, httpresponse.MALFORMEDJSON_errorDesc+": "+err.Error())
		return
	}
	settings, err := h.settings.Update(r.Context(), patch)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, settings)
}
