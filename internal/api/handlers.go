package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/order"
	"github.com/sells-group/salestax/internal/store"
)

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	records := 0
	if h.holder != nil {
		if s := h.holder.Load(); s != nil {
			records = s.Len()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"schedule_records": records,
	})
}

func (h *handler) taxByLocation(w http.ResponseWriter, r *http.Request) {
	q := &query{v: r.URL.Query()}
	jurisdiction := q.str("jurisdiction")
	sub := q.str("sub_jurisdiction")
	subtotal := q.subtotal()
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.quoter.ForLocation(jurisdiction, sub, subtotal))
}

func (h *handler) taxByCoordinates(w http.ResponseWriter, r *http.Request) {
	q := &query{v: r.URL.Query()}
	if q.str("lat") == "" || q.str("lon") == "" {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	in := order.CreateInput{
		Latitude:  q.float("lat"),
		Longitude: q.float("lon"),
		Subtotal:  q.subtotal(),
	}
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.quoter.ForCoordinates(r.Context(), in.Latitude, in.Longitude, in.Subtotal))
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in order.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, order.ErrInvalidOrder) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("api: create order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create order")
		return
	}

	w.Header().Set("Location", "/v1/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, o)
}

func (h *handler) importOrders(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "No CSV file provided.")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil || hdr.Size == 0 {
		writeError(w, http.StatusBadRequest, "No CSV file provided.")
		return
	}
	defer file.Close() //nolint:errcheck

	if !strings.EqualFold(filepath.Ext(hdr.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "File must be a CSV")
		return
	}

	res, err := h.orders.Import(r.Context(), file)
	if err != nil {
		if errors.Is(err, order.ErrMissingColumns) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("api: import orders", zap.String("file", hdr.Filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.orders.List(r.Context(), f)
	if err != nil {
		zap.L().Error("api: list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list orders")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		zap.L().Error("api: get order", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}
