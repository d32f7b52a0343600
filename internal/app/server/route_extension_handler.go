package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"extfilter/internal/api/dto"
	"extfilter/internal/database"
	"extfilter/internal/domain"
	"extfilter/internal/metrics"
)

func (h *handlers) getFixedExtensions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.fixed.List(r.Context())
	if err != nil {
		log.Error("failed to list fixed extensions", "error", err)
		writeError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toFixedExtensionDTOs(rows))
}

func (h *handlers) getCustomExtensions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.custom.List(r.Context())
	if err != nil {
		log.Error("failed to list custom extensions", "error", err)
		writeError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toCustomExtensionDTOs(rows))
}

func (h *handlers) getExtensionOverview(w http.ResponseWriter, r *http.Request) {
	var (
		fixed  []domain.FixedExtension
		custom []domain.CustomExtension
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		rows, err := h.fixed.List(ctx)
		fixed = rows
		return err
	})
	g.Go(func() error {
		rows, err := h.custom.List(ctx)
		custom = rows
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("failed to load extension overview", "error", err)
		writeError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExtensionOverview{
		Fixed:       toFixedExtensionDTOs(fixed),
		Custom:      toCustomExtensionDTOs(custom),
		CustomCount: len(custom),
		CustomLimit: h.custom.Capacity(),
	})
}

func (h *handlers) updateFixedExtension(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var payload dto.FixedExtensionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.IsBlocked == nil {
		writeError(w, "isBlocked is required", http.StatusBadRequest)
		return
	}

	updated, err := h.fixed.SetBlocked(r.Context(), name, *payload.IsBlocked)
	recordMutation("fixed", "set_blocked", err)
	if err != nil {
		writeExtensionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FixedExtension{Name: updated.Name, IsBlocked: updated.IsBlocked})
}

func (h *handlers) addCustomExtension(w http.ResponseWriter, r *http.Request) {
	var payload dto.CustomExtensionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	created, err := h.custom.Add(r.Context(), payload.Name)
	recordMutation("custom", "add", err)
	if err != nil {
		writeExtensionError(w, err)
		return
	}

	log.Info("Custom extension added", "name", created.Name)
	writeJSON(w, http.StatusOK, dto.CustomExtension{Name: created.Name})
}

func (h *handlers) deleteCustomExtension(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	err := h.custom.Delete(r.Context(), name)
	recordMutation("custom", "delete", err)
	if err != nil {
		writeExtensionError(w, err)
		return
	}

	log.Info("Custom extension deleted", "name", domain.NormalizeExtensionName(name))
	w.WriteHeader(http.StatusOK)
}

// writeExtensionError reports registry rule violations as 400 with their
// message and hides storage faults behind a generic 500.
func writeExtensionError(w http.ResponseWriter, err error) {
	if database.IsClientError(err) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Error("extension registry failure", "error", err)
	writeError(w, internalErrorMessage, http.StatusInternalServerError)
}

func recordMutation(registry, operation string, err error) {
	switch {
	case err == nil:
		metrics.RecordMutation(registry, operation, metrics.StatusSuccess)
	case database.IsClientError(err):
		metrics.RecordMutation(registry, operation, metrics.StatusRejected)
	default:
		metrics.RecordMutation(registry, operation, metrics.StatusError)
	}
}

func toFixedExtensionDTOs(rows []domain.FixedExtension) []dto.FixedExtension {
	result := make([]dto.FixedExtension, 0, len(rows))
	for _, row := range rows {
		result = append(result, dto.FixedExtension{Name: row.Name, IsBlocked: row.IsBlocked})
	}
	return result
}

func toCustomExtensionDTOs(rows []domain.CustomExtension) []dto.CustomExtension {
	result := make([]dto.CustomExtension, 0, len(rows))
	for _, row := range rows {
		result = append(result, dto.CustomExtension{Name: row.Name})
	}
	return result
}
