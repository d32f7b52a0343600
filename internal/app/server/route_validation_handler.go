package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"extfilter/internal/api/dto"
	"extfilter/internal/extfilter"
)

const (
	maxBatchFileNames = 500

	messageAllowed       = "File can be uploaded."
	messageBlocked       = "File extension is blocked."
	messageUnrecognized  = "File extension could not be determined."
	messageFileNameEmpty = "fileName is required"
)

func (h *handlers) validateFile(w http.ResponseWriter, r *http.Request) {
	var payload dto.FileValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.FileValidationResponse{Message: "Invalid request payload"})
		return
	}
	if strings.TrimSpace(payload.FileName) == "" {
		writeJSON(w, http.StatusBadRequest, dto.FileValidationResponse{Message: messageFileNameEmpty})
		return
	}

	decision, err := h.validator.Validate(r.Context(), payload.FileName)
	if err != nil {
		if errors.Is(err, extfilter.ErrUnrecognizedExtension) {
			writeJSON(w, http.StatusBadRequest, dto.FileValidationResponse{Message: messageUnrecognized})
			return
		}
		log.Error("file validation failed", "file", payload.FileName, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.FileValidationResponse{Message: internalErrorMessage})
		return
	}

	writeJSON(w, http.StatusOK, dto.FileValidationResponse{
		Valid:   decision.Allowed,
		Message: decisionMessage(decision),
	})
}

func (h *handlers) validateFiles(w http.ResponseWriter, r *http.Request) {
	var payload dto.BatchFileValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if len(payload.FileNames) == 0 {
		writeError(w, "fileNames must not be empty", http.StatusBadRequest)
		return
	}
	if len(payload.FileNames) > maxBatchFileNames {
		writeError(w, "too many fileNames in one request", http.StatusBadRequest)
		return
	}

	results, err := h.validator.ValidateAll(r.Context(), payload.FileNames)
	if err != nil {
		log.Error("batch file validation failed", "files", len(payload.FileNames), "error", err)
		writeError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	response := dto.BatchFileValidationResponse{
		Results: make([]dto.FileValidationResult, 0, len(results)),
	}
	for _, result := range results {
		item := dto.FileValidationResult{
			FileName:  result.FileName,
			Extension: result.Decision.Extension,
			Valid:     result.Err == nil && result.Decision.Allowed,
		}
		if result.Err != nil {
			item.Message = messageUnrecognized
		} else {
			item.Message = decisionMessage(result.Decision)
		}

		if item.Valid {
			response.ValidCount++
		} else {
			response.InvalidCount++
		}
		response.Results = append(response.Results, item)
	}

	writeJSON(w, http.StatusOK, response)
}

func decisionMessage(decision extfilter.Decision) string {
	if decision.Allowed {
		return messageAllowed
	}
	return messageBlocked
}
