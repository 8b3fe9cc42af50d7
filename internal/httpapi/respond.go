package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeValidation(w http.ResponseWriter, messages ...string) {
	writeJSON(w, http.StatusBadRequest, validationResponse{Errors: messages})
}

// writeError переводит вид доменной ошибки в HTTP-статус. Детали
// непредвиденных ошибок остаются в логе и клиенту не отдаются.
func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "unexpected error"})
		return
	}

	switch de.Kind {
	case domain.KindValidation:
		writeValidation(w, de.Fields...)
	case domain.KindBusinessRule:
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: de.Message})
	case domain.KindNotFound:
		writeJSON(w, http.StatusNotFound, messageResponse{Message: de.Message})
	case domain.KindConflict:
		writeJSON(w, http.StatusConflict, messageResponse{Message: de.Message})
	default:
		logger.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "unexpected error"})
	}
}

// decodeBody читает JSON-тело; при ошибке сам пишет ответ 400 и возвращает false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeValidation(w, "request body is required")
			return false
		}
		writeValidation(w, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

// pathID разбирает числовой идентификатор из пути; при ошибке пишет 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeValidation(w, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return id, true
}
