package http

import (
	"io"
	"net/http"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
)

const maxEventSize = 1 << 20

type EventHandler struct {
	enrichmentUsecase usecase.EnrichmentUC
	logger            logger.Logger
}

func NewEventHandler(enrichmentUsecase usecase.EnrichmentUC, logger logger.Logger) *EventHandler {
	return &EventHandler{enrichmentUsecase: enrichmentUsecase, logger: logger}
}

// handleStorageEvent принимает push-уведомление хранилища и синхронно обрабатывает все его события.
// Ответ несёт худший статус пайплайна, чтобы отправитель повторил доставку при ошибке.
func (h *EventHandler) handleStorageEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventSize))
	if err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrBadRequest.Error(), err.Error())
		WriteError(w, e.Wrap(err.Error(), e.ErrBadRequest))
		return
	}

	events, err := domain.DecodeStorageEvents(body)
	if err != nil {
		h.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	res := usecase.NewResult(http.StatusOK, "Success", "")
	for _, event := range events {
		got := h.enrichmentUsecase.Process(r.Context(), event)
		if got.Status != http.StatusOK {
			h.logger.Warnf("event %s/%s: %d %s", event.Bucket, event.ObjectKey, got.Status, got.Message)
		}
		if got.Status > res.Status {
			res = got
		}
	}

	WriteSuccess(w, res.Status, NewErrorResponse(res.Status, res.Message))
}
