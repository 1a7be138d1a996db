package httpx

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail-oms/internal/service/orders"
)

// Handler обслуживает HTTP-операции над заказами, клиентами и товарами.
type Handler struct {
	service *orders.Service
	logger  *log.Entry
}

// NewHandler создаёт HTTP-обработчик поверх сервиса заказов.
func NewHandler(service *orders.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-handler")
	}
	return &Handler{service: service, logger: logger}
}

// CreateOrder принимает черновик заказа и собирает заказ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	view, err := h.service.CreateOrder(r.Context(), draftFromRequest(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.WithFields(log.Fields{
		"order_id": view.ID,
		"lines":    len(view.Lines),
	}).Info("order created")

	writeJSON(w, http.StatusCreated, mapOrderToResponse(view))
}

// GetOrder возвращает собранное представление заказа.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(view))
}

// UpdateOrder полностью заменяет содержимое заказа.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	view, err := h.service.UpdateOrder(r.Context(), id, draftFromRequest(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.WithField("order_id", view.ID).Info("order updated")

	writeJSON(w, http.StatusOK, mapOrderToResponse(view))
}

// DeleteOrder удаляет заказ вместе с позициями.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.WithField("order_id", id).Info("order deleted")

	w.WriteHeader(http.StatusNoContent)
}
