package httpx

import "github.com/vladislavdragonenkov/retail-oms/internal/domain"

type OrderRequest struct {
	CustomerName  string         `json:"name"`
	CustomerPhone string         `json:"phone"`
	Notes         string         `json:"notes,omitempty"`
	Items         []OrderItemRef `json:"items"`
}

type OrderItemRef struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OrderResponse struct {
	ID            int64               `json:"id"`
	Timestamp     int64               `json:"timestamp"`
	CustomerName  string              `json:"name"`
	CustomerPhone string              `json:"phone"`
	Notes         string              `json:"notes,omitempty"`
	Items         []OrderLineResponse `json:"items"`
}

type OrderLineResponse struct {
	ItemID int64   `json:"item_id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

type CustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type CustomerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ItemRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type ItemResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func draftFromRequest(req OrderRequest) domain.OrderDraft {
	items := make([]domain.ItemRef, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.ItemRef{Name: item.Name, Price: item.Price})
	}
	return domain.OrderDraft{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Items:         items,
	}
}

// mapOrderToResponse переводит представление заказа в формат ответа.
// Время создания отдаётся как Unix-время в секундах.
func mapOrderToResponse(view domain.OrderView) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(view.Lines))
	for _, line := range view.Lines {
		lines = append(lines, OrderLineResponse{
			ItemID: line.ItemID,
			Name:   line.Name,
			Price:  line.Price,
		})
	}
	return OrderResponse{
		ID:            view.ID,
		Timestamp:     view.CreatedAt.Unix(),
		CustomerName:  view.CustomerName,
		CustomerPhone: view.CustomerPhone,
		Notes:         view.Notes,
		Items:         lines,
	}
}

func mapCustomerToResponse(customer domain.Customer) CustomerResponse {
	return CustomerResponse{ID: customer.ID, Name: customer.Name, Phone: customer.Phone}
}

func mapItemToResponse(item domain.Item) ItemResponse {
	return ItemResponse{ID: item.ID, Name: item.Name, Price: item.Price}
}
