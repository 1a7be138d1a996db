package domain

import "time"

// ItemRef описывает позицию заказа так, как её присылает клиент: имя и цена.
// Повторяющиеся позиции означают количество (одна строка — одна единица).
type ItemRef struct {
	Name  string
	Price float64
}

// OrderDraft — входные данные создания или полной замены заказа.
type OrderDraft struct {
	CustomerName  string
	CustomerPhone string
	Notes         string
	// Items может быть пустым и может содержать повторы; порядок сохраняется.
	Items []ItemRef
	// CreatedAt переопределяет серверное время вставки. Нулевое значение
	// означает "назначить текущее время"; используется только загрузчиком сидов.
	CreatedAt time.Time
}

// OrderLine — позиция в собранном представлении заказа.
type OrderLine struct {
	ItemID int64
	Name   string
	Price  float64
}

// OrderView — собранное представление заказа: шапка, поля клиента и позиции.
type OrderView struct {
	ID            int64
	CreatedAt     time.Time
	CustomerName  string
	CustomerPhone string
	Notes         string
	Lines         []OrderLine
}

// Validate проверяет базовые инварианты черновика и возвращает список замечаний.
// Пустой список позиций допустим.
func (d *OrderDraft) Validate() []error {
	var errs []error

	if d.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if d.CustomerPhone == "" {
		errs = append(errs, ErrCustomerPhoneRequired)
	}
	for _, item := range d.Items {
		if item.Name == "" {
			errs = append(errs, ErrItemNameRequired)
		}
		if item.Price < 0 {
			errs = append(errs, ErrItemPriceNegative)
		}
	}

	return errs
}
