package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента в черновике заказа.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего телефона клиента в черновике заказа.
	ErrCustomerPhoneRequired = errors.New("customer phone is required")
	// Ошибка отсутствующего имени товара в позиции.
	ErrItemNameRequired = errors.New("item name is required")
	// Ошибка отрицательной цены позиции.
	ErrItemPriceNegative = errors.New("item price must be non-negative")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCustomerNotFound возвращается, если клиент не найден в хранилище.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrItemNotFound возвращается, если товар не найден в хранилище.
	ErrItemNotFound = errors.New("item not found")
	// ErrDuplicateKey возвращается, если прямое обновление клиента или товара
	// привело бы к двум строкам с одинаковым ключом дедупликации.
	ErrDuplicateKey = errors.New("duplicate dedup key")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

var validationErrors = []error{
	ErrCustomerNameRequired,
	ErrCustomerPhoneRequired,
	ErrItemNameRequired,
	ErrItemPriceNegative,
}

// IsNotFound проверяет, означает ли ошибка отсутствие запрошенной сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrItemNotFound)
}

// IsValidation проверяет, относится ли ошибка к некорректному входу.
func IsValidation(err error) bool {
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// TransientError помечает ошибку хранилища, после которой транзакция
// гарантированно откатилась и операцию безопасно повторить.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// MarkTransient оборачивает ошибку как временную. Для nil возвращает nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient проверяет, помечена ли ошибка как временная.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
