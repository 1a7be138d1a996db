package domain

// Customer — строка справочника клиентов.
// Ключ дедупликации — точное совпадение (Name, Phone).
type Customer struct {
	ID    int64
	Name  string
	Phone string
}
