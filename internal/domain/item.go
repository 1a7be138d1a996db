package domain

// Item — строка каталога товаров.
// Ключ дедупликации — точное совпадение (Name, Price): одноимённые товары
// с разной ценой считаются разными позициями каталога.
type Item struct {
	ID    int64
	Name  string
	Price float64
}
