package domain

// NationalIDLength: длина национального идентификатора клиента (DNI).
const NationalIDLength = 8

// Customer описывает клиента. Code и NationalID уникальны среди всех клиентов.
type Customer struct {
	ID         int64
	Code       string
	Name       string
	NationalID string
}

// CustomerSummary: краткое представление клиента в ответах по заказам.
type CustomerSummary struct {
	Code       string
	Name       string
	NationalID string
}

// Summary возвращает краткое представление клиента.
func (c Customer) Summary() CustomerSummary {
	return CustomerSummary{Code: c.Code, Name: c.Name, NationalID: c.NationalID}
}
