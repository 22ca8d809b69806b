package model

// Page describes a pagination request after defaults have been applied.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Offset() int {
	offset := (p.Number - 1) * p.Limit
	if offset < 0 {
		return 0
	}
	return offset
}

// TotalPages is ceil(total/limit).
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}
