package sitehttp

import "strconv"

// PageSize é o tamanho das páginas de listagem
const PageSize = 10

// Page é uma página de listagem
type Page[T any] struct {
	Items       []T  `json:"items"`
	Number      int  `json:"page"`
	NumPages    int  `json:"num_pages"`
	Count       int  `json:"count"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// pageNumber escolhe a página pedida: inválida vira 1, além do fim vira a última
func pageNumber(raw string, count, size int) (number, numPages int) {
	numPages = (count + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1, numPages
	}
	if n > numPages {
		return numPages, numPages
	}
	return n, numPages
}
