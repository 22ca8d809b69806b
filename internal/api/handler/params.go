package handler

import (
	"net/http"
	"strconv"
)

// queryInt reads a positive integer query parameter; anything else yields 0 so the
// service applies its default.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
