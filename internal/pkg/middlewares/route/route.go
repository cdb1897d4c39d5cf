package route

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Template - шаблон mux-роута ("/session/{id}"), чтобы метки метрик не разрастались по id.
// Без роута возвращается сырой путь.
func Template(r *http.Request) string {
	current := mux.CurrentRoute(r)
	if current == nil {
		return r.URL.Path
	}
	template, err := current.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	return template
}
