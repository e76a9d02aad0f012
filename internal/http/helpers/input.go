package helpers

import (
	"net/http"
	"net/url"
)

// FormInput expone query string y body form-urlencoded como providers.Input.
// En POST los valores del body tienen prioridad sobre los de la query.
type FormInput url.Values

// ReadInput parsea el request y retorna sus parámetros. Un body inválido
// (o mayor a 1MB) deja solo los valores de la query.
func ReadInput(w http.ResponseWriter, r *http.Request) FormInput {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return FormInput(r.URL.Query())
	}
	return FormInput(r.Form)
}

func (in FormInput) Get(key string) string {
	return url.Values(in).Get(key)
}
