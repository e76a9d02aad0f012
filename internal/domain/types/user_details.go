package types

// UserDetails es el perfil normalizado que produce un provider en cada
// intento de autenticación. No se persiste tal cual: se mapea a una identidad.
type UserDetails struct {
	UserID    string // ID del usuario en el provider
	Email     string
	Nickname  string
	FirstName string
	LastName  string
	ImageURL  string

	AccessToken TokenBlob
	Raw         map[string]any // payload original del provider
}
