package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session es la vista de un Client acotada a un session id.
// Las keys quedan como "sess:<id>:<key>".
type Session struct {
	client Client
	id     string
	ttl    time.Duration

	onRegenerate func(id string)
}

// Scoped retorna la sesión id sobre c. ttl aplica a cada Put (0 = sin expiración).
func Scoped(c Client, id string, ttl time.Duration) *Session {
	return &Session{client: c, id: id, ttl: ttl}
}

// ID retorna el session id.
func (s *Session) ID() string { return s.id }

func (s *Session) key(k string) string { return "sess:" + s.id + ":" + k }

// Put guarda value bajo key.
func (s *Session) Put(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl)
}

// Get retorna el valor y si existía.
func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key))
	if IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Forget elimina key.
func (s *Session) Forget(ctx context.Context, key string) error {
	return s.client.Delete(ctx, s.key(key))
}

// Pull retorna y elimina key en un solo paso.
func (s *Session) Pull(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Pull(ctx, s.key(key))
	if IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// OnRegenerate registra fn para avisar el id nuevo tras Regenerate
// (el middleware re-emite la cookie).
func (s *Session) OnRegenerate(fn func(id string)) { s.onRegenerate = fn }

// Regenerate pasa la sesión a un id nuevo. Las keys en keep se mueven al id
// nuevo; el resto queda en el id viejo hasta que expire.
func (s *Session) Regenerate(ctx context.Context, keep ...string) error {
	next := Scoped(s.client, uuid.NewString(), s.ttl)
	for _, k := range keep {
		v, ok, err := s.Pull(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := next.Put(ctx, k, v); err != nil {
			return err
		}
	}
	s.id = next.id
	if s.onRegenerate != nil {
		s.onRegenerate(s.id)
	}
	return nil
}
