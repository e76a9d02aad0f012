// Package types define tipos de dominio compartidos entre paquetes.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TokenBlob guarda el material de token devuelto por un provider.
//
// Cada provider entrega campos distintos (access_token, refresh_token,
// expires_in, oauth_token_secret, ...), por eso no es un struct fijo.
// Las claves conservan el orden de inserción, incluso en JSON.
//
// Es un valor: Set copia el estado antes de escribir, así una copia del blob
// nunca ve los cambios de otra.
type TokenBlob struct {
	keys   []string
	values map[string]any
}

// NewTokenBlob crea un blob vacío.
func NewTokenBlob() TokenBlob {
	return TokenBlob{values: map[string]any{}}
}

// TokenBlobFrom crea un blob a partir de pares clave/valor alternados.
// Panics si la cantidad de argumentos es impar.
func TokenBlobFrom(kv ...any) TokenBlob {
	if len(kv)%2 != 0 {
		panic("types: TokenBlobFrom requires key/value pairs")
	}
	b := NewTokenBlob()
	for i := 0; i < len(kv); i += 2 {
		b.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return b
}

// Set agrega o reemplaza una clave. Una clave nueva va al final.
func (b *TokenBlob) Set(key string, value any) {
	values := make(map[string]any, len(b.values)+1)
	for k, v := range b.values {
		values[k] = v
	}
	if _, ok := values[key]; !ok {
		// capacidad acotada: append nunca escribe sobre el array de otra copia
		b.keys = append(b.keys[:len(b.keys):len(b.keys)], key)
	}
	values[key] = value
	b.values = values
}

// Get retorna el valor crudo de una clave.
func (b TokenBlob) Get(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

// String retorna el valor como string ("" si no existe o es nil).
func (b TokenBlob) String(key string) string {
	v, ok := b.values[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Int64 interpreta el valor como entero. ok es false si no existe o no es numérico.
func (b TokenBlob) Int64(key string) (int64, bool) {
	s := b.String(key)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// Has indica si la clave existe con un valor no vacío.
func (b TokenBlob) Has(key string) bool {
	return b.String(key) != ""
}

// Keys retorna las claves en orden de inserción.
func (b TokenBlob) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Clone retorna una copia independiente (shallow sobre los valores).
func (b TokenBlob) Clone() TokenBlob {
	c := TokenBlob{keys: make([]string, len(b.keys)), values: make(map[string]any, len(b.keys))}
	copy(c.keys, b.keys)
	for _, k := range b.keys {
		c.values[k] = b.values[k]
	}
	return c
}

// Merge retorna un blob nuevo con las claves de b y luego las de update.
// Las claves de update pisan a las de b; las que update no trae se conservan.
func (b TokenBlob) Merge(update TokenBlob) TokenBlob {
	out := b.Clone()
	for _, k := range update.keys {
		out.Set(k, update.values[k])
	}
	return out
}

// MarshalJSON serializa como objeto respetando el orden de las claves.
func (b TokenBlob) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range b.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(b.values[k])
		if err != nil {
			return nil, fmt.Errorf("types: token blob key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON lee un objeto JSON conservando el orden de las claves.
// Los números quedan como json.Number. null deja el blob vacío.
func (b *TokenBlob) UnmarshalJSON(data []byte) error {
	*b = NewTokenBlob()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("types: token blob must be a JSON object")
	}
	out := NewTokenBlob()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("types: token blob key is not a string")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		if _, dup := out.values[key]; !dup {
			out.keys = append(out.keys, key)
		}
		out.values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}
