// Package repository define los contratos de persistencia del dominio.
//
// Las interfaces son independientes del almacenamiento. Las implementaciones
// concretas viven en internal/store/memory (tests/dev) e internal/store/pg.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los filtros vacíos se ignoran campo por campo
//   - Errores de dominio están en errors.go
package repository
