// Package postgres implements the store interfaces against PostgreSQL. It
// owns the one place where the typed predicate list becomes query text, all
// row-to-entity decoding, and the mapping from driver errors onto the store
// error taxonomy.
package postgres
