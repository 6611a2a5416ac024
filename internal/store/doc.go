// Package store defines the persistence interfaces of the task service, the
// filter/sort/pagination model, and the typed predicate list that store
// implementations render into parameterized queries.
package store
