// Package domain contains the core entities of the task service: tasks,
// categories, partial updates, and aggregate views, together with their
// validation rules. It has no dependencies on storage or transport.
package domain
