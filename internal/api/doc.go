// Package api provides HTTP handlers for the API. Handlers translate between
// HTTP and the service layer; they hold no business logic and never expose
// raw internal errors to clients.
package api
