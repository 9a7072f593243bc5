// Package service contains the business rules of the FoodShare API.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)       → decodes requests, writes JSON
//	Service (this)       → validates, authorizes, drives the pickup lifecycle
//	Repository (storage) → reads/writes rows, one atomic mutation per call
//
// Services take repository interfaces, never *sqlstore.DB, and know nothing
// about HTTP. They return apperror values; the handler package decides the
// status code. The same services back the HTTP server and the `admin create`
// command.
//
// Authorization always goes through package policy and status moves through
// package lifecycle, so each rule exists in exactly one place.
package service
