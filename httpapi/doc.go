/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpapi exposes the record lookup service over HTTP.
//
// Routes (mounted both under /api/recordcache/v1 and at the root):
//
//	GET    /users/{id}     record by id, {"source":"cache"|"db","user":{...}}
//	POST   /users          create record, 201 {"message":"User created","user":{...}}
//	GET    /users          all records, {"users":[...],"count":N}
//	DELETE /cache          drop cached records, {"message":"Cache cleared"}
//	GET    /cache-status   cache, in-flight, dispatcher and response time statistics
//	GET    /health         {"status":"ok"}
//
// Every route except /health goes through the per-caller rate limiter.
// Rejected calls get 429 with the Retry-After header.
package httpapi
