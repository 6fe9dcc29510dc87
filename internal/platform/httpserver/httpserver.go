// Package httpserver builds the HTTP server for the mock verification
// gateway with timeouts suited to its traffic.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the given address and handler. Write and idle
// timeouts stay generous because NIC verification uploads are multi-megabyte
// and the verification handlers run long; per-request deadlines are the
// router's timeout middleware's job.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
