// Package site serves the embedded demo page that drives the wasm build of
// the page library.
package site

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
)

// Built wasm artifacts served next to the embedded page.
const (
	wasmFile     = "lib.wasm"
	wasmExecFile = "wasm_exec.js"
)

// Option configures Register.
type Option func(*options)

type options struct {
	assetsDir string
}

// WithAssetsDir serves lib.wasm and wasm_exec.js from dir. Without it
// those paths return 404 and the page reports the library as missing.
func WithAssetsDir(dir string) Option {
	return func(o *options) {
		o.assetsDir = dir
	}
}

// Register attaches the demo page routes to mux.
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	for _, name := range []string{wasmFile, wasmExecFile} {
		mux.Handle("/"+name, assetHandler(o.assetsDir, name))
	}

	// Serve the embedded page at root /
	mux.Handle("/", http.FileServer(FS()))
}

func assetHandler(dir, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == "" {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		if name == wasmFile {
			w.Header().Set("Content-Type", "application/wasm")
		}
		http.ServeFile(w, r, path)
	}
}
