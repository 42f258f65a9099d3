//go:build js && wasm

// Command libwasm exports the page library to the browser as window.lib.
//
//	GOOS=js GOARCH=wasm go build -o lib.wasm ./cmd/libwasm
package main

import (
	"log/slog"
	"os"
	"syscall/js"

	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/persist"
)

func main() {
	// net/http uses the browser's fetch under js/wasm, so the client needs
	// nothing but the page origin. wasm_exec.js prints stderr to the console.
	client := persist.New(
		js.Global().Get("location").Get("origin").String(),
		persist.WithLogger(logger.New(os.Stderr, slog.LevelDebug)),
	)

	lib := js.Global().Get("Object").New()
	lib.Set("Q", throwing(js.FuncOf(query(false))))
	lib.Set("QQ", throwing(js.FuncOf(query(true))))
	lib.Set("persist", js.FuncOf(func(_ js.Value, args []js.Value) any {
		method := "undefined"
		if len(args) > 0 {
			method = jsString(args[0])
			args = args[1:]
		}
		return call(client, method, args)
	}))
	lib.Set("get", js.FuncOf(func(_ js.Value, args []js.Value) any {
		return call(client, persist.MethodGet, args)
	}))
	lib.Set("set", js.FuncOf(func(_ js.Value, args []js.Value) any {
		return call(client, persist.MethodSet, args)
	}))
	js.Global().Set("lib", lib)

	<-make(chan struct{})
}
