//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/okian/pagekit/pkg/dom"
	"github.com/okian/pagekit/pkg/persist"
)

// query implements Q (first match or null) and QQ (array of matches) on
// top of querySelector and querySelectorAll.
func query(all bool) func(js.Value, []js.Value) any {
	return func(_ js.Value, args []js.Value) (result any) {
		defer func() {
			if r := recover(); r != nil {
				result = jsError(fmt.Errorf("%v", r))
			}
		}()

		root, sel, err := resolve(args)
		if err != nil {
			return jsError(err)
		}
		if !all {
			return root.Call("querySelector", sel)
		}
		return js.Global().Get("Array").Call("from", root.Call("querySelectorAll", sel))
	}
}

// resolve picks the search root and selector. A truthy second argument
// scopes the search to the first one; otherwise the first argument, coerced
// to a string, is searched from document.body.
func resolve(args []js.Value) (js.Value, string, error) {
	first := js.Undefined()
	if len(args) > 0 {
		first = args[0]
	}
	if len(args) > 1 && args[1].Truthy() {
		root, sel, _, err := dom.ResolveArgs[js.Value](first, jsString(args[1]))
		if err != nil {
			return js.Value{}, "", err
		}
		if root.IsNull() || root.IsUndefined() {
			return js.Value{}, "", dom.ErrNilRoot
		}
		return root, sel, nil
	}

	doc := js.Global().Get("document")
	if doc.IsNull() || doc.IsUndefined() {
		return js.Value{}, "", dom.ErrNoBody
	}
	body := doc.Get("body")
	if body.IsNull() || body.IsUndefined() {
		return js.Value{}, "", dom.ErrNoBody
	}
	return body, jsString(first), nil
}

// payloadJSON returns the JSON text sent for the optional payload argument.
// A missing argument is {}. Anything else goes through JSON.stringify so
// key order and number literals match what the page wrote.
func payloadJSON(args []js.Value) (raw string, err error) {
	if len(args) == 0 || args[0].IsUndefined() {
		return "{}", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("payload is not serializable: %v", r)
		}
	}()
	out := js.Global().Get("JSON").Call("stringify", args[0])
	if out.IsUndefined() {
		return "undefined", nil
	}
	return out.String(), nil
}

// call runs one persistence request off the JS event loop and settles the
// returned Promise with its data member.
func call(client *persist.Client, method string, args []js.Value) js.Value {
	raw, err := payloadJSON(args)
	if err != nil {
		return rejected(err)
	}
	return newPromise(func(resolve, reject js.Value) {
		go func() {
			resp, err := client.PersistJSON(context.Background(), method, raw)
			if err != nil {
				reject.Invoke(jsError(err))
				return
			}
			resolve.Invoke(toJS(resp))
		}()
	})
}

// toJS maps an absent data member to undefined and parses everything else,
// null included, from the server's own text.
func toJS(resp persist.Response) js.Value {
	if !resp.Found() {
		return js.Undefined()
	}
	return js.Global().Get("JSON").Call("parse", string(resp.Raw))
}

func jsString(v js.Value) string {
	return js.Global().Call("String", v).String()
}

func jsError(err error) js.Value {
	return js.Global().Get("Error").New(err.Error())
}

func newPromise(executor func(resolve, reject js.Value)) js.Value {
	var fn js.Func
	fn = js.FuncOf(func(_ js.Value, args []js.Value) any {
		defer fn.Release()
		executor(args[0], args[1])
		return nil
	})
	return js.Global().Get("Promise").New(fn)
}

func rejected(err error) js.Value {
	return js.Global().Get("Promise").Call("reject", jsError(err))
}

// throwing wraps fn so that an Error it returns is thrown to the caller.
func throwing(fn js.Func) js.Value {
	wrap := js.Global().Get("Function").New("f",
		"return function(...a){const r=f(...a);if(r instanceof Error)throw r;return r;}")
	return wrap.Invoke(fn)
}
