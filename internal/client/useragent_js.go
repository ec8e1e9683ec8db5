//go:build js && wasm

package client

import (
	"syscall/js"

	"github.com/zapdos26/client-node/internal/constants"
)

// buildUserAgent extends the browser's own user agent when one is available.
func buildUserAgent() string {
	product := constants.ClientName + "/" + constants.ClientVersion

	navigator := js.Global().Get("navigator")
	if navigator.IsUndefined() || navigator.IsNull() {
		return product + " (Go; js/wasm)"
	}

	return navigator.Get("userAgent").String() + " " + product
}
