//go:build !(js && wasm)

package client

import (
	"fmt"
	"runtime"

	"github.com/zapdos26/client-node/internal/constants"
)

func buildUserAgent() string {
	return fmt.Sprintf("%s/%s (Go; %s %s/%s)",
		constants.ClientName, constants.ClientVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
