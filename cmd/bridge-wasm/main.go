// Command bridge-wasm links the guest exports into a wasip1 reactor module:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o bridge.wasm ./cmd/bridge-wasm
//
// On other targets the exports are compiled out and the binary does nothing.
package main

import (
	_ "github.com/woxQAQ/native-bridge/api/wasm"
)

func main() {}
