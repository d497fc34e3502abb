//go:build !linux && !darwin

package credentials

import (
	"fmt"
	"runtime"
)

func platformChromeKey() func(chromeStore, string) ([]byte, error) {
	return func(chromeStore, string) ([]byte, error) {
		return nil, fmt.Errorf("encrypted cookies not supported on %s", runtime.GOOS)
	}
}
