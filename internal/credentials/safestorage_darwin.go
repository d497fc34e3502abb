//go:build darwin

package credentials

import (
	"errors"
	"sync"
)

const darwinIterations = 1003

func platformChromeKey() func(chromeStore, string) ([]byte, error) {
	var (
		mu    sync.Mutex
		cache = map[string][]byte{}
	)
	return func(store chromeStore, version string) ([]byte, error) {
		if version != "v10" {
			return nil, errors.New("only v10 cookies are used on macOS")
		}
		mu.Lock()
		defer mu.Unlock()
		if key, ok := cache[store.app]; ok {
			return key, nil
		}
		password, err := readKeychain(store.app + " Safe Storage")
		if err != nil {
			return nil, err
		}
		key := deriveChromeKey(password, darwinIterations)
		cache[store.app] = key
		return key, nil
	}
}
