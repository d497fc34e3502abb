//go:build !tray

package tray

import (
	"context"
	"fmt"
	"os"
)

func Run(_ context.Context, _ Options) int {
	fmt.Fprintln(os.Stderr, "usagemon: tray mode not available in this build")
	fmt.Fprintln(os.Stderr, "rebuild with: go build -tags tray ./cmd/usagemon")
	return 1
}
