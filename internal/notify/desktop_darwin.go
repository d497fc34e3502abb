//go:build darwin

package notify

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

type desktop struct{}

func NewDesktop(_ string, _ *zap.Logger) Notifier {
	return desktop{}
}

func (desktop) Notify(title, body string, _ Urgency) error {
	script := fmt.Sprintf(`display notification %q with title %q`, body, title)
	return exec.Command("osascript", "-e", script).Run()
}
