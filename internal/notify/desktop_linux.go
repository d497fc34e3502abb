//go:build linux

package notify

import (
	"fmt"
	"os/exec"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
)

type desktop struct {
	appName string
	logger  *zap.Logger
}

// NewDesktop returns a notifier using the freedesktop notification service,
// falling back to notify-send.
func NewDesktop(appName string, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &desktop{appName: appName, logger: logger}
}

func (d *desktop) Notify(title, body string, urgency Urgency) error {
	err := d.dbus(title, body, urgency)
	if err == nil {
		return nil
	}
	d.logger.Debug("dbus notification failed, trying notify-send", zap.Error(err))
	if err := exec.Command("notify-send", "-a", d.appName, "-u", string(urgency), title, body).Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

func (d *desktop) dbus(title, body string, urgency Urgency) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return err
	}
	level := byte(1)
	if urgency == UrgencyCritical {
		level = 2
	}
	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(level)}
	obj := conn.Object(notificationsDest, notificationsPath)
	call := obj.Call(notificationsDest+".Notify", 0,
		d.appName, uint32(0), "", title, body, []string{}, hints, int32(-1))
	return call.Err
}
