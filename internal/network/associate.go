package network

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// Associator re-joins the microcontroller's access point. Implementations are
// best-effort: failures are logged, never returned.
type Associator interface {
	Reassociate(ctx context.Context)
}

// AccessPoint identifies the WiFi network to join.
type AccessPoint struct {
	Iface    string
	SSID     string
	Password string
}

// NmcliAssociator joins the access point with iwconfig and nmcli.
type NmcliAssociator struct {
	ap     AccessPoint
	runner Runner
	log    *logrus.Entry
}

// NewNmcliAssociator creates an associator that shells out to the NetworkManager CLI.
func NewNmcliAssociator(ap AccessPoint, runner Runner, log *logrus.Entry) *NmcliAssociator {
	if runner == nil {
		runner = NewExecRunner(DefaultCommandTimeout)
	}
	return &NmcliAssociator{ap: ap, runner: runner, log: log}
}

// Commands returns the command lines run by Reassociate, in order.
func (a *NmcliAssociator) Commands() [][]string {
	connect := []string{"nmcli", "device", "wifi", "connect", a.ap.SSID}
	if a.ap.Password != "" {
		connect = append(connect, "password", a.ap.Password)
	}
	connect = append(connect, "ifname", a.ap.Iface)

	return [][]string{
		// Power saving makes the AP link drop while idle.
		{"iwconfig", a.ap.Iface, "power", "off"},
		connect,
	}
}

// Reassociate runs each command; a failing command does not stop the next one.
func (a *NmcliAssociator) Reassociate(ctx context.Context) {
	for _, c := range a.Commands() {
		if _, err := a.runner.Run(ctx, c[0], c[1:]...); err != nil {
			a.log.WithError(err).WithField("command", c[0]).Warn("association command failed")
		}
	}
}

const (
	nmBusName    = "org.freedesktop.NetworkManager"
	nmObjectPath = "/org/freedesktop/NetworkManager"
	nmIface      = "org.freedesktop.NetworkManager"
)

// DBusAssociator asks NetworkManager over the system bus to join the access point.
type DBusAssociator struct {
	ap  AccessPoint
	log *logrus.Entry
}

// NewDBusAssociator creates a NetworkManager D-Bus associator.
func NewDBusAssociator(ap AccessPoint, log *logrus.Entry) *DBusAssociator {
	return &DBusAssociator{ap: ap, log: log}
}

// Settings returns the connection settings passed to AddAndActivateConnection.
func (a *DBusAssociator) Settings() map[string]map[string]dbus.Variant {
	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":   dbus.MakeVariant(a.ap.SSID),
			"type": dbus.MakeVariant("802-11-wireless"),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(a.ap.SSID)),
			"mode": dbus.MakeVariant("infrastructure"),
			// 2 == NM_SETTING_WIRELESS_POWERSAVE_DISABLE
			"powersave": dbus.MakeVariant(uint32(2)),
		},
	}
	if a.ap.Password != "" {
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(a.ap.Password),
		}
	}
	return settings
}

// Reassociate activates a connection to the access point on the configured interface.
func (a *DBusAssociator) Reassociate(ctx context.Context) {
	if err := a.activate(ctx); err != nil {
		a.log.WithError(err).Warn("networkmanager association failed")
	}
}

func (a *DBusAssociator) activate(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	nm := conn.Object(nmBusName, nmObjectPath)

	var device dbus.ObjectPath
	if err := nm.CallWithContext(ctx, nmIface+".GetDeviceByIpIface", 0, a.ap.Iface).Store(&device); err != nil {
		return fmt.Errorf("find device %s: %w", a.ap.Iface, err)
	}

	var settingsPath, active dbus.ObjectPath
	err = nm.CallWithContext(ctx, nmIface+".AddAndActivateConnection", 0,
		a.Settings(), device, dbus.ObjectPath("/")).Store(&settingsPath, &active)
	if err != nil {
		return fmt.Errorf("activate %s: %w", a.ap.SSID, err)
	}

	a.log.WithField("active", string(active)).Info("association requested")
	return nil
}
