package sensor

import (
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

const (
	bluezBusName         = "org.bluez"
	bluezDeviceInterface = "org.bluez.Device1"
	objectManagerMethod  = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

// Device is a Bluetooth device known to BlueZ.
type Device struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	Paired     bool   `json:"paired"`
	Connected  bool   `json:"connected"`
	SerialPort bool   `json:"serialPort"` // advertises the SPP service
}

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// ListDevices asks BlueZ on the system bus for every device it knows about.
// Devices offering the serial port service come first.
func ListDevices() ([]Device, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to system bus")
	}
	defer conn.Close()

	objects := managedObjects{}
	obj := conn.Object(bluezBusName, "/")
	if err := obj.Call(objectManagerMethod, 0).Store(&objects); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get managed objects from bluez")
	}

	return devicesFromObjects(objects), nil
}

func devicesFromObjects(objects managedObjects) []Device {
	var devices []Device
	for _, interfaces := range objects {
		props, ok := interfaces[bluezDeviceInterface]
		if !ok {
			continue
		}

		d := Device{
			Address:   variantAs[string](props["Address"]),
			Name:      variantAs[string](props["Alias"]),
			Paired:    variantAs[bool](props["Paired"]),
			Connected: variantAs[bool](props["Connected"]),
		}
		if d.Name == "" {
			d.Name = variantAs[string](props["Name"])
		}
		for _, s := range variantAs[[]string](props["UUIDs"]) {
			if u, err := uuid.Parse(s); err == nil && u == SerialPortUUID {
				d.SerialPort = true
				break
			}
		}
		if d.Address == "" {
			continue
		}
		devices = append(devices, d)
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].SerialPort != devices[j].SerialPort {
			return devices[i].SerialPort
		}
		return strings.Compare(devices[i].Address, devices[j].Address) < 0
	})
	return devices
}

func variantAs[T any](v dbus.Variant) T {
	t, _ := v.Value().(T)
	return t
}
