package toolsync

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Default D-Bus coordinates of the whiteboard tool-state owner.
const (
	DefaultBusName   = "org.inkboard.Board"
	DefaultInterface = "org.inkboard.Board.Tools"
	DefaultPath      = dbus.ObjectPath("/org/inkboard/Board")
)

// DBusSource polls the tool-state owner when it lives in another process.
// It reads the Tool and ReadOnly properties of the owner's interface.
type DBusSource struct {
	conn  *dbus.Conn
	dest  string
	path  dbus.ObjectPath
	iface string
}

// NewDBusSource creates a source on an existing connection.
func NewDBusSource(conn *dbus.Conn, dest string, path dbus.ObjectPath, iface string) *DBusSource {
	if dest == "" {
		dest = DefaultBusName
	}
	if path == "" {
		path = DefaultPath
	}
	if iface == "" {
		iface = DefaultInterface
	}
	return &DBusSource{conn: conn, dest: dest, path: path, iface: iface}
}

// DialSessionSource connects to the session bus.
func DialSessionSource(dest string, path dbus.ObjectPath, iface string) (*DBusSource, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return NewDBusSource(conn, dest, path, iface), nil
}

// Poll implements Source.
func (s *DBusSource) Poll(ctx context.Context) (State, error) {
	if s.conn == nil {
		return State{}, fmt.Errorf("toolsync: no bus connection")
	}
	var props map[string]dbus.Variant
	obj := s.conn.Object(s.dest, s.path)
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.GetAll", 0, s.iface)
	if err := call.Store(&props); err != nil {
		return State{}, fmt.Errorf("get tool properties: %w", err)
	}
	return stateFromProps(props)
}

func stateFromProps(props map[string]dbus.Variant) (State, error) {
	var st State

	v, ok := props["Tool"]
	if !ok {
		return st, fmt.Errorf("tool property missing")
	}
	name, ok := v.Value().(string)
	if !ok {
		return st, fmt.Errorf("tool property has type %s", v.Signature())
	}
	tool, err := ParseTool(name)
	if err != nil {
		return st, err
	}
	st.Tool = tool

	if v, ok := props["ReadOnly"]; ok {
		if ro, ok := v.Value().(bool); ok {
			st.ReadOnly = ro
		}
	}
	return st, nil
}
