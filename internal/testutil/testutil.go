package testutil

import (
	"net"
	"time"
)

func MustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

// Ask OS for a free tcp port
func RandomPort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close() // nolint:errcheck

	return l.Addr().(*net.TCPAddr).Port, nil
}
