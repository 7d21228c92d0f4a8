package shared

import (
	"fmt"
	"regexp"
	"strconv"
)

var addrRe = regexp.MustCompile(`^(?:(wss?)://)?(\[[0-9a-fA-F:.]+\]|[^:/\[\]]*):(\d+)(/.*)?$`)

// ParseAddr parses a relay address. It accepts "host:port" as well as
// "ws://host:port/path" and "wss://host:port/path". An empty host is
// replaced by 127.0.0.1. The result is usable with ws.Dial.
func ParseAddr(s string) (string, error) {
	matches := addrRe.FindStringSubmatch(s)
	if matches == nil {
		return "", parsingError(s)
	}

	scheme, host, portStr, path := matches[1], matches[2], matches[3], matches[4]

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", parsingError(s)
	}

	if host == "" {
		host = "127.0.0.1"
	}
	if scheme == "" {
		scheme = "ws"
	}
	if path == "" {
		path = "/"
	}

	return fmt.Sprintf("%s://%s:%d%s", scheme, host, port, path), nil
}

func parsingError(s string) error {
	return fmt.Errorf("parsing %q: format should be 'host:port' or 'ws://host:port/path'", s)
}
