/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dlna

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/telemetry"
)

const (
	ssdpAddress   = "239.255.255.250:1900"
	searchTarget  = "urn:schemas-upnp-org:service:AVTransport:1"
	ssdpMX        = 2
	responseLimit = 2048
)

// DiscoveredLocation is one SSDP search response, before the device
// description has been fetched.
type DiscoveredLocation struct {
	Location string
	USN      string
}

// Discover multicasts an SSDP M-SEARCH for AVTransport devices and
// collects unicast responses until timeout or ctx expires. Responses
// are deduplicated by location.
func Discover(ctx context.Context, timeout time.Duration, logger zerolog.Logger) ([]DiscoveredLocation, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		telemetry.DiscoveryCyclesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("open ssdp socket: %w", err)
	}
	defer conn.Close()

	dest, err := net.ResolveUDPAddr("udp4", ssdpAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve ssdp address: %w", err)
	}

	request := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: " + ssdpAddress,
		`MAN: "ssdp:discover"`,
		fmt.Sprintf("MX: %d", ssdpMX),
		"ST: " + searchTarget,
		"", "",
	}, "\r\n")

	if _, err := conn.WriteTo([]byte(request), dest); err != nil {
		telemetry.DiscoveryCyclesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("send m-search: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetReadDeadline(deadline)

	seen := make(map[string]bool)
	var found []DiscoveredLocation
	buf := make([]byte, responseLimit)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}
		loc, usn, ok := parseSearchResponse(string(buf[:n]))
		if !ok || seen[loc] {
			continue
		}
		seen[loc] = true
		found = append(found, DiscoveredLocation{Location: loc, USN: usn})
		logger.Debug().Str("location", loc).Stringer("from", from).Msg("ssdp response")
	}

	telemetry.DiscoveryCyclesTotal.WithLabelValues("ok").Inc()
	return found, nil
}

// parseSearchResponse extracts LOCATION and USN from a unicast SSDP
// response. Responses without a location are dropped.
func parseSearchResponse(raw string) (location, usn string, ok bool) {
	reader := bufio.NewReader(strings.NewReader(raw))
	statusLine, err := reader.ReadString('\n')
	if err != nil || !strings.Contains(statusLine, "200") {
		return "", "", false
	}

	tp := make(http.Header)
	for {
		line, err := reader.ReadString('\n')
		if err != nil || strings.TrimSpace(line) == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		tp.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	location = tp.Get("Location")
	if location == "" {
		return "", "", false
	}
	return location, tp.Get("USN"), true
}
