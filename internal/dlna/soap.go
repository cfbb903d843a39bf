/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dlna implements the UPnP AV protocol surface: SOAP envelopes
// for AVTransport and ContentDirectory, DIDL-Lite payloads and SSDP
// discovery.
package dlna

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_cast/internal/telemetry"
)

const (
	userAgent = "Linux/6.1 UPnP/1.0 skald_cast/0.3"
	accept    = "text/html, image/gif, image/jpeg, *; q=.2, */*; q=.2"
)

// Arg is a single SOAP action argument. When Raw is set the value is
// inserted verbatim and must already be XML-escaped; this is how the
// pre-escaped DIDL-Lite blob reaches CurrentURIMetaData without being
// escaped twice.
type Arg struct {
	Name  string
	Value string
	Raw   bool
}

// SOAPClient sends UPnP SOAP action requests.
type SOAPClient struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewSOAPClient creates a SOAP client with a bounded request timeout.
func NewSOAPClient(timeout time.Duration, logger zerolog.Logger) *SOAPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SOAPClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Invoke sends one SOAP action to controlURL and returns the raw
// response envelope. service is the bare UPnP service name, e.g.
// "AVTransport".
func (c *SOAPClient) Invoke(ctx context.Context, controlURL, service, action string, args []Arg) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "dlna", service+"."+action)
	defer span.End()

	serviceURN := fmt.Sprintf("urn:schemas-upnp-org:service:%s:1", service)

	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	body.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	body.WriteString(`<s:Body>`)
	fmt.Fprintf(&body, `<u:%s xmlns:u="%s">`, action, serviceURN)
	for _, arg := range args {
		value := arg.Value
		if !arg.Raw {
			value = Escape(value)
		}
		fmt.Fprintf(&body, "<%s>%s</%s>", arg.Name, value, arg.Name)
	}
	fmt.Fprintf(&body, `</u:%s>`, action)
	body.WriteString(`</s:Body></s:Envelope>`)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("Soapaction", `"`+serviceURN+"#"+action+`"`)
	req.Header.Set("Connection", "close")
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.SOAPRequestsTotal.WithLabelValues(service, action, "transport_error").Inc()
		return "", fmt.Errorf("send %s to %s: %w", action, controlURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.SOAPRequestsTotal.WithLabelValues(service, action, "read_error").Inc()
		return "", fmt.Errorf("read %s response: %w", action, err)
	}

	if resp.StatusCode != http.StatusOK {
		telemetry.SOAPRequestsTotal.WithLabelValues(service, action, "soap_fault").Inc()
		return "", fmt.Errorf("%s failed with status %d: %s", action, resp.StatusCode, truncate(string(respBody), 200))
	}

	telemetry.SOAPRequestsTotal.WithLabelValues(service, action, "ok").Inc()
	return string(respBody), nil
}

// ExtractValue returns the character data of the first element with the
// given local name, with XML entities already decoded. The empty string
// is returned when the element is absent or empty.
func ExtractValue(envelope, localName string) string {
	decoder := xml.NewDecoder(strings.NewReader(envelope))
	for {
		token, err := decoder.Token()
		if err != nil {
			return ""
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != localName {
			continue
		}
		var value string
		for {
			inner, err := decoder.Token()
			if err != nil {
				return value
			}
			switch t := inner.(type) {
			case xml.CharData:
				value += string(t)
			case xml.EndElement:
				return value
			}
		}
	}
}

// Escape escapes text for insertion into an XML document.
func Escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
