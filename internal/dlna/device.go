/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dlna

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Description is a parsed UPnP device description document.
type Description struct {
	FriendlyName string
	UDN          string
	Location     string
	// controlURLs maps the bare service name (e.g. "AVTransport") to
	// its absolute control URL.
	controlURLs map[string]string
}

type deviceDescription struct {
	Device struct {
		FriendlyName string `xml:"friendlyName"`
		UDN          string `xml:"UDN"`
		ServiceList  struct {
			Services []struct {
				ServiceType string `xml:"serviceType"`
				ControlURL  string `xml:"controlURL"`
			} `xml:"service"`
		} `xml:"serviceList"`
		DeviceList struct {
			Devices []deviceDescriptionDevice `xml:"device"`
		} `xml:"deviceList"`
	} `xml:"device"`
}

type deviceDescriptionDevice struct {
	ServiceList struct {
		Services []struct {
			ServiceType string `xml:"serviceType"`
			ControlURL  string `xml:"controlURL"`
		} `xml:"service"`
	} `xml:"serviceList"`
}

// FetchDescription downloads and parses the device description at
// location, resolving control URLs against it.
func FetchDescription(ctx context.Context, location string) (*Description, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create description request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch description %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch description %s: status %d", location, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read description %s: %w", location, err)
	}

	var doc deviceDescription
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse description %s: %w", location, err)
	}

	base, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse location %s: %w", location, err)
	}

	desc := &Description{
		FriendlyName: strings.TrimSpace(doc.Device.FriendlyName),
		UDN:          strings.TrimSpace(doc.Device.UDN),
		Location:     location,
		controlURLs:  make(map[string]string),
	}

	addService := func(serviceType, controlURL string) {
		name := serviceName(serviceType)
		if name == "" || desc.controlURLs[name] != "" {
			return
		}
		ref, err := url.Parse(controlURL)
		if err != nil {
			return
		}
		desc.controlURLs[name] = base.ResolveReference(ref).String()
	}

	for _, svc := range doc.Device.ServiceList.Services {
		addService(svc.ServiceType, svc.ControlURL)
	}
	for _, sub := range doc.Device.DeviceList.Devices {
		for _, svc := range sub.ServiceList.Services {
			addService(svc.ServiceType, svc.ControlURL)
		}
	}

	return desc, nil
}

// serviceName reduces "urn:schemas-upnp-org:service:AVTransport:1" to
// "AVTransport".
func serviceName(serviceType string) string {
	parts := strings.Split(serviceType, ":")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// ControlURL returns the absolute control URL for a service, or ""
// when the device does not offer it.
func (d *Description) ControlURL(service string) string {
	return d.controlURLs[service]
}

// HasAVTransport reports whether the device can act as a renderer.
func (d *Description) HasAVTransport() bool {
	return d.controlURLs["AVTransport"] != ""
}

// Capabilities probes ConnectionManager GetProtocolInfo and reports
// which media types the device sinks. Devices without a
// ConnectionManager report no capabilities rather than an error.
func (d *Description) Capabilities(ctx context.Context, soap *SOAPClient) ([]string, error) {
	controlURL := d.controlURLs["ConnectionManager"]
	if controlURL == "" {
		return nil, nil
	}

	env, err := soap.Invoke(ctx, controlURL, "ConnectionManager", "GetProtocolInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("get protocol info: %w", err)
	}

	sink := ExtractValue(env, "Sink")
	var caps []string
	for _, kind := range []string{"audio", "video", "image"} {
		if strings.Contains(sink, kind+"/") {
			caps = append(caps, kind)
		}
	}
	return caps, nil
}
