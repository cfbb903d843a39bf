/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dlna

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Item is one media object from a ContentDirectory DIDL-Lite result.
// RawRes keeps the original <res> element verbatim, minus namespace
// prefixes, so renderer-specific attributes like protocolInfo and
// duration survive the round trip into SetAVTransportURI metadata.
type Item struct {
	Title   string
	Creator string
	Author  string
	Actor   string
	Artist  string
	Class   string
	URL     string
	RawRes  string
}

// ParseDIDL extracts all items from a DIDL-Lite document. Unknown
// elements are skipped, not rejected; media servers embellish freely.
func ParseDIDL(didl string) ([]Item, error) {
	decoder := xml.NewDecoder(strings.NewReader(didl))
	var items []Item
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "item" {
			continue
		}
		item, err := parseItem(decoder)
		if err != nil {
			return nil, fmt.Errorf("parse DIDL-Lite item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseItem(decoder *xml.Decoder) (Item, error) {
	var item Item
	for {
		token, err := decoder.Token()
		if err != nil {
			return item, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "title":
				item.Title, err = readText(decoder)
			case "creator":
				item.Creator, err = readText(decoder)
			case "author":
				item.Author, err = readText(decoder)
			case "actor":
				item.Actor, err = readText(decoder)
			case "artist":
				if item.Artist == "" {
					item.Artist, err = readText(decoder)
				} else {
					err = decoder.Skip()
				}
			case "class":
				item.Class, err = readText(decoder)
			case "res":
				var text string
				text, err = readText(decoder)
				if item.RawRes == "" {
					item.RawRes = rebuildRes(t, text)
					item.URL = strings.TrimSpace(text)
				}
			default:
				err = decoder.Skip()
			}
			if err != nil {
				return item, err
			}
		case xml.EndElement:
			if t.Name.Local == "item" {
				return item, nil
			}
		}
	}
}

func readText(decoder *xml.Decoder) (string, error) {
	var value strings.Builder
	for {
		token, err := decoder.Token()
		if err != nil {
			return value.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			value.Write(t)
		case xml.StartElement:
			if err := decoder.Skip(); err != nil {
				return value.String(), err
			}
		case xml.EndElement:
			return value.String(), nil
		}
	}
}

// rebuildRes reconstructs a <res> element without namespace prefixes
// on its attributes, keeping attribute order and values intact.
func rebuildRes(start xml.StartElement, text string) string {
	var b strings.Builder
	b.WriteString("<res")
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		fmt.Fprintf(&b, ` %s="%s"`, attr.Name.Local, Escape(attr.Value))
	}
	b.WriteString(">")
	b.WriteString(Escape(text))
	b.WriteString("</res>")
	return b.String()
}

var umlauts = strings.NewReplacer(
	"ä", "ae", "Ä", "Ae",
	"ö", "oe", "Ö", "Oe",
	"ü", "ue", "Ü", "Ue",
	"ß", "ss",
)

// Transliterate rewrites German umlauts to their ASCII digraphs. Some
// renderers garble non-ASCII metadata on their displays.
func Transliterate(s string) string {
	return umlauts.Replace(s)
}

// BuildMetadata renders the DIDL-Lite metadata document for one item.
// The result is NOT escaped; it is escaped exactly once when inserted
// into the SOAP envelope. Empty fields are omitted and item ids are
// fresh UUIDs per call, matching what renderers expect from a control
// point rather than a ContentDirectory.
func BuildMetadata(item Item) string {
	var b strings.Builder
	b.WriteString(`<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/"` +
		` xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/"` +
		` xmlns:sec="http://www.sec.co.kr/"><item id="` + uuid.NewString() +
		`" parentID="` + uuid.NewString() + `" restricted="1">`)

	writeField(&b, "dc:title", item.Title)
	writeField(&b, "dc:creator", item.Creator)
	writeField(&b, "upnp:author", item.Author)
	writeField(&b, "upnp:actor", item.Actor)
	writeField(&b, "upnp:artist", item.Artist)
	writeField(&b, "upnp:class", item.Class)
	if item.RawRes != "" {
		b.WriteString(item.RawRes)
	}
	b.WriteString(`</item></DIDL-Lite>`)

	return collapseWhitespace(b.String())
}

func writeField(b *strings.Builder, tag, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<%s>%s</%s>", tag, Escape(Transliterate(value)), tag)
}

// collapseWhitespace flattens runs of whitespace to single spaces.
// Renderer firmwares choke on newlines inside CurrentURIMetaData.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
