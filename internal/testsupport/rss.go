package testsupport

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Item describes one <item> of a generated RSS document.
type Item struct {
	GUID          string
	Title         string
	Description   string
	Link          string
	EnclosureURL  string
	EnclosureType string
	ImageURL      string
	Published     string
}

// RSS renders a minimal RSS 2.0 podcast feed with the iTunes namespace.
func RSS(title, imageURL string, items ...Item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"><channel>`)
	if title != "" {
		fmt.Fprintf(&b, "<title>%s</title>", escape(title))
	}
	if imageURL != "" {
		fmt.Fprintf(&b, "<image><url>%s</url></image>", escape(imageURL))
	}
	for _, item := range items {
		b.WriteString("<item>")
		if item.GUID != "" {
			fmt.Fprintf(&b, "<guid>%s</guid>", escape(item.GUID))
		}
		if item.Title != "" {
			fmt.Fprintf(&b, "<title>%s</title>", escape(item.Title))
		}
		if item.Description != "" {
			fmt.Fprintf(&b, "<description>%s</description>", escape(item.Description))
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "<link>%s</link>", escape(item.Link))
		}
		if item.Published != "" {
			fmt.Fprintf(&b, "<pubDate>%s</pubDate>", escape(item.Published))
		}
		if item.EnclosureURL != "" {
			encType := item.EnclosureType
			if encType == "" {
				encType = "audio/mpeg"
			}
			fmt.Fprintf(&b, `<enclosure url="%s" type="%s" length="0"/>`, escape(item.EnclosureURL), escape(encType))
		}
		if item.ImageURL != "" {
			fmt.Fprintf(&b, `<itunes:image href="%s"/>`, escape(item.ImageURL))
		}
		b.WriteString("</item>")
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
