package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"podd/internal/podcast"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "Podcast Download Report"

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlReport = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/report.html.tmpl"))
	textReport = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/report.txt.tmpl"))
)

// Digest is a rendered report.
type Digest struct {
	Subject string
	HTML    string
	Text    string
}

type reportData struct {
	Subject  string
	Podcasts []podcast.PodcastResult
	Episodes int
}

// Render produces the HTML and plain-text report for results.
func Render(subject string, results []podcast.PodcastResult) (Digest, error) {
	data := reportData{Subject: subject, Podcasts: results, Episodes: episodeCount(results)}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlReport.Execute(&htmlBuf, data); err != nil {
		return Digest{}, fmt.Errorf("rendering html report: %w", err)
	}
	if err := textReport.Execute(&textBuf, data); err != nil {
		return Digest{}, fmt.Errorf("rendering text report: %w", err)
	}
	return Digest{Subject: subject, HTML: htmlBuf.String(), Text: textBuf.String()}, nil
}

func episodeCount(results []podcast.PodcastResult) int {
	n := 0
	for _, res := range results {
		n += len(res.Episodes)
	}
	return n
}
