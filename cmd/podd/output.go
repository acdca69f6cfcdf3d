package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"podd/internal/podcast"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusError
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := "OK"
	color := ansiGreen
	if kind == statusError {
		statusText = "ERROR"
		color = ansiRed
	}
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	return paint(color, fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText), colorize)
}

func paint(color, s string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

// consoleObserver prints progress lines as the pipeline works. Workers call it
// concurrently.
type consoleObserver struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

func newConsoleObserver(out io.Writer) *consoleObserver {
	return &consoleObserver{out: out, colorize: shouldColorize(out)}
}

func (o *consoleObserver) FeedUpdating(sub podcast.Subscription) {
	o.println(paint(ansiBlue, "Updating "+sub.Name, o.colorize))
}

func (o *consoleObserver) EpisodeDownloading(ep podcast.Episode) {
	o.println(fmt.Sprintf("Downloading %s - %s", ep.PodcastName, ep.Title))
}

func (o *consoleObserver) EpisodeFinished(ep podcast.Episode) {
	switch {
	case ep.Err != nil:
		o.println(paint(ansiRed, fmt.Sprintf("Failed %s - %s: %v", ep.PodcastName, ep.Title, ep.Err), o.colorize))
	case ep.TagErr != nil:
		o.println(paint(ansiYellow, fmt.Sprintf("Saved untagged %s - %s", ep.PodcastName, ep.Title), o.colorize))
	}
}

func (o *consoleObserver) println(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.out, line)
}
