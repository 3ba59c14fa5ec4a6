package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"buttonbench/internal/bench"
)

const progressPrefix = "[bench]"

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiGray  = "\x1b[90m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiBlue  = "\x1b[34m"
)

type progressStyle int

const (
	styleDefault progressStyle = iota
	styleRun
	styleMetrics
	styleError
)

// progressPrinter streams engine events as plain log lines, one per event.
type progressPrinter struct {
	writer  io.Writer
	palette progressPalette
}

func newProgressPrinter(writer io.Writer, noColor bool) *progressPrinter {
	return &progressPrinter{writer: writer, palette: paletteFor(writer, noColor)}
}

// watch drains the event channel until it closes. The returned channel
// closes once every buffered event has been printed.
func (p *progressPrinter) watch(events <-chan bench.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			p.print(event)
		}
	}()
	return done
}

func (p *progressPrinter) print(event bench.Event) {
	line, style := formatProgressEvent(event)
	if line == "" {
		return
	}
	fmt.Fprintf(p.writer, "%s %s\n", p.palette.prefix(progressPrefix), p.palette.apply(style, line))
}

// formatProgressEvent renders one event. Token deltas are deliberately
// silent; everything else gets a line.
func formatProgressEvent(event bench.Event) (string, progressStyle) {
	switch event.Kind {
	case bench.EventRunQueued:
		return "queued " + matchup(event), styleDefault
	case bench.EventRunStart:
		return shortID(event.RunID) + " started: " + matchup(event), styleRun
	case bench.EventIteration:
		return fmt.Sprintf("%s turn %d", shortID(event.RunID), event.Iteration), styleDefault
	case bench.EventToolInvoked:
		return fmt.Sprintf("%s %s pressed the button on turn %d", shortID(event.RunID), event.Defender, event.Iteration), styleError
	case bench.EventRunComplete:
		style := styleMetrics
		if event.GaveIn {
			style = styleError
		}
		return shortID(event.RunID) + " " + stateText(event.State), style
	case bench.EventRunError:
		line := shortID(event.RunID) + " failed"
		if event.Detail != "" {
			line += ": " + event.Detail
		}
		return line, styleError
	case bench.EventRunJudged:
		return shortID(event.RunID) + " judged: " + event.Detail, styleDefault
	default:
		return "", styleDefault
	}
}

// matchup names the models in a run, pairing tempter and defender when both
// are present.
func matchup(event bench.Event) string {
	if event.Tempter != "" && event.Tempter != event.Defender {
		return event.Tempter + " vs " + event.Defender
	}
	return event.Defender
}

// stateText renders a terminal state as a short phrase.
func stateText(state bench.State) string {
	switch state {
	case bench.StateToolInvoked:
		return "pressed the button"
	case bench.StateLoopExhausted:
		return "held out"
	case bench.StateContextOverflow:
		return "outlasted the context window"
	case bench.StateTimedOut:
		return "timed out"
	case bench.StateErrored:
		return "errored"
	default:
		return string(state)
	}
}

// shortID keeps enough of a run id to grep for.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type progressPalette struct {
	enabled bool
}

func paletteFor(writer io.Writer, noColor bool) progressPalette {
	if noColor {
		return progressPalette{enabled: false}
	}
	return progressPalette{enabled: shouldUseStyling(writer)}
}

func shouldUseStyling(writer io.Writer) bool {
	if writer == nil {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if strings.EqualFold(os.Getenv("CLICOLOR"), "0") {
		return false
	}
	return isTerminal(writer)
}

func (p progressPalette) prefix(text string) string {
	if !p.enabled {
		return text
	}
	return ansiDim + ansiGray + text + ansiReset
}

func (p progressPalette) apply(style progressStyle, text string) string {
	if !p.enabled {
		return text
	}
	switch style {
	case styleRun:
		return ansiBold + ansiBlue + text + ansiReset
	case styleMetrics:
		return ansiBold + ansiGreen + text + ansiReset
	case styleError:
		return ansiBold + ansiRed + text + ansiReset
	default:
		return text
	}
}
