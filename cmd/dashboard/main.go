package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/thorbengrosser/eventheartbeat/internal/audio"
	"github.com/thorbengrosser/eventheartbeat/internal/client"
	"github.com/thorbengrosser/eventheartbeat/internal/dashboard"
)

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:5001", "Base URL of the distribution server")
	apiKey := flag.String("api-key", os.Getenv("EVENTMOBI_API_KEY"), "EventMobi API key")
	eventID := flag.String("event", "", "Event (collection) id to watch; empty picks the first available")
	instrument := flag.String("instrument", os.Getenv("INSTRUMENT_SAMPLE"), "Path to a WAV sample used as the tone source (sine synthesis when empty)")
	instrumentBase := flag.Float64("instrument-base", 440, "Frequency in Hz the instrument sample was recorded at")
	flag.Parse()

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: an API key is required (--api-key or EVENTMOBI_API_KEY)")
		os.Exit(1)
	}

	httpClient := client.NewHTTPClient(*serverURL, *apiKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	events, err := httpClient.Setup(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: setup failed: %v\n", err)
		os.Exit(1)
	}

	id, name := *eventID, ""
	for _, ev := range events {
		if id == "" || ev.ID == id {
			id, name = ev.ID, ev.Name
			break
		}
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "Error: no events available for this API key")
		os.Exit(1)
	}

	if *instrument != "" {
		audio.Acquire().LoadInstrument(*instrument, *instrumentBase)
	}

	ws := client.NewWSClient(deriveWSURL(*serverURL), *apiKey)

	m := dashboard.New(ws, httpClient, clockwork.NewRealClock(), id, name)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveWSURL converts http://host:port → ws://host:port/ws
func deriveWSURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return "ws://127.0.0.1:5001/ws"
	}
	scheme := "ws"
	if strings.HasPrefix(u.Scheme, "https") {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, u.Host)
}
