package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"ladders_backend/internal/ws"

	"github.com/alecthomas/kong"
	"github.com/gorilla/websocket"
)

var CLI struct {
	Server   string        `short:"s" env:"LADDERS_WS_URL" default:"ws://localhost:8080" help:"Server base URL"`
	Token    string        `short:"t" env:"LADDERS_TOKEN" required:"" help:"Bearer token"`
	Session  string        `arg:"" help:"Session key to watch"`
	Events   int           `short:"n" default:"0" help:"Exit after this many events (0 = forever)"`
	Deadline time.Duration `default:"0s" help:"Give up after this long (0 = never)"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Description("Watch a session feed and print each event"))

	u, err := url.Parse(CLI.Server)
	kctx.FatalIfErrorf(err)
	u.Path = "/ws/sessions/" + CLI.Session
	u.RawQuery = url.Values{"token": {CLI.Token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	kctx.FatalIfErrorf(err)
	defer conn.Close()

	if CLI.Deadline > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(CLI.Deadline))
	}

	seen := 0
	for {
		var e ws.Envelope
		if err := conn.ReadJSON(&e); err != nil {
			kctx.FatalIfErrorf(err)
		}
		line := e.Type
		if e.Session != nil {
			line += fmt.Sprintf(" state=%s pot=%d turn=%d positions=%v", e.Session.State, e.Session.Pot, e.Session.CurrentTurnIndex, e.Session.Positions)
		}
		if e.Detail != nil {
			if b, err := json.Marshal(e.Detail); err == nil {
				line += " detail=" + string(b)
			}
		}
		fmt.Println(line)

		if e.Type == ws.MsgSnapshot {
			continue
		}
		seen++
		if CLI.Events > 0 && seen >= CLI.Events {
			return
		}
	}
}
