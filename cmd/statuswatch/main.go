// Command statuswatch tails the orchestrator status stream.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"helmet-orchestrator-be/internal/entity"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string                `json:"type"`
	Data entity.StatusSnapshot `json:"data"`
}

func main() {
	addr := flag.String("url", "ws://localhost:3000/api/status/v1/stream", "status stream URL")
	token := flag.String("token", os.Getenv("HELMET_TOKEN"), "bearer token")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, *addr, *token); err != nil {
		color.Red("statuswatch: %v", err)
		os.Exit(1)
	}
}

func watch(ctx context.Context, addr, token string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s", u, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	color.Cyan("Connected to %s", u)
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "status" {
			continue
		}
		fmt.Println(render(msg.Data))
	}
}

func render(s entity.StatusSnapshot) string {
	var b strings.Builder

	modeColor := color.New(color.FgGreen, color.Bold)
	if s.Session.CurrentMode == entity.ModeEmergency {
		modeColor = color.New(color.FgRed, color.Bold)
	}
	fmt.Fprintf(&b, "%s %s", s.Timestamp.Format("15:04:05"), modeColor.Sprintf("[%s]", strings.ToUpper(string(s.Session.CurrentMode))))

	if s.Session.RecordingActive {
		b.WriteString(color.RedString(" ● REC"))
	}

	t := s.Telemetry
	temp := fmt.Sprintf("%.1f°C", t.TemperatureC)
	if t.ThermalAlarm {
		temp = color.RedString("%s (+%.1f/min)", temp, t.ThermalTrendCPerMin)
	}
	fmt.Fprintf(&b, " cpu=%.0f%% mem=%.0f%% temp=%s bat=%.0f%%", t.CPUPercent, t.MemPercent, temp, t.BatteryPercent)

	if s.Detections.Total > 0 {
		fmt.Fprintf(&b, " det=%d", s.Detections.Total)
	}
	if s.Frames.FPS > 0 {
		fmt.Fprintf(&b, " fps=%.1f", s.Frames.FPS)
	}
	if len(s.Degraded) > 0 {
		b.WriteString(color.YellowString(" degraded=%s", strings.Join(s.Degraded, ",")))
	}
	if len(t.Stale) > 0 {
		b.WriteString(color.YellowString(" stale=%s", strings.Join(t.Stale, ",")))
	}
	fmt.Fprintf(&b, " | %s", s.StatusMessage)
	return b.String()
}
