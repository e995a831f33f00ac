// Command simulation stands in for the video, perception and voice
// collaborators on a development NATS server. Lines typed on stdin are
// published as voice intents.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"helmet-orchestrator-be/internal/config"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/pkg/gateway"
	pktNats "helmet-orchestrator-be/pkg/nats"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const module = "Simulation"

func main() {
	fps := flag.Int("fps", 15, "simulated camera frame rate")
	silent := flag.Bool("no-perception", false, "stop publishing perception results")
	refuse := flag.String("refuse", "", "comma separated RPC subjects to refuse")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewZapLogger("logs/simulation.log", false)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc, err := pktNats.Connect(cfg.App.NatsURL, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer nc.Drain()

	collab := newCollaborators()
	for _, s := range strings.Split(*refuse, ",") {
		if s = strings.TrimSpace(s); s != "" {
			collab.refuse[s] = true
		}
	}

	for _, subject := range []string{
		gateway.SubjectStartRecording,
		gateway.SubjectStopRecording,
		gateway.SubjectSnapshot,
		gateway.SubjectApplyMode,
		gateway.SubjectSetROI,
		gateway.SubjectSpeak,
	} {
		subject := subject
		if _, err := nc.Subscribe(cfg.Subjects.RPCPrefix+subject, func(m *nats.Msg) {
			reply := collab.handle(subject, m.Data)
			log.Info(module, "RPC", map[string]interface{}{"subject": subject, "ok": reply.OK, "error": reply.Error})
			data, _ := json.Marshal(reply)
			m.Respond(data)
		}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	js, err := jetstream.New(nc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := pktNats.EnsureStream(ctx, js, cfg.Subjects.Stream); err != nil {
		log.Warn(module, "Stream not ready, voice intents disabled", map[string]interface{}{"error": err.Error()})
	}

	go readIntents(ctx, js, cfg.Subjects.VoiceIntents, log)
	fmt.Println("Simulating collaborators. Type a phrase and press enter to speak it.")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	frames := time.NewTicker(time.Second / time.Duration(max(*fps, 1)))
	defer frames.Stop()
	captions := time.NewTicker(5 * time.Second)
	defer captions.Stop()

	var seq int
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-frames.C:
			seq++
			frameID := fmt.Sprintf("frame-%d", seq)
			publish(nc, cfg.Subjects.Frames, map[string]interface{}{
				"frame_id": frameID, "width": 1280, "height": 720, "timestamp": now,
			})
			if !*silent && seq%3 == 0 {
				publish(nc, cfg.Subjects.Detections, randomDetections(rng, frameID))
			}
		case now := <-captions.C:
			if !*silent {
				publish(nc, cfg.Subjects.Captions, map[string]interface{}{
					"text": fmt.Sprintf("scene at %s", now.Format("15:04:05")), "timestamp": now,
				})
			}
		}
	}
}

func publish(nc *nats.Conn, subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	nc.Publish(subject, data)
}

func readIntents(ctx context.Context, js jetstream.JetStream, subject string, log logger.ILogger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		data, _ := json.Marshal(map[string]interface{}{
			"id":         uuid.NewString(),
			"text":       text,
			"confidence": 0.95,
			"timestamp":  time.Now(),
		})
		if _, err := js.Publish(ctx, subject, data); err != nil {
			log.Warn(module, "Failed to publish intent", map[string]interface{}{"error": err.Error()})
		}
	}
}
