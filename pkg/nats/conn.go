package nats

import (
	"fmt"
	"time"

	"helmet-orchestrator-be/internal/pkg/logger"

	"github.com/nats-io/nats.go"
)

const module = "NATS"

// Connect opens the connection shared by the publisher, the subscriber and
// the collaborator gateway.
func Connect(url string, log logger.ILogger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("helmet-orchestrator"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			details := map[string]interface{}{"url": url}
			if err != nil {
				details["error"] = err.Error()
			}
			log.Warn(module, "Disconnected from NATS", details)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info(module, "Reconnected to NATS", map[string]interface{}{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}
