package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/openmohaa/matchmaker/internal/models"
)

// SubjectPrefix namespaces every subject published by the matchmaker.
const SubjectPrefix = "matchmaker"

// NATSNotifier publishes events as NATS messages. Channel names are mapped to
// dotted subjects, so title:mohaa:matches becomes matchmaker.title.mohaa.matches.
type NATSNotifier struct {
	conn *nats.Conn
}

// ConnectNATS dials the server with reconnect handling.
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	log := logger.Sugar()
	opts := []nats.Option{
		nats.Name("matchmaker"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warnw("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

func NewNATSNotifier(conn *nats.Conn) *NATSNotifier {
	return &NATSNotifier{conn: conn}
}

func (n *NATSNotifier) Publish(ctx context.Context, channel string, event models.Event) error {
	payload, err := encode(channel, event)
	if err != nil {
		return err
	}
	subject := Subject(channel)
	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		_ = n.conn.Drain()
		n.conn.Close()
	}
}

// Subject maps a channel name to a NATS subject. Characters that would split
// or wildcard a subject token are replaced.
func Subject(channel string) string {
	tokens := strings.Split(channel, ":")
	for i, tok := range tokens {
		tok = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(tok)
		if tok == "" {
			tok = "_"
		}
		tokens[i] = tok
	}
	return SubjectPrefix + "." + strings.Join(tokens, ".")
}
