package messaging

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/config"
)

// Connect dials NATS and keeps reconnecting for the life of the process.
func Connect(cfg config.MessagingConfig, name string, log *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	log.Info("nats connected", zap.String("url", conn.ConnectedUrl()))
	return conn, nil
}

// Drain flushes pending publishes and closes conn.
func Drain(conn *nats.Conn, timeout time.Duration, log *zap.Logger) {
	if err := conn.FlushTimeout(timeout); err != nil {
		log.Warn("nats flush before close", zap.Error(err))
	}
	if err := conn.Drain(); err != nil {
		log.Warn("nats drain", zap.Error(err))
		conn.Close()
	}
}

// LogConn stands in for NATS when no URL is configured and logs every
// publish at debug level.
type LogConn struct {
	Log *zap.Logger
}

func (c LogConn) Publish(subject string, data []byte) error {
	c.Log.Debug("publish", zap.String("subject", subject), zap.ByteString("body", data))
	return nil
}

// Subscribe delivers every message on subject to fn from the NATS
// dispatch goroutine. fn must not block.
func Subscribe(conn *nats.Conn, subject string, fn func(data []byte)) (*nats.Subscription, error) {
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// InteractSubject is where actor interaction requests arrive.
func InteractSubject(prefix string) string {
	return prefix + ".interact"
}
