package server

import (
	"context"
	"time"

	"github.com/igs-sky/1A2B-Game/internal/logging"
	"github.com/igs-sky/1A2B-Game/internal/match"
	"github.com/igs-sky/1A2B-Game/internal/proto"
)

// startPeer spawns the two long-lived tasks owned by one connection:
// the reader and the heartbeat watcher. Both retire on their own when
// the connection dies or the player rebinds to a newer one.
func (m *Manager) startPeer(ctx context.Context, conn *lineConn, player *match.Player) {
	ack := make(chan struct{}, 1)
	go m.reader(ctx, conn, player, ack)
	go m.heartbeat(ctx, conn, player, ack)
}

// reader frames input on newline boundaries, classifies heartbeat acks
// into the private ack channel and everything else into the player's
// command queue. A read error or orderly close posts the disconnect
// marker and ends the task.
func (m *Manager) reader(ctx context.Context, conn *lineConn, player *match.Player, ack chan struct{}) {
	logger := logging.FromContext(ctx).Named("server.reader")

	for {
		line, err := conn.ReadLine()
		if err != nil {
			if player.Owns(conn) {
				logger.Infof("player %s read failed: %v", player.ID, err)
			}
			player.DisconnectFrom(conn)
			return
		}

		if line == proto.HeartbeatAck {
			select {
			case ack <- struct{}{}:
			default:
			}
			continue
		}

		player.Push(line)
	}
}

// heartbeat probes the connection on a fixed interval and waits a
// bounded time for the acknowledgement. A missed ack or failed send
// funnels into the same disconnect path as a transport fault.
func (m *Manager) heartbeat(ctx context.Context, conn *lineConn, player *match.Player, ack chan struct{}) {
	logger := logging.FromContext(ctx).Named("server.heartbeat")
	ticker := time.NewTicker(m.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !player.Owns(conn) {
			// superseded by a reconnect
			return
		}

		if err := conn.WriteLine(proto.Heartbeat()); err != nil {
			logger.Infof("player %s heartbeat send failed: %v", player.ID, err)
			player.DisconnectFrom(conn)
			_ = conn.Close()
			return
		}

		select {
		case <-ack:
		case <-time.After(m.config.HeartbeatTimeout):
			logger.Infof("player %s heartbeat timed out", player.ID)
			player.DisconnectFrom(conn)
			_ = conn.Close()
			return
		case <-ctx.Done():
			return
		}
	}
}
