package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/dartopia/darts-server/internal/engine"
	"github.com/dartopia/darts-server/internal/registry"
	"github.com/dartopia/darts-server/internal/session"
	"github.com/dartopia/darts-server/internal/types"
)

// Handler upgrades /ws?session=CODE&player=ID to a websocket, registers the
// player's transport with the session and pumps messages both ways until the
// socket dies. Reconnecting with the same pair replaces the old transport.
func Handler(r *registry.Registry, origins []string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sessionID := req.URL.Query().Get("session")
		playerID := req.URL.Query().Get("player")
		if sessionID == "" || playerID == "" {
			http.Error(w, "missing session or player", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		r.Inbox() <- registry.Get{ID: sessionID, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Push, 8)
		joined := make(chan error, 1)
		sess.Inbox() <- session.Join{PlayerID: playerID, Outbox: out, Reply: joined}
		if err := <-joined; err != nil {
			writeError(req.Context(), conn, err.Error())
			return
		}
		defer func() { sess.Inbox() <- session.Leave{PlayerID: playerID, Outbox: out} }()

		// Writer goroutine: drains pushes until the session closes the outbox
		// (leave, replacement by a reconnect, or teardown).
		writeCtx, writeCancel := context.WithCancel(req.Context())
		defer writeCancel()
		go func() {
			for push := range out {
				msg := types.ServerMessage{Type: string(push.Kind), State: &push.Snapshot}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(req.Context())
			if err != nil {
				// Clean close or dead socket either way: the deferred
				// Leave unregisters this transport.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(req.Context(), conn, "bad json")
				continue
			}

			switch cm.Type {
			case "throw":
				reply := make(chan session.ThrowReply, 1)
				sess.Inbox() <- session.Throw{
					PlayerID: playerID,
					Hit:      engine.Hit{Section: cm.Section, Multiplier: cm.Multiplier},
					Reply:    reply,
				}
				if res := <-reply; res.Err != nil {
					writeError(req.Context(), conn, res.Err.Error())
				}
				// Accepted throws reach this client through the broadcast.

			case "start":
				reply := make(chan error, 1)
				sess.Inbox() <- session.Start{Reply: reply}
				if err := <-reply; err != nil {
					writeError(req.Context(), conn, err.Error())
				}

			default:
				writeError(req.Context(), conn, "unknown type")
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "error", Error: msg})
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
