package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/arena"
	"arenacraft.gg/internal/sim/multiarena"
	"arenacraft.gg/internal/sim/world"
)

type Server struct {
	mgr *multiarena.Manager
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(mgr *multiarena.Manager, logger *log.Logger) *Server {
	return &Server{
		mgr: mgr,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, a, out := s.handshake(conn)
		if playerID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeAct {
				continue
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				continue
			}
			if act.ProtocolVersion != protocol.Version {
				continue
			}
			select {
			case a.Inbox() <- arena.ActionEnvelope{PlayerID: playerID, Act: act}:
			case <-a.Done():
			}
		}

		// Cleanup. A disposed arena no longer drains leave, so never block on
		// it.
		select {
		case a.Leave() <- playerID:
		case <-a.Done():
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (playerID string, a *arena.Arena, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil, nil
	}
	if hello.Name == "" {
		hello.Name = "player"
	}

	out = make(chan []byte, 32)
	jr, a, err := s.mgr.JoinArena(hello.ArenaID, arena.JoinRequest{
		Name:       hello.Name,
		PlayerType: world.PlayerType(hello.PlayerType),
		Out:        out,
	})
	if err != nil {
		s.log.Printf("ws: join: %v", err)
		_ = writeJSON(conn, protocol.ErrorMsg{
			Type:            protocol.TypeError,
			ProtocolVersion: protocol.Version,
			Code:            protocol.ErrArenaNotFound,
			Message:         err.Error(),
		})
		return "", nil, nil
	}

	if err := writeJSON(conn, jr.Welcome); err != nil {
		return "", nil, nil
	}
	return jr.Welcome.PlayerID, a, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
