// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package boundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/spyglass-remote/spyglass/bridge"
	"github.com/spyglass-remote/spyglass/lib/codec"
	"github.com/spyglass-remote/spyglass/lib/peerstore"
)

// Server accepts host boundary connections on a Unix socket and
// translates them into bridge operations. Each connection carries one
// request; subscribe requests hold the connection open as the
// registered event sink.
type Server struct {
	// Bridge is the hand-off layer the server fronts. Required.
	Bridge *bridge.Bridge

	// Peers records sessions per peer and serves the list-peers and
	// device-id actions. Optional; when nil those actions fail and no
	// recording happens.
	Peers *peerstore.Store

	// SocketPath is the Unix socket to listen on. A stale socket file
	// from a previous run is removed before binding.
	SocketPath string

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	listener    net.Listener
	cancel      context.CancelFunc
	done        chan struct{}
	connections sync.WaitGroup
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Start binds the socket and begins serving in a background goroutine.
// It returns once the listener is accepting, or an error if binding
// fails. The server runs until Stop is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.Bridge == nil {
		return fmt.Errorf("boundary: Bridge is required")
	}
	if s.SocketPath == "" {
		return fmt.Errorf("boundary: SocketPath is required")
	}

	// Remove a stale socket file from an unclean shutdown. If the
	// path is a live socket of another process, binding fails below
	// rather than silently hijacking it mid-connection.
	if _, err := os.Stat(s.SocketPath); err == nil {
		if err := os.Remove(s.SocketPath); err != nil {
			return fmt.Errorf("boundary: removing stale socket %s: %w", s.SocketPath, err)
		}
	}

	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("boundary: listening on %s: %w", s.SocketPath, err)
	}
	s.listener = listener

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.acceptLoop(ctx)
	}()

	s.logger().Info("boundary server started", "socket", s.SocketPath)
	return nil
}

// Stop shuts the listener down and waits for in-flight connections
// (including live subscriptions, which are closed) to drain.
func (s *Server) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.listener.Close()
	<-s.done
	s.connections.Wait()
	s.logger().Info("boundary server stopped", "socket", s.SocketPath)
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger().Error("accept failed", "error", err)
			return
		}
		s.connections.Add(1)
		go func() {
			defer s.connections.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection serves one boundary call. For plain actions the
// response is written and the connection closed; subscribe actions
// hand the connection to a connSink and block until it is retired or
// the client disconnects.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	decoder := codec.NewDecoder(conn)
	sink := newConnSink(conn)

	var request Request
	if err := decoder.Decode(&request); err != nil {
		s.logger().Debug("undecodable request", "error", err)
		_ = sink.encode(Response{Error: "invalid request"})
		conn.Close()
		return
	}

	switch request.Action {
	case ActionSubscribeChannel, ActionSubscribeSession:
		s.serveSubscription(ctx, conn, sink, &request)
	default:
		response := s.dispatch(ctx, &request)
		if err := sink.encode(response); err != nil {
			s.logger().Debug("response write failed",
				"action", request.Action,
				"error", err,
			)
		}
		conn.Close()
	}
}

func (s *Server) dispatch(ctx context.Context, request *Request) Response {
	switch request.Action {
	case ActionSetFrameEnabled:
		s.Bridge.Frames.SetEnabled(bridge.FrameKind(request.Kind), request.Enabled)
		return Response{OK: true}

	case ActionTakeFrame:
		frame, present := s.Bridge.Frames.Take(bridge.FrameKind(request.Kind), nil, request.Previous)
		return Response{OK: true, Present: present, Frame: frame}

	case ActionUpdateFrame:
		s.Bridge.UpdateFrame(bridge.FrameKind(request.Kind), request.Frame)
		return Response{OK: true}

	case ActionTakeClipboard:
		direction, err := parseDirection(request.Direction)
		if err != nil {
			return Response{Error: err.Error()}
		}
		payload, present := s.Bridge.Clipboard.Take(direction)
		return Response{OK: true, Present: present, Clipboard: payload}

	case ActionPublishClipboard:
		direction, err := parseDirection(request.Direction)
		if err != nil {
			return Response{Error: err.Error()}
		}
		if request.Clipboard == nil {
			return Response{Error: "clipboard payload is required"}
		}
		s.Bridge.PublishClipboard(direction, request.Clipboard)
		return Response{OK: true}

	case ActionAddSession:
		return s.handleAddSession(ctx, request)

	case ActionRemoveSession:
		id, err := uuid.Parse(request.SessionID)
		if err != nil {
			return Response{Error: fmt.Sprintf("invalid session id: %v", err)}
		}
		// A missing session is a benign race with an earlier removal.
		s.Bridge.RemoveSession(id)
		return Response{OK: true}

	case ActionSessionInfo:
		id, err := uuid.Parse(request.SessionID)
		if err != nil {
			return Response{Error: fmt.Sprintf("invalid session id: %v", err)}
		}
		session, ok := s.Bridge.Sessions.Get(id)
		if !ok {
			// Queries against a just-closed session return empty, not
			// an error banner.
			return Response{OK: true}
		}
		return Response{OK: true, Session: &SessionInfo{
			SessionID: session.ID().String(),
			PeerID:    session.PeerID(),
			Displays:  session.Displays(),
			Round:     session.Rounds().Current(),
			HasSink:   session.HasSink(),
		}}

	case ActionSetDisplays:
		id, err := uuid.Parse(request.SessionID)
		if err != nil {
			return Response{Error: fmt.Sprintf("invalid session id: %v", err)}
		}
		if session, ok := s.Bridge.Sessions.Get(id); ok {
			session.SetDisplays(request.Displays)
		}
		return Response{OK: true}

	case ActionNewRound:
		id, err := uuid.Parse(request.SessionID)
		if err != nil {
			return Response{Error: fmt.Sprintf("invalid session id: %v", err)}
		}
		session, ok := s.Bridge.Sessions.Get(id)
		if !ok {
			return Response{OK: true}
		}
		return Response{OK: true, Round: session.Rounds().NewRound()}

	case ActionPushEvent:
		return s.handlePushEvent(request)

	case ActionListChannels:
		return Response{OK: true, Channels: s.Bridge.Channels.Channels()}

	case ActionListPeers:
		return s.handleListPeers(ctx)

	case ActionSetPeerAlias:
		if s.Peers == nil {
			return Response{Error: "peer store not configured"}
		}
		if err := s.Peers.SetAlias(ctx, request.PeerID, request.Alias); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}

	case ActionDeviceID:
		if s.Peers == nil {
			return Response{Error: "peer store not configured"}
		}
		id, err := s.Peers.DeviceID(ctx)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, DeviceID: id.String()}

	default:
		return Response{Error: fmt.Sprintf("unknown action %q", request.Action)}
	}
}

func (s *Server) handleAddSession(ctx context.Context, request *Request) Response {
	id, err := uuid.Parse(request.SessionID)
	if err != nil {
		return Response{Error: fmt.Sprintf("invalid session id: %v", err)}
	}
	if request.PeerID == "" {
		return Response{Error: "peer id is required"}
	}
	if _, err := s.Bridge.AddSession(id, request.PeerID); err != nil {
		return Response{Error: err.Error()}
	}
	if s.Peers != nil {
		// Peer bookkeeping failure does not undo the add; the session
		// is live either way.
		if err := s.Peers.RememberPeer(ctx, request.PeerID, id); err != nil {
			s.logger().Error("peer bookkeeping failed",
				"peer_id", request.PeerID,
				"error", err,
			)
		}
	}
	return Response{OK: true}
}

func (s *Server) handlePushEvent(request *Request) Response {
	if request.Event == nil {
		return Response{Error: "event is required"}
	}
	switch {
	case request.Channel != "" && request.SessionID != "":
		return Response{Error: "channel and session_id are mutually exclusive"}
	case request.Channel != "":
		if err := s.Bridge.EmitChannel(request.Channel, *request.Event); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Delivered: true}
	case request.SessionID != "":
		id, err := uuid.Parse(request.SessionID)
		if err != nil {
			return Response{Error: fmt.Sprintf("invalid session id: %v", err)}
		}
		return Response{OK: true, Delivered: s.Bridge.EmitSession(id, *request.Event)}
	default:
		return Response{Error: "channel or session_id is required"}
	}
}

func (s *Server) handleListPeers(ctx context.Context) Response {
	if s.Peers == nil {
		return Response{Error: "peer store not configured"}
	}
	peers, err := s.Peers.Peers(ctx)
	if err != nil {
		return Response{Error: err.Error()}
	}
	infos := make([]PeerInfo, len(peers))
	for i, peer := range peers {
		infos[i] = PeerInfo{
			ID:            peer.ID,
			Alias:         peer.Alias,
			LastSessionID: peer.LastSessionID.String(),
			LastSeenMS:    peer.LastSeen.UnixMilli(),
			Sessions:      peer.Sessions,
		}
	}
	return Response{OK: true, Peers: infos}
}

// serveSubscription registers the connection as the sink for a channel
// or session and blocks until the sink is retired (replaced, torn
// down, or the client disconnects). The OK response is written before
// registration so the first streamed event can never precede it.
func (s *Server) serveSubscription(ctx context.Context, conn net.Conn, sink *connSink, request *Request) {
	var register func()
	var dropped func()

	switch request.Action {
	case ActionSubscribeChannel:
		if request.Channel == "" {
			_ = sink.encode(Response{Error: "channel is required"})
			conn.Close()
			return
		}
		register = func() {
			// Name and sink were validated above, so Register cannot
			// refuse; anything else would have to go on the wire after
			// the OK response, where the client expects events.
			if err := s.Bridge.Channels.Register(request.Channel, sink); err != nil {
				s.logger().Error("channel registration failed",
					"channel", request.Channel,
					"error", err,
				)
				_ = sink.Close()
			}
		}
		dropped = func() {
			s.Bridge.Channels.UnregisterSink(request.Channel, sink)
		}
	case ActionSubscribeSession:
		id, err := uuid.Parse(request.SessionID)
		if err != nil {
			_ = sink.encode(Response{Error: fmt.Sprintf("invalid session id: %v", err)})
			conn.Close()
			return
		}
		if _, ok := s.Bridge.Sessions.Get(id); !ok {
			_ = sink.encode(Response{Error: bridge.ErrSessionNotFound.Error()})
			conn.Close()
			return
		}
		register = func() {
			// The session can be removed between the existence check
			// above and this install. AttachSink serializes with
			// removal: it either refuses here or the remover's
			// teardown retires the sink, so the subscriber sees the
			// stream end instead of a stranded connection.
			if !s.Bridge.Sessions.AttachSink(id, sink) {
				_ = sink.Close()
			}
		}
		dropped = func() {
			// The session may already be gone; its teardown retired
			// the sink in that case.
			if current, ok := s.Bridge.Sessions.Get(id); ok {
				current.DropSink(sink)
			}
		}
	}

	if err := sink.encode(Response{OK: true}); err != nil {
		conn.Close()
		return
	}
	register()

	// Close the sink when the server shuts down so the subscriber
	// sees EOF instead of hanging.
	stopAfter := context.AfterFunc(ctx, func() { _ = sink.Close() })
	defer stopAfter()

	// Block until the connection dies: either the sink was retired
	// (replacement or teardown closed it) or the client went away.
	// Subscribers never send again after the initial request, so a
	// read only returns on close.
	buffer := make([]byte, 1)
	for {
		if _, err := conn.Read(buffer); err != nil {
			break
		}
	}
	dropped()
	_ = sink.Close()
}
