// Package router dispatches inbound client frames to their component
// handlers. Every payload is validated against its declarative schema
// before the handler runs, and every failure leaves the connection as
// a structured error frame, never a raw internal error.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/careerbox/presenced/internal/fault"
	"github.com/careerbox/presenced/internal/gateway"
	"github.com/careerbox/presenced/internal/health"
	"github.com/careerbox/presenced/internal/metrics"
	"github.com/careerbox/presenced/internal/notify"
	"github.com/careerbox/presenced/internal/presence"
	"github.com/careerbox/presenced/internal/profileid"
	"github.com/careerbox/presenced/internal/rooms"
	"github.com/careerbox/presenced/internal/search"
	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/careerbox/presenced/pkg/state"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Client event names, re-exported so the schema table and handlers
// share one spelling.
const (
	EventValidateProfileID = protocol.EventValidateProfileID
	EventSearchSuggestions = protocol.EventSearchSuggestions
	EventJoinRoom          = protocol.EventJoinRoom
	EventLeaveRoom         = protocol.EventLeaveRoom
	EventUpdateStatus      = protocol.EventUpdateStatus
	EventTyping            = protocol.EventTyping
	EventAdminMonitor      = protocol.EventAdminMonitor
	EventActivity          = protocol.EventActivity
	EventPing              = protocol.EventPing
)

type Router struct {
	logger     *slog.Logger
	states     state.Manager
	rooms      *rooms.Manager
	tracker    *presence.Tracker
	validator  *profileid.Validator
	engine     *search.Engine
	dispatcher *notify.Dispatcher
	monitor    *health.Monitor
	activity   store.ActivityLog
	bcast      gateway.Broadcaster
}

func New(
	logger *slog.Logger,
	states state.Manager,
	roomMgr *rooms.Manager,
	tracker *presence.Tracker,
	validator *profileid.Validator,
	engine *search.Engine,
	dispatcher *notify.Dispatcher,
	monitor *health.Monitor,
	activity store.ActivityLog,
	bcast gateway.Broadcaster,
) *Router {
	return &Router{
		logger:     logger.With(slog.String("component", "router")),
		states:     states,
		rooms:      roomMgr,
		tracker:    tracker,
		validator:  validator,
		engine:     engine,
		dispatcher: dispatcher,
		monitor:    monitor,
		activity:   activity,
		bcast:      bcast,
	}
}

// HandleMessage is the transport's inbound callback. It runs on the
// connection's read goroutine, so one connection's events are handled
// strictly in arrival order.
func (r *Router) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	conn, ok := r.states.GetConnection(connID)
	if !ok || conn.Identity == nil {
		// Authentication gates the upgrade, so this means the
		// connection raced its own teardown. Nothing to answer.
		r.logger.Warn("frame from unknown connection", slog.String("connID", connID.String()))
		return
	}

	var frame protocol.Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		r.sendError(conn, "", fault.New(fault.Validation, err))
		return
	}
	metrics.EventsTotal.WithLabelValues(frame.Event).Inc()

	if err := validatePayload(frame.Event, frame.Payload); err != nil {
		r.sendError(conn, frame.ID, err)
		return
	}

	if err := r.dispatch(ctx, conn, frame); err != nil {
		r.sendError(conn, frame.ID, err)
	}
}

func (r *Router) dispatch(ctx context.Context, conn *state.Connection, frame protocol.Frame) error {
	ident := conn.Identity
	payload := frame.Payload

	switch frame.Event {
	case EventPing:
		r.reply(conn, protocol.EventPong, frame.ID, nil)
		return nil

	case EventValidateProfileID:
		candidate := gjson.GetBytes(payload, "profileId").String()
		result := r.validator.Validate(ctx, candidate, ident.ID)
		r.reply(conn, EventValidateProfileID, frame.ID, result)
		return nil

	case EventSearchSuggestions:
		query := gjson.GetBytes(payload, "query").String()
		results := r.engine.Suggest(ctx, query)
		r.reply(conn, protocol.EventSearchSuggestion, frame.ID, results)
		return nil

	case EventJoinRoom:
		return r.rooms.Join(ident.ID, gjson.GetBytes(payload, "room").String())

	case EventLeaveRoom:
		return r.rooms.Leave(ident.ID, gjson.GetBytes(payload, "room").String())

	case EventUpdateStatus:
		status, err := state.ParseStatus(gjson.GetBytes(payload, "status").String())
		if err != nil {
			return fault.New(fault.Validation, err)
		}
		if err := r.tracker.SetStatus(ctx, ident.ID, status); err != nil {
			return fault.New(fault.Datastore, err)
		}
		return nil

	case EventTyping:
		room := gjson.GetBytes(payload, "room").String()
		if err := rooms.ValidateName(room); err != nil {
			return err
		}
		// Typing indicators only relay into rooms the sender is a
		// member of; otherwise any client could inject frames into
		// operator or foreign user rooms.
		if !slices.Contains(r.states.RoomsOf(ident.ID), room) {
			return fault.Newf(fault.Authorization, "identity %s is not a member of room %q", ident.ID, room)
		}
		update := protocol.TypingUpdate{
			UserID:    ident.ID,
			IsTyping:  gjson.GetBytes(payload, "isTyping").Bool(),
			Timestamp: time.Now().UTC(),
		}
		typingFrame, err := protocol.Encode(protocol.EventUserTyping, "", update)
		if err != nil {
			return err
		}
		return r.bcast.ToRoom(room, typingFrame)

	case EventActivity:
		if err := r.tracker.TouchActivity(ctx, ident.ID); err != nil {
			r.logger.Warn("activity touch failed", slog.Any("error", err))
		}
		r.appendActivity(ctx, conn, payload)
		return nil

	case EventAdminMonitor:
		if !ident.Can(state.CapMonitor) {
			return fault.Newf(fault.Authorization, "identity %s lacks monitor capability", ident.ID)
		}
		snapshot := r.monitor.Sample(ctx)
		r.reply(conn, protocol.EventSystemHealth, frame.ID, snapshot)
		return nil

	default:
		return fault.Newf(fault.Validation, "unknown event %q", frame.Event)
	}
}

func (r *Router) appendActivity(ctx context.Context, conn *state.Connection, payload []byte) {
	if r.activity == nil {
		return
	}
	var metadata map[string]any
	if meta := gjson.GetBytes(payload, "metadata"); meta.IsObject() {
		metadata = make(map[string]any, len(meta.Map()))
		for k, v := range meta.Map() {
			metadata[k] = v.Value()
		}
	}
	entry := store.ActivityEntry{
		UserID:    conn.Identity.ID,
		Action:    gjson.GetBytes(payload, "action").String(),
		Target:    gjson.GetBytes(payload, "target").String(),
		Metadata:  metadata,
		IP:        conn.IPAddress,
		UserAgent: conn.UserAgent,
		Timestamp: time.Now().UTC(),
	}
	if err := r.activity.Append(ctx, entry); err != nil {
		r.logger.Warn("failed to append activity log", slog.Any("error", err))
	}
}

// reply answers the originating connection, echoing the request id so
// the client can correlate callbacks. Sends to a connection that
// disconnected mid-handler are dropped by the transport.
func (r *Router) reply(conn *state.Connection, event, id string, payload any) {
	frame, err := protocol.Encode(event, id, payload)
	if err != nil {
		r.logger.Error("failed to encode reply", slog.String("event", event), slog.Any("error", err))
		return
	}
	if conn.Transport.Alive() {
		conn.Transport.Send(frame)
	}
}

// sendError translates err through the taxonomy, answers the client
// with the safe envelope, and escalates critical classes to the
// operator room. Escalation failures are swallowed.
func (r *Router) sendError(conn *state.Connection, id string, err error) {
	code := fault.CodeOf(err)
	metrics.ErrorsTotal.WithLabelValues(string(code)).Inc()
	r.logger.Warn("client event failed",
		slog.String("connID", conn.ID.String()),
		slog.String("code", string(code)),
		slog.Any("error", err),
	)
	r.reply(conn, protocol.EventError, id, fault.Envelope(err))

	if code.Critical() && r.dispatcher != nil {
		alertCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		alertErr := r.dispatcher.AlertOperators(alertCtx, protocol.Alert{
			Type:     "critical_error",
			Message:  string(code) + " raised while handling a client event",
			Severity: "critical",
		})
		if alertErr != nil && !errors.Is(alertErr, context.Canceled) {
			r.logger.Warn("operator escalation failed", slog.Any("error", alertErr))
		}
	}
}
