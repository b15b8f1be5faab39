package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"teamchat-backend/internal/chaterr"
	"teamchat-backend/internal/logger"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/services"
	"teamchat-backend/internal/utils"
)

// Gateway dispatches socket events for authenticated connections. Every
// taxonomy error is converted into a single error event on the originating
// connection; no event ever affects another connection's state.
type Gateway struct {
	rooms    *RoomManager
	chats    *services.ChatService
	messages *services.MessageService
}

func NewGateway(rooms *RoomManager, chats *services.ChatService, messages *services.MessageService) *Gateway {
	return &Gateway{rooms: rooms, chats: chats, messages: messages}
}

// Rooms exposes the connection registry for the HTTP layer and the socket
// read loop.
func (g *Gateway) Rooms() *RoomManager {
	return g.rooms
}

// HandleEvent processes one inbound frame for a connection. The read loop
// calls it synchronously, so events on one connection are handled one at a
// time in arrival order.
func (g *Gateway) HandleEvent(ctx context.Context, c Sender, connID string, userID uuid.UUID, userName string, raw []byte) {
	var ev models.ClientEvent
	if err := utils.SafeJSONParse(raw, &ev); err != nil {
		g.sendError(c, "invalid event payload")
		return
	}

	switch ev.Event {
	case models.EventJoinChat:
		g.handleJoin(ctx, c, connID, userID, ev)
	case models.EventLeaveChat:
		g.rooms.Leave(connID, ev.ChatID)
	case models.EventTyping:
		g.handleTyping(connID, userID, ev)
	case models.EventSendMessage:
		g.handleSend(ctx, c, userID, userName, ev)
	case models.EventEditMessage:
		g.handleEdit(ctx, c, userID, ev)
	case models.EventDeleteMessage:
		g.handleDelete(ctx, c, userID, ev)
	case models.EventRenameChat:
		g.handleRename(ctx, c, userID, ev)
	default:
		logger.L().Debug().Str("event", ev.Event).Str("conn_id", connID).Msg("unknown event")
		g.sendError(c, "unknown event")
	}
}

func (g *Gateway) handleJoin(ctx context.Context, c Sender, connID string, userID uuid.UUID, ev models.ClientEvent) {
	// History doubles as the membership check: a rejected join yields an
	// error event and no enrollment.
	history, err := g.messages.History(ctx, userID, ev.ChatID)
	if err != nil {
		g.reportError(c, err, "join chat")
		return
	}

	g.rooms.Join(connID, ev.ChatID)

	if history == nil {
		history = []models.Message{}
	}
	g.send(c, models.ChatHistoryEvent{
		Event:    models.EventChatHistory,
		ChatID:   ev.ChatID,
		Messages: history,
	})
}

func (g *Gateway) handleTyping(connID string, userID uuid.UUID, ev models.ClientEvent) {
	// Fire-and-forget: no persistence, no delivery guarantee, silently
	// dropped when the sender has not joined the room.
	if !g.rooms.IsJoined(connID, ev.ChatID) {
		return
	}
	g.rooms.BroadcastToRoomExcept(ev.ChatID, connID, models.UserTypingEvent{
		Event:  models.EventUserTyping,
		ChatID: ev.ChatID,
		UserID: userID,
	})
}

func (g *Gateway) handleSend(ctx context.Context, c Sender, userID uuid.UUID, userName string, ev models.ClientEvent) {
	msg, members, err := g.messages.Send(ctx, userID, userName, ev.ChatID, ev.Content)
	if err != nil {
		g.reportError(c, err, "send message")
		return
	}

	// Broadcast only after successful persistence. The room broadcast serves
	// connections with the chat open; the per-user notify refreshes list
	// views of participants who do not have it open.
	g.rooms.BroadcastToRoom(msg.ChatID, models.MessageEvent{
		Event:   models.EventNewMessage,
		ChatID:  msg.ChatID,
		Message: msg,
	})
	g.rooms.NotifyUsers(members, models.ChatUpdatedEvent{
		Event:       models.EventChatUpdated,
		ChatID:      msg.ChatID,
		LastMessage: msg,
	})
}

func (g *Gateway) handleEdit(ctx context.Context, c Sender, userID uuid.UUID, ev models.ClientEvent) {
	msg, previewMembers, err := g.messages.Edit(ctx, userID, ev.MessageID, ev.Content)
	if err != nil {
		g.reportError(c, err, "edit message")
		return
	}

	g.rooms.BroadcastToRoom(msg.ChatID, models.MessageEvent{
		Event:   models.EventMessageEdited,
		ChatID:  msg.ChatID,
		Message: msg,
	})
	// Non-nil only when preview refresh on edit is enabled and this was the
	// chat's latest message.
	if previewMembers != nil {
		g.rooms.NotifyUsers(previewMembers, models.ChatUpdatedEvent{
			Event:       models.EventChatUpdated,
			ChatID:      msg.ChatID,
			LastMessage: msg,
		})
	}
}

func (g *Gateway) handleDelete(ctx context.Context, c Sender, userID uuid.UUID, ev models.ClientEvent) {
	msg, err := g.messages.Delete(ctx, userID, ev.MessageID)
	if err != nil {
		g.reportError(c, err, "delete message")
		return
	}

	// The broadcast carries the now-cleared message so clients can blank it
	// out in place.
	g.rooms.BroadcastToRoom(msg.ChatID, models.MessageEvent{
		Event:   models.EventMessageDeleted,
		ChatID:  msg.ChatID,
		Message: msg,
	})
}

func (g *Gateway) handleRename(ctx context.Context, c Sender, userID uuid.UUID, ev models.ClientEvent) {
	chat, members, err := g.chats.Rename(ctx, userID, ev.ChatID, ev.Name)
	if err != nil {
		g.reportError(c, err, "rename chat")
		return
	}

	renamed := models.ChatRenamedEvent{
		Event:  models.EventChatRenamed,
		ChatID: chat.ID,
		Name:   *chat.Name,
	}
	g.rooms.BroadcastToRoom(chat.ID, renamed)
	// Participants without the room open still need the list label updated.
	g.rooms.NotifyUsers(members, renamed)
}

func (g *Gateway) send(c Sender, event interface{}) {
	if err := c.SendJSON(event); err != nil {
		logger.L().Warn().Err(err).Msg("socket write failed")
	}
}

// reportError turns taxonomy errors into an error event for the originating
// connection and logs everything else as an internal failure.
func (g *Gateway) reportError(c Sender, err error, op string) {
	switch {
	case errors.Is(err, chaterr.ErrNotFound),
		errors.Is(err, chaterr.ErrForbidden),
		errors.Is(err, chaterr.ErrValidation),
		errors.Is(err, chaterr.ErrConflict):
		g.sendError(c, err.Error())
	default:
		logger.L().Error().Err(err).Str("op", op).Msg("internal failure")
		g.sendError(c, "internal error, please retry")
	}
}

func (g *Gateway) sendError(c Sender, message string) {
	g.send(c, models.ErrorEvent{Event: models.EventError, Message: message})
}
