package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"NightreignMatch/internal/matchmaker"
	"NightreignMatch/internal/utils"
	"NightreignMatch/internal/websocket"
)

// 上行 / 下行事件名
const (
	EventJoinQueue     = "join_queue"
	EventJoinMatchRoom = "join_match_room"
	EventChatMessage   = "chat_message"

	EventMatchFound = "match_found"
	EventWaiting    = "waiting"
	EventError      = "error"
	EventRoomJoined = "room_joined"
	EventVoiceRoom  = "voice_room"
)

const (
	maxChatLength = 500
	lookupTimeout = 5 * time.Second
)

// Matcher 是 lobby 用到的匹配服务能力
type Matcher interface {
	SubmitJoin(ctx context.Context, req matchmaker.JoinRequest) (matchmaker.Outcome, error)
	SubmitDisconnect(ctx context.Context, identity string) error
	Repo() matchmaker.Repo
}

type joinRoomRequest struct {
	Password string `json:"password"`
}

type chatRequest struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Lobby 把 hub 上行事件路由到匹配服务，并维护按口令划分的队伍聊天室。
// 同时实现 matchmaker.Delivery，把成队结果推给对应连接。
type Lobby struct {
	mu         sync.RWMutex
	matcher    Matcher
	hub        websocket.HubInterface
	queuedBy   map[string]string            // identity -> 发起排队的 connID
	rooms      map[string]map[string]string // password -> identity -> connID
	playerRoom map[string]string            // identity -> password
}

func NewLobby(hub websocket.HubInterface) *Lobby {
	return &Lobby{
		hub:        hub,
		queuedBy:   make(map[string]string),
		rooms:      make(map[string]map[string]string),
		playerRoom: make(map[string]string),
	}
}

// Attach 绑定匹配服务（服务本身又以 lobby 作为 Delivery，所以分两步构造）
func (l *Lobby) Attach(m Matcher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.matcher = m
}

// HandlePlayerMessage 统一入口（来自 Hub.OnIncoming）
func (l *Lobby) HandlePlayerMessage(msg websocket.IncomingMessage) {
	l.mu.RLock()
	m := l.matcher
	l.mu.RUnlock()
	if m == nil {
		return
	}

	switch msg.Event {
	case EventJoinQueue:
		l.joinQueue(m, msg)
	case websocket.EventDisconnect:
		l.disconnect(m, msg)
	case EventJoinMatchRoom:
		l.joinRoom(m, msg)
	case EventChatMessage:
		l.chat(msg)
	default:
		l.sendError(msg.From, "unknown event "+msg.Event)
	}
}

func (l *Lobby) joinQueue(m Matcher, msg websocket.IncomingMessage) {
	var req matchmaker.JoinRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		l.sendError(msg.From, "invalid join_queue payload")
		return
	}
	// identity 以连接为准
	req.Identity = msg.From

	l.mu.Lock()
	l.queuedBy[msg.From] = msg.ConnID
	l.mu.Unlock()

	out, err := m.SubmitJoin(context.Background(), req)
	if err != nil {
		if errors.Is(err, matchmaker.ErrInvalidRequest) {
			l.forgetQueued(msg.From, msg.ConnID)
		}
		l.sendError(msg.From, err.Error())
		return
	}
	if out.Formed() && out.Match.Includes(msg.From) {
		// match_found 已经通过 Deliver 发出
		return
	}
	l.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
		Event: EventWaiting,
		Data:  matchmaker.WaitingResponse{Success: false, Message: matchmaker.WaitingMessage},
	})
}

// disconnect 只有发起排队的那条连接断开才移出队列；
// 被新连接顶替的旧连接断开时忽略
func (l *Lobby) disconnect(m Matcher, msg websocket.IncomingMessage) {
	l.mu.Lock()
	owns := l.queuedBy[msg.From] == msg.ConnID
	if owns {
		delete(l.queuedBy, msg.From)
	}
	if pw, ok := l.playerRoom[msg.From]; ok && l.rooms[pw][msg.From] == msg.ConnID {
		l.leaveRoomLocked(msg.From)
	}
	l.mu.Unlock()

	if !owns {
		return
	}
	if err := m.SubmitDisconnect(context.Background(), msg.From); err != nil {
		utils.Log.Error("SubmitDisconnect error", "identity", msg.From, "err", err)
	}
}

// joinRoom 口令为空时进入玩家自己最近一次成队的房间
func (l *Lobby) joinRoom(m Matcher, msg websocket.IncomingMessage) {
	var req joinRoomRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			l.sendError(msg.From, "invalid join_match_room payload")
			return
		}
	}
	repo := m.Repo()
	if repo == nil {
		l.sendError(msg.From, "match rooms unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	var (
		am  *matchmaker.ArchivedMatch
		err error
	)
	if password := strings.TrimSpace(req.Password); password != "" {
		am, err = repo.MatchByPassword(ctx, password)
	} else {
		am, err = repo.MatchOfPlayer(ctx, msg.From)
	}
	if err != nil {
		utils.Log.Error("match lookup error", "identity", msg.From, "err", err)
		l.sendError(msg.From, "match lookup failed")
		return
	}
	// 只有该口令对应队伍的成员才能进入
	if am == nil || !am.Includes(msg.From) {
		l.sendError(msg.From, "match room not found")
		return
	}
	room := am.Password

	l.mu.Lock()
	l.leaveRoomLocked(msg.From)
	members, ok := l.rooms[room]
	if !ok {
		members = make(map[string]string)
		l.rooms[room] = members
	}
	members[msg.From] = msg.ConnID
	l.playerRoom[msg.From] = room
	l.mu.Unlock()

	l.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
		Event: EventRoomJoined,
		Data: map[string]any{
			"room":         room,
			"sessionId":    am.SessionID,
			"participants": am.Participants,
		},
	})
}

func (l *Lobby) chat(msg websocket.IncomingMessage) {
	var req chatRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		l.sendError(msg.From, "invalid chat_message payload")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || len([]rune(text)) > maxChatLength {
		l.sendError(msg.From, "chat text must be 1-500 characters")
		return
	}

	l.mu.RLock()
	inRoom := req.Room != "" && l.playerRoom[msg.From] == req.Room
	members := l.membersLocked(req.Room)
	l.mu.RUnlock()
	if !inRoom {
		l.sendError(msg.From, "not a member of room "+req.Room)
		return
	}

	// 房间内广播
	l.hub.BroadcastToPlayers(members, websocket.OutgoingMessage{
		Event: EventChatMessage,
		Data: map[string]any{
			"room": req.Room,
			"user": msg.From,
			"text": text,
		},
	})
}

// Deliver 实现 matchmaker.Delivery
func (l *Lobby) Deliver(view matchmaker.ParticipantView) {
	l.mu.Lock()
	delete(l.queuedBy, view.Identity)
	l.mu.Unlock()

	l.hub.SendToPlayer(view.Identity, websocket.OutgoingMessage{
		Event: EventMatchFound,
		Data:  view,
	})
}

func (l *Lobby) DeliverRoom(identity string, room matchmaker.RoomView) {
	l.hub.SendToPlayer(identity, websocket.OutgoingMessage{
		Event: EventVoiceRoom,
		Data:  room,
	})
}

// Members 聊天室当前成员（测试 / 调试用）
func (l *Lobby) Members(password string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.membersLocked(password)
}

func (l *Lobby) membersLocked(password string) []string {
	out := make([]string, 0, len(l.rooms[password]))
	for id := range l.rooms[password] {
		out = append(out, id)
	}
	return out
}

func (l *Lobby) leaveRoomLocked(identity string) {
	pw, ok := l.playerRoom[identity]
	if !ok {
		return
	}
	delete(l.playerRoom, identity)
	delete(l.rooms[pw], identity)
	if len(l.rooms[pw]) == 0 {
		delete(l.rooms, pw)
	}
}

func (l *Lobby) forgetQueued(identity, connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queuedBy[identity] == connID {
		delete(l.queuedBy, identity)
	}
}

func (l *Lobby) sendError(identity, message string) {
	l.hub.SendToPlayer(identity, websocket.OutgoingMessage{
		Event: EventError,
		Data:  map[string]string{"message": message},
	})
}
