package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/typeid"
)

const saveTimeout = 10 * time.Second

// DocumentLoader loads the latest saved document of a venue. It returns a
// nil document when nothing has been saved yet.
type DocumentLoader func(ctx context.Context, venueID string) (*document.Document, error)

// DocumentSaver persists a snapshot of a venue document.
type DocumentSaver func(ctx context.Context, venueID string, doc *document.Document) error

type Room struct {
	venueID  string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	state    *DocumentState

	// opMu orders apply+broadcast so peers see operations in serverSeq order.
	opMu     sync.Mutex
	savedSeq int64
}

func NewRoom(venueID string, doc *document.Document) *Room {
	return &Room{
		venueID:  venueID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
		state:    NewDocumentState(doc),
	}
}

func (r *Room) dirty() bool {
	return r.state.Seq() > r.savedSeq
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // venueID -> room
	register   chan *Client
	unregister chan *Client

	loader   DocumentLoader
	saver    DocumentSaver
	autosave time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewHub creates a hub that loads rooms through loader and saves dirty rooms
// through saver every autosave interval. Either function may be nil.
func NewHub(loader DocumentLoader, saver DocumentSaver, autosave time.Duration) *Hub {
	if autosave <= 0 {
		autosave = 30 * time.Second
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		loader:     loader,
		saver:      saver,
		autosave:   autosave,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	ticker := time.NewTicker(h.autosave)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveDirty()
		case <-h.stop:
			h.saveDirty()
			return
		}
	}
}

// Stop saves every dirty room and stops Run. It blocks until Run returns.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.RLock()
	room, ok := h.rooms[client.VenueID]
	h.mu.RUnlock()

	if !ok {
		doc, err := h.load(client.VenueID)
		if err != nil {
			slog.Error("load venue", "error", err, "venue", client.VenueID)
			client.Send(newMessage(TypeError, ErrorPayload{Message: "failed to load venue"}))
			client.close()
			return
		}
		room = NewRoom(client.VenueID, doc)
		h.mu.Lock()
		h.rooms[client.VenueID] = room
		h.mu.Unlock()
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, UserID: client.UserID}))
	client.Send(docSyncMessage(room.state))

	// Send current presence state to new client
	stateMsg := room.presence.StateMessage()
	if stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.VenueID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "venue", client.VenueID)
}

func (h *Hub) load(venueID string) (*document.Document, error) {
	if h.loader == nil {
		return document.NewEmptyDocument(""), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	doc, err := h.loader(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = document.NewEmptyDocument("")
	}
	return doc, nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.VenueID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.VenueID)
	}
	h.mu.Unlock()

	if empty {
		// An import that already passed its open check lands before the final save.
		room.opMu.Lock()
		h.saveRoom(room)
		room.opMu.Unlock()
	}

	// Broadcast leave to remaining clients
	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.VenueID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "venue", client.VenueID)
}

func (h *Hub) saveDirty() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		h.saveRoom(room)
	}
}

func (h *Hub) saveRoom(room *Room) {
	if h.saver == nil || !room.dirty() {
		return
	}
	doc, seq := room.state.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := h.saver(ctx, room.venueID, doc); err != nil {
		slog.Error("save venue", "error", err, "venue", room.venueID)
		return
	}
	room.savedSeq = seq
	slog.Debug("venue saved", "venue", room.venueID, "seq", seq)
}

func (h *Hub) room(venueID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[venueID]
	return room, ok
}

func (h *Hub) isOpen(room *Room) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room.venueID] == room
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	case TypeDocSync:
		if room, ok := h.room(sender.VenueID); ok {
			sender.Send(docSyncMessage(room.state))
		}
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid operation payload", "error", err, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid operation payload"}))
		return
	}
	op := submit.Operation

	room, ok := h.room(sender.VenueID)
	if !ok {
		return
	}

	room.opMu.Lock()
	defer room.opMu.Unlock()

	seq, err := room.state.ApplyOperation(&op)
	if err != nil {
		slog.Debug("operation rejected", "error", err, "op", op.ID, "user", sender.UserID)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{
			OperationID: op.ID,
			Reason:      err.Error(),
		}))
		return
	}

	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: time.Now().UnixMilli(),
		Created:         op.Created,
	})
	ack.Seq = seq
	sender.Send(ack)

	broadcast := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	broadcast.UserID = sender.UserID
	broadcast.Seq = seq
	h.broadcastToRoom(sender.VenueID, broadcast, sender.ClientID)
}

// ImportDocument replaces the document of an open venue with data and
// broadcasts the change to every client in the room. It reports whether the
// venue was open.
func (h *Hub) ImportDocument(venueID string, data []byte) (bool, error) {
	room, ok := h.room(venueID)
	if !ok {
		return false, nil
	}

	op := Operation{
		ID:        typeid.NewOpID(),
		Type:      OpSceneImport,
		Timestamp: time.Now().UnixMilli(),
		Document:  data,
	}

	room.opMu.Lock()
	defer room.opMu.Unlock()

	// The last client may have left since the lookup; the room is then
	// already saved and the caller must persist the import itself.
	if !h.isOpen(room) {
		return false, nil
	}

	seq, err := room.state.ApplyOperation(&op)
	if err != nil {
		return true, err
	}

	broadcast := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		ServerSeq: seq,
	})
	broadcast.Seq = seq
	h.broadcastToRoom(venueID, broadcast, "")
	return true, nil
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.VenueID)
	if !ok {
		return
	}

	room.presence.Update(sender.UserID, &presence)

	// Broadcast to other clients in room
	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	h.broadcastToRoom(sender.VenueID, outMsg, sender.ClientID)
}

func (h *Hub) broadcastToRoom(venueID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[venueID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func docSyncMessage(ds *DocumentState) *Message {
	doc, seq := ds.Snapshot()
	msg := newMessage(TypeDocSync, DocSyncPayload{Document: doc, ServerSeq: seq})
	msg.Seq = seq
	return msg
}
