package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
)

// memStore is an in-memory DocumentLoader/DocumentSaver pair.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]*document.Document
	saves   map[string]int
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*document.Document), saves: make(map[string]int)}
}

func (m *memStore) load(_ context.Context, venueID string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if doc, ok := m.docs[venueID]; ok {
		return doc.Clone(), nil
	}
	return nil, nil
}

func (m *memStore) save(_ context.Context, venueID string, doc *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[venueID] = doc
	m.saves[venueID]++
	return nil
}

func (m *memStore) saveCount(venueID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[venueID]
}

func (m *memStore) doc(venueID string) *document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[venueID]
}

func startHub(t *testing.T, store *memStore) *Hub {
	t.Helper()
	h := NewHub(store.load, store.save, time.Hour)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatalf("client %s: channel closed", c.ClientID)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s: timed out waiting for message", c.ClientID)
	}
	return nil
}

// expect skips messages until one of type typ arrives.
func expect(t *testing.T, c *Client, typ string) *Message {
	t.Helper()
	for {
		if msg := recv(t, c); msg.Type == typ {
			return msg
		}
	}
}

func join(t *testing.T, h *Hub, venueID, userID string) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, "User "+userID, venueID, userID+"-conn")
	h.Register(c)
	expect(t, c, TypeWelcome)
	return c
}

func submit(h *Hub, c *Client, op Operation) {
	payload, _ := json.Marshal(OperationSubmitPayload{Operation: op})
	h.handleMessage(c, &Message{Type: TypeOpSubmit, Payload: payload})
}

func TestHubJoinSendsDocument(t *testing.T) {
	store := newMemStore()
	store.docs["venue_1"] = document.NewEmptyDocument("Hall")
	h := startHub(t, store)

	c := join(t, h, "venue_1", "alice")
	msg := expect(t, c, TypeDocSync)

	var docSync DocSyncPayload
	if err := json.Unmarshal(msg.Payload, &docSync); err != nil {
		t.Fatal(err)
	}
	if docSync.Document == nil || docSync.Document.Name != "Hall" {
		t.Fatalf("doc.sync document = %+v, want Hall", docSync.Document)
	}
	if docSync.ServerSeq != 0 {
		t.Errorf("serverSeq = %d, want 0", docSync.ServerSeq)
	}
	expect(t, c, TypePresenceState)
}

func TestHubOperationAckAndBroadcast(t *testing.T) {
	store := newMemStore()
	h := startHub(t, store)

	alice := join(t, h, "venue_1", "alice")
	expect(t, alice, TypePresenceState)
	bob := join(t, h, "venue_1", "bob")
	expect(t, bob, TypePresenceState)
	expect(t, alice, TypePresenceJoin)

	submit(h, alice, Operation{ID: "op1", Type: OpRowCreate, Label: "A", SeatCount: 2, Position: ptr(geometry.Pt(0, 0))})

	var ack OperationAckPayload
	if err := json.Unmarshal(expect(t, alice, TypeOpAck).Payload, &ack); err != nil {
		t.Fatal(err)
	}
	if ack.OperationID != "op1" || ack.ServerSeq != 1 || len(ack.Created) != 3 {
		t.Errorf("ack = %+v", ack)
	}

	msg := expect(t, bob, TypeOpBroadcast)
	var bc OperationBroadcastPayload
	if err := json.Unmarshal(msg.Payload, &bc); err != nil {
		t.Fatal(err)
	}
	if bc.UserID != "alice" || bc.ServerSeq != 1 || bc.Operation.ID != "op1" {
		t.Errorf("broadcast = %+v", bc)
	}
	if len(bc.Operation.Created) != 3 || bc.Operation.Created[0] != ack.Created[0] {
		t.Errorf("broadcast created = %v, want %v", bc.Operation.Created, ack.Created)
	}
}

func TestHubRejectsInvalidOperation(t *testing.T) {
	h := startHub(t, newMemStore())
	c := join(t, h, "venue_1", "alice")
	expect(t, c, TypePresenceState)

	submit(h, c, Operation{ID: "bad", Type: "object.transform"})

	var nack OperationNackPayload
	if err := json.Unmarshal(expect(t, c, TypeOpNack).Payload, &nack); err != nil {
		t.Fatal(err)
	}
	if nack.OperationID != "bad" || nack.Reason == "" {
		t.Errorf("nack = %+v", nack)
	}
}

func TestHubStopSavesDirtyRooms(t *testing.T) {
	store := newMemStore()
	h := startHub(t, store)

	dirty := join(t, h, "venue_dirty", "alice")
	expect(t, dirty, TypePresenceState)
	clean := join(t, h, "venue_clean", "bob")
	expect(t, clean, TypePresenceState)

	submit(h, dirty, Operation{ID: "op1", Type: OpSceneRename, Name: "Arena"})
	expect(t, dirty, TypeOpAck)

	h.Stop()

	if n := store.saveCount("venue_dirty"); n != 1 {
		t.Errorf("dirty room saved %d times, want 1", n)
	}
	if doc := store.doc("venue_dirty"); doc == nil || doc.Name != "Arena" {
		t.Errorf("saved document = %+v", doc)
	}
	if n := store.saveCount("venue_clean"); n != 0 {
		t.Errorf("clean room saved %d times, want 0", n)
	}
}

func TestHubSavesWhenLastClientLeaves(t *testing.T) {
	store := newMemStore()
	h := startHub(t, store)

	c := join(t, h, "venue_1", "alice")
	expect(t, c, TypePresenceState)
	submit(h, c, Operation{ID: "op1", Type: OpSeatCreate, Position: ptr(geometry.Pt(1, 2))})
	expect(t, c, TypeOpAck)

	h.Unregister(c)
	h.Stop()

	if n := store.saveCount("venue_1"); n != 1 {
		t.Fatalf("saved %d times, want 1", n)
	}
	if got := len(store.doc("venue_1").Seats); got != 1 {
		t.Errorf("saved %d seats, want 1", got)
	}

	// Rejoining loads the saved document.
	h2 := startHub(t, store)
	c2 := join(t, h2, "venue_1", "alice")
	var docSync DocSyncPayload
	if err := json.Unmarshal(expect(t, c2, TypeDocSync).Payload, &docSync); err != nil {
		t.Fatal(err)
	}
	if len(docSync.Document.Seats) != 1 {
		t.Errorf("reloaded %d seats, want 1", len(docSync.Document.Seats))
	}
}

func TestHubLoadFailureClosesClient(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("db down")
	h := startHub(t, store)

	c := NewClient(h, nil, "alice", "Alice", "venue_1", "alice-conn")
	h.Register(c)

	if msg := recv(t, c); msg.Type != TypeError {
		t.Fatalf("first message = %s, want error", msg.Type)
	}
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client was not closed")
	}
}

func TestHubPresenceBroadcast(t *testing.T) {
	h := startHub(t, newMemStore())
	alice := join(t, h, "venue_1", "alice")
	expect(t, alice, TypePresenceState)
	bob := join(t, h, "venue_1", "bob")
	expect(t, bob, TypePresenceState)

	payload, _ := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 10, Y: 20}, Selection: []string{"row_1"}})
	h.handleMessage(alice, &Message{Type: TypePresenceUpdate, Payload: payload})

	msg := expect(t, bob, TypePresenceUpdate)
	if msg.UserID != "alice" {
		t.Errorf("userId = %q, want alice", msg.UserID)
	}
	var p PresencePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.DisplayName != "User alice" || p.Cursor == nil || p.Cursor.X != 10 {
		t.Errorf("presence = %+v", p)
	}
}

func TestHubImportDocument(t *testing.T) {
	store := newMemStore()
	h := startHub(t, store)

	if open, err := h.ImportDocument("venue_1", []byte(`{"name":"Closed"}`)); open || err != nil {
		t.Fatalf("closed venue = %v, %v", open, err)
	}

	alice := join(t, h, "venue_1", "alice")
	expect(t, alice, TypeDocSync)

	if open, err := h.ImportDocument("venue_1", []byte(`not json`)); !open || err == nil {
		t.Fatalf("invalid import = %v, %v", open, err)
	}
	open, err := h.ImportDocument("venue_1", []byte(`{"name":"Imported"}`))
	if !open || err != nil {
		t.Fatalf("ImportDocument = %v, %v", open, err)
	}

	msg := expect(t, alice, TypeOpBroadcast)
	var bc OperationBroadcastPayload
	if err := json.Unmarshal(msg.Payload, &bc); err != nil {
		t.Fatal(err)
	}
	if bc.Operation.Type != OpSceneImport || bc.ServerSeq != 1 {
		t.Errorf("broadcast = %+v", bc)
	}

	room, _ := h.room("venue_1")
	if doc, _ := room.state.Snapshot(); doc.Name != "Imported" {
		t.Errorf("room document name = %q", doc.Name)
	}
}

func TestHubImportRacingLastLeave(t *testing.T) {
	store := newMemStore()
	h := startHub(t, store)

	alice := join(t, h, "venue_1", "alice")
	expect(t, alice, TypeDocSync)
	room, _ := h.room("venue_1")

	// Park the import behind the room lock, after its open check.
	room.opMu.Lock()
	type result struct {
		open bool
		err  error
	}
	done := make(chan result, 1)
	go func() {
		open, err := h.ImportDocument("venue_1", []byte(`{"name":"Imported"}`))
		done <- result{open, err}
	}()
	time.Sleep(20 * time.Millisecond)

	h.Unregister(alice)
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := h.room("venue_1"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("room still open after last client left")
		}
		time.Sleep(time.Millisecond)
	}
	room.opMu.Unlock()

	select {
	case res := <-done:
		if res.open || res.err != nil {
			t.Fatalf("ImportDocument = %v, %v, want false so the caller saves", res.open, res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("ImportDocument did not return")
	}
}

func TestHubImportSavedWhenLastClientLeaves(t *testing.T) {
	store := newMemStore()
	h := startHub(t, store)

	alice := join(t, h, "venue_1", "alice")
	expect(t, alice, TypeDocSync)
	if open, err := h.ImportDocument("venue_1", []byte(`{"name":"Imported"}`)); !open || err != nil {
		t.Fatalf("ImportDocument = %v, %v", open, err)
	}

	h.Unregister(alice)
	h.Stop()

	if doc := store.doc("venue_1"); doc == nil || doc.Name != "Imported" {
		t.Fatalf("saved document = %+v", doc)
	}
}

func TestSlowClientIsDisconnected(t *testing.T) {
	c := NewClient(nil, nil, "alice", "Alice", "venue_1", "alice-conn")
	for range sendBuffer + 1 {
		c.Send(newMessage(TypePresenceUpdate, PresencePayload{}))
	}
	c.Send(newMessage(TypePresenceUpdate, PresencePayload{}))

	n := 0
	for range c.send {
		n++
	}
	if n != sendBuffer {
		t.Errorf("buffered %d messages, want %d", n, sendBuffer)
	}
}
