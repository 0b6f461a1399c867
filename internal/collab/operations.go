package collab

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrEntityNotFound   = errors.New("entity not found")
	ErrEntityLocked     = errors.New("entity locked")
)

// DefaultRowSpacing separates rows of a rows.createMultiple batch when the
// operation leaves spacing unset.
const DefaultRowSpacing = 40.0

// DocumentState holds the authoritative venue state for a room
type DocumentState struct {
	mu        sync.RWMutex
	scene     *scene.Scene
	serverSeq int64
	opLog     []Operation // Operation history since the room was loaded
}

// NewDocumentState creates a new document state that takes ownership of doc.
func NewDocumentState(doc *document.Document) *DocumentState {
	return &DocumentState{
		scene: scene.NewFromDocument(doc),
		opLog: make([]Operation, 0),
	}
}

// Snapshot returns a deep copy of the current document and the sequence it
// reflects.
func (ds *DocumentState) Snapshot() (*document.Document, int64) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.scene.Document().Clone(), ds.serverSeq
}

// Seq returns the server sequence of the last applied operation.
func (ds *DocumentState) Seq() int64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.serverSeq
}

// OpsSince returns the operations applied after seq.
func (ds *DocumentState) OpsSince(seq int64) []Operation {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	first := ds.serverSeq - int64(len(ds.opLog)) + 1
	if seq+1 < first {
		seq = first - 1
	}
	if seq >= ds.serverSeq {
		return nil
	}
	return slices.Clone(ds.opLog[seq+1-first:])
}

// ApplyOperation applies an operation to the document and returns the server
// sequence. The ids of any created entities are recorded in op.Created.
func (ds *DocumentState) ApplyOperation(op *Operation) (int64, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	op.Created = nil
	if err := Apply(ds.scene, op); err != nil {
		return 0, err
	}

	ds.serverSeq++
	ds.opLog = append(ds.opLog, *op)

	return ds.serverSeq, nil
}

// idRecorder hands out replayed ids first and records every id drawn.
type idRecorder struct {
	replay    []string
	fallback  func(document.Kind) string
	allocated []string
}

func (r *idRecorder) next(k document.Kind) string {
	var id string
	if len(r.replay) > 0 {
		id, r.replay = r.replay[0], r.replay[1:]
	} else {
		id = r.fallback(k)
	}
	r.allocated = append(r.allocated, id)
	return id
}

// Apply applies op to s. When op.Created is set, created entities reuse
// those ids so that every replica converges on the same document; otherwise
// op.Created is filled with the ids that were allocated.
func Apply(s *scene.Scene, op *Operation) error {
	prev := s.IDGenerator()
	ids := &idRecorder{replay: slices.Clone(op.Created), fallback: prev}
	s.SetIDGenerator(ids.next)
	defer s.SetIDGenerator(prev)

	if err := applyOperation(s, op); err != nil {
		return fmt.Errorf("%s: %w", op.Type, err)
	}
	op.Created = ids.allocated
	return nil
}

func applyOperation(s *scene.Scene, op *Operation) error {
	switch op.Type {
	case OpRowCreate:
		if op.Position == nil || op.SeatCount < 0 {
			return ErrInvalidOperation
		}
		s.CreateRow(op.Label, op.SeatCount, *op.Position, op.SectionID)
	case OpRowCreateCurved:
		if op.Start == nil || op.End == nil || op.SeatCount < 0 {
			return ErrInvalidOperation
		}
		s.CreateCurvedRow(op.Label, op.SeatCount, *op.Start, *op.End, deref(op.Curvature))
	case OpRowsCreateMultiple:
		if op.Position == nil || len(op.Rows) == 0 {
			return ErrInvalidOperation
		}
		spacing := op.Spacing
		if spacing <= 0 {
			spacing = DefaultRowSpacing
		}
		s.CreateMultipleRows(op.Rows, *op.Position, spacing)
	case OpTableCreate:
		if op.Position == nil || op.Size == nil || op.SeatCount < 0 {
			return ErrInvalidOperation
		}
		s.CreateTable(op.Label, *op.Position, document.TableShape(op.Shape), *op.Size, op.SeatCount)
	case OpSeatCreate:
		if op.Position == nil {
			return ErrInvalidOperation
		}
		s.CreateSeat(op.Label, *op.Position, op.SectionID)
	case OpAreaCreate:
		if op.Position == nil || op.Size == nil {
			return ErrInvalidOperation
		}
		s.CreateArea(op.Label, *op.Position, *op.Size, document.AreaShape(op.Shape))
	case OpLineCreate:
		if s.CreateLine(op.Label, op.Points, op.StrokeWidth, op.LineKind) == "" {
			return fmt.Errorf("%w: a line needs at least two points", ErrInvalidOperation)
		}
	case OpStructureCreate:
		if op.Position == nil || op.Size == nil {
			return ErrInvalidOperation
		}
		s.CreateStructure(op.Label, op.Structure, *op.Position, *op.Size, op.Color)
	case OpSectionCreate:
		s.CreateSection(op.Label, op.Color, op.Price)
	case OpSectionUpdate:
		if _, ok := s.Section(op.ObjectID); !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, op.ObjectID)
		}
		s.UpdateSection(op.ObjectID, op.Label, op.Color, op.Price)
	case OpSectionDelete:
		if _, ok := s.Section(op.ObjectID); !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, op.ObjectID)
		}
		s.DeleteSection(op.ObjectID)
	case OpEntityMove:
		if op.Delta == nil {
			return ErrInvalidOperation
		}
		if err := editable(s, op.ObjectID); err != nil {
			return err
		}
		s.Move(op.ObjectID, *op.Delta)
	case OpEntityResize:
		if op.Size == nil {
			return ErrInvalidOperation
		}
		if err := editable(s, op.ObjectID); err != nil {
			return err
		}
		s.Resize(op.ObjectID, *op.Size)
	case OpEntityLabel:
		if !s.Exists(op.ObjectID) {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, op.ObjectID)
		}
		s.SetLabel(op.ObjectID, op.Label)
	case OpRowCurve:
		if op.Curvature == nil {
			return ErrInvalidOperation
		}
		if err := editableRow(s, op.ObjectID); err != nil {
			return err
		}
		s.SetRowCurve(op.ObjectID, *op.Curvature)
	case OpRowEndpoints:
		if op.Start == nil || op.End == nil {
			return ErrInvalidOperation
		}
		if err := editableRow(s, op.ObjectID); err != nil {
			return err
		}
		s.SetRowEndpoints(op.ObjectID, *op.Start, *op.End)
	case OpSelectionRotate:
		s.Rotate(unlocked(s, op.IDs), op.Degrees)
	case OpSelectionFront:
		s.BringToFront(unlocked(s, op.IDs))
	case OpSelectionBack:
		s.SendToBack(unlocked(s, op.IDs))
	case OpSelectionDelete:
		s.DeleteSelected(unlocked(s, op.IDs))
	case OpSelectionLabels:
		s.UpdateSelectedLabels(op.IDs, op.Pattern)
	case OpSelectionSection:
		if op.SectionID != "" {
			if _, ok := s.Section(op.SectionID); !ok {
				return fmt.Errorf("%w: %s", ErrEntityNotFound, op.SectionID)
			}
		}
		s.AssignSection(unlocked(s, op.IDs), op.SectionID)
	case OpSelectionSeatType:
		if !validSeatType(op.SeatType) {
			return fmt.Errorf("%w: seat type %q", ErrInvalidOperation, op.SeatType)
		}
		s.SetSeatType(unlocked(s, op.IDs), op.SeatType)
	case OpSelectionSeatState:
		if !validSeatStatus(op.SeatStatus) {
			return fmt.Errorf("%w: seat status %q", ErrInvalidOperation, op.SeatStatus)
		}
		s.SetSeatStatus(unlocked(s, op.IDs), op.SeatStatus)
	case OpSelectionLock:
		if op.Locked == nil {
			return ErrInvalidOperation
		}
		s.SetLocked(op.IDs, *op.Locked)
	case OpSceneRename:
		s.SetName(op.Name)
	case OpSceneImport:
		if err := s.Import(op.Document); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	return nil
}

func editable(s *scene.Scene, id string) error {
	if !s.Exists(id) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	if s.IsLocked(id) {
		return fmt.Errorf("%w: %s", ErrEntityLocked, id)
	}
	return nil
}

func editableRow(s *scene.Scene, id string) error {
	if _, ok := s.Row(id); !ok {
		return fmt.Errorf("%w: row %s", ErrEntityNotFound, id)
	}
	return editable(s, id)
}

func unlocked(s *scene.Scene, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.Exists(id) && !s.IsLocked(id) {
			out = append(out, id)
		}
	}
	return out
}

func validSeatType(t document.SeatType) bool {
	switch t {
	case document.SeatStandard, document.SeatWheelchair, document.SeatCompanion, document.SeatVIP:
		return true
	}
	return false
}

func validSeatStatus(st document.SeatStatus) bool {
	switch st {
	case document.SeatAvailable, document.SeatReserved, document.SeatSold, document.SeatBlocked:
		return true
	}
	return false
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
