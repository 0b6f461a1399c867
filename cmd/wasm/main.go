//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/venuekit/venuekit/backend-go/internal/collab"
	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/engine"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	// Create the engine API object
	venueEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	venueEngine.Set("loadDocument", js.FuncOf(loadDocument))
	venueEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	venueEngine.Set("applyOperation", js.FuncOf(applyOperation))
	venueEngine.Set("setCanvasSize", js.FuncOf(setCanvasSize))
	venueEngine.Set("setTool", js.FuncOf(setTool))
	venueEngine.Set("setDraftCurvature", js.FuncOf(setDraftCurvature))
	venueEngine.Set("setSelection", js.FuncOf(setSelection))
	venueEngine.Set("selectAll", js.FuncOf(selectAll))
	venueEngine.Set("clearSelection", js.FuncOf(clearSelection))
	venueEngine.Set("rotateSelection", js.FuncOf(rotateSelection))
	venueEngine.Set("bringToFront", js.FuncOf(bringToFront))
	venueEngine.Set("sendToBack", js.FuncOf(sendToBack))
	venueEngine.Set("deleteSelection", js.FuncOf(deleteSelection))
	venueEngine.Set("lockSelection", js.FuncOf(lockSelection))
	venueEngine.Set("unlockAll", js.FuncOf(unlockAll))
	venueEngine.Set("relabelSelection", js.FuncOf(relabelSelection))
	venueEngine.Set("assignSection", js.FuncOf(assignSection))
	venueEngine.Set("setSeatType", js.FuncOf(setSeatType))
	venueEngine.Set("setSeatStatus", js.FuncOf(setSeatStatus))
	venueEngine.Set("focusSelection", js.FuncOf(focusSelection))
	venueEngine.Set("pointerDown", js.FuncOf(pointerHandler(eng.PointerDown)))
	venueEngine.Set("pointerMove", js.FuncOf(pointerHandler(eng.PointerMove)))
	venueEngine.Set("pointerUp", js.FuncOf(pointerHandler(eng.PointerUp)))
	venueEngine.Set("pointerLeave", js.FuncOf(pointerLeave))
	venueEngine.Set("wheel", js.FuncOf(wheel))
	venueEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← engine) ---
	venueEngine.Set("render", js.FuncOf(render))
	venueEngine.Set("hitTest", js.FuncOf(hitTest))
	venueEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	venueEngine.Set("getSelection", js.FuncOf(getSelection))
	venueEngine.Set("getViewport", js.FuncOf(getViewport))
	venueEngine.Set("getMode", js.FuncOf(getMode))
	venueEngine.Set("getTool", js.FuncOf(getTool))
	venueEngine.Set("exportDocument", js.FuncOf(exportDocument))

	// Register on global scope
	js.Global().Set("venueEngine", venueEngine)

	// Signal that WASM is ready
	js.Global().Set("venueWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func fail(msg string) any {
	return js.ValueOf(map[string]any{"error": msg})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	if err := eng.LoadDocument(args[0].String()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	eng.LoadSampleDocument()
	return ok()
}

// applyOperation replays a server-acknowledged operation on the local scene.
func applyOperation(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing operation JSON")
	}
	var op collab.Operation
	if err := json.Unmarshal([]byte(args[0].String()), &op); err != nil {
		return fail("invalid operation JSON")
	}
	if err := collab.Apply(eng.Scene(), &op); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setCanvasSize(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	eng.SetCanvasSize(args[0].Float(), args[1].Float())
	return nil
}

func setTool(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing tool")
	}
	tool, found := engine.ParseTool(args[0].String())
	if !found {
		return fail("unknown tool")
	}
	eng.SetTool(tool)
	return ok()
}

func setDraftCurvature(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.SetDraftCurvature(args[0].Float())
	return nil
}

func setSelection(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		eng.SetSelection(nil)
		return nil
	}

	arr := args[0]
	ids := make([]string, arr.Length())
	for i := range ids {
		ids[i] = arr.Index(i).String()
	}
	eng.SetSelection(ids)
	return nil
}

func selectAll(this js.Value, args []js.Value) any {
	eng.SelectAll()
	return nil
}

func clearSelection(this js.Value, args []js.Value) any {
	eng.ClearSelection()
	return nil
}

func rotateSelection(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.RotateSelection(args[0].Float())
	return nil
}

func bringToFront(this js.Value, args []js.Value) any {
	eng.BringSelectionToFront()
	return nil
}

func sendToBack(this js.Value, args []js.Value) any {
	eng.SendSelectionToBack()
	return nil
}

func deleteSelection(this js.Value, args []js.Value) any {
	deleted := eng.DeleteSelection()
	out := make([]any, len(deleted))
	for i, id := range deleted {
		out[i] = id
	}
	return js.ValueOf(out)
}

func lockSelection(this js.Value, args []js.Value) any {
	locked := true
	if len(args) > 0 && args[0].Type() == js.TypeBoolean {
		locked = args[0].Bool()
	}
	eng.LockSelection(locked)
	return nil
}

func unlockAll(this js.Value, args []js.Value) any {
	eng.UnlockAll()
	return nil
}

func relabelSelection(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.RelabelSelection(args[0].String())
	return nil
}

func assignSection(this js.Value, args []js.Value) any {
	sectionID := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		sectionID = args[0].String()
	}
	eng.AssignSelectionSection(sectionID)
	return nil
}

func setSeatType(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.SetSelectionSeatType(document.SeatType(args[0].String()))
	return nil
}

func setSeatStatus(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.SetSelectionSeatStatus(document.SeatStatus(args[0].String()))
	return nil
}

func focusSelection(this js.Value, args []js.Value) any {
	duration := float32(0.4)
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		duration = float32(args[0].Float())
	}
	eng.FocusSelection(duration)
	return nil
}

// pointerHandler adapts a pointer callback to a JS function taking
// (x, y, button, shift, panModifier).
func pointerHandler(fn func(engine.PointerEvent)) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return nil
		}
		ev := engine.PointerEvent{X: args[0].Float(), Y: args[1].Float()}
		if len(args) > 2 {
			ev.Button = engine.Button(args[2].Int())
		}
		if len(args) > 3 {
			ev.Shift = args[3].Truthy()
		}
		if len(args) > 4 {
			ev.PanModifier = args[4].Truthy()
		}
		fn(ev)
		return nil
	}
}

func pointerLeave(this js.Value, args []js.Value) any {
	eng.PointerLeave()
	return nil
}

func wheel(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return nil
	}
	eng.Wheel(args[0].Float(), args[1].Float(), args[2].Float())
	return nil
}

// tick advances animations by dt seconds and returns the frame to draw, or
// null when nothing changed.
func tick(this js.Value, args []js.Value) any {
	dt := 0.0
	if len(args) > 0 {
		dt = args[0].Float()
	}
	frame, changed := eng.Tick(dt)
	if !changed {
		return js.Null()
	}
	return js.ValueOf(frame)
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getSelectionBounds(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getSelection(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetSelection())
}

func getViewport(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetViewport())
}

func getMode(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetMode())
}

func getTool(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.Tool().String())
}

func exportDocument(this js.Value, args []js.Value) any {
	data, err := eng.ExportDocument()
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(data)
}
