package puppet

// syntheticPointerEvent is one injected pointer event, in world (device
// pixel) coordinates.
type syntheticPointerEvent struct {
	x, y    float64
	pressed bool
	button  MouseButton
}

// InjectPress queues a left-button press at (x, y). The event is consumed on
// the next frame's input processing.
func (s *Scene) InjectPress(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{x: x, y: y, pressed: true, button: MouseButtonLeft})
}

// InjectRelease queues a left-button release at (x, y).
func (s *Scene) InjectRelease(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{x: x, y: y, button: MouseButtonLeft})
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two frames.
func (s *Scene) InjectClick(x, y float64) {
	s.InjectPress(x, y)
	s.InjectRelease(x, y)
}

// PendingInjections returns the number of queued synthetic events.
func (s *Scene) PendingInjections() int {
	return len(s.injectQueue)
}

// processInjectedInput pops one queued event and runs it through the pointer
// state machine. Returns true if an event was consumed.
func (s *Scene) processInjectedInput() bool {
	if len(s.injectQueue) == 0 {
		return false
	}
	evt := s.injectQueue[0]
	copy(s.injectQueue, s.injectQueue[1:])
	s.injectQueue = s.injectQueue[:len(s.injectQueue)-1]
	s.processPointer(evt.x, evt.y, evt.pressed, evt.button)
	return true
}
