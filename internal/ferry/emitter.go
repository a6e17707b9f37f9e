package ferry

// Emitter receives simulation events. Emit is called while the boarding lock
// may be held, so implementations must never call back into State.
type Emitter interface {
	Emit(kind string, payload any)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(kind string, payload any)

// Emit calls f.
func (f EmitterFunc) Emit(kind string, payload any) {
	f(kind, payload)
}

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(string, any) {})
