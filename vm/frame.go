package vm

// frameMax mirrors the original implementation's FRAME_MAX (src/vm/mod.rs):
// the deepest call chain the VM tolerates before reporting stack overflow.
const frameMax = 64

// stackMax is SPEC_FULL.md §4's carried-over sizing derivation,
// FRAME_MAX * u8::MAX slots, applied to the single shared operand/locals
// stack every frame indexes into.
const stackMax = frameMax * 255

// callFrame is one activation record. Locals for the frame live directly
// in the VM's shared stack starting at slotBase — there is no separate
// locals array, matching the original's CallFrame{slot_bottom,
// slot_count} addressing into its own ArrayVec<Value, STACK_MAX>.
type callFrame struct {
	fnName   string
	pathID   int
	ip       int
	slotBase int
	native   bool
}
