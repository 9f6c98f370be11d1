package sim

import "log"

// Buffer hook positions.
var (
	HookPosBufPush = &HookPos{Name: "Buffer Push"}
	HookPosBufPop  = &HookPos{Name: "Buffer Pop"}
)

// Unbounded is the capacity of a buffer that never fills up.
const Unbounded = -1

// A Buffer is a named FIFO queue.
type Buffer interface {
	Named
	Hookable

	CanPush() bool

	// Push panics if the buffer is full.
	Push(e any)

	// Pop and Peek return nil if the buffer is empty.
	Pop() any
	Peek() any

	Capacity() int
	Size() int
	Clear()
}

// NewBuffer creates a buffer. Pass Unbounded, or any negative capacity, for
// a buffer without a limit.
func NewBuffer(name string, capacity int) Buffer {
	if name == "" {
		log.Panic("buffer name must not be empty")
	}

	if capacity < 0 {
		capacity = Unbounded
	}

	return &fifo{name: name, capacity: capacity}
}

type fifo struct {
	HookableBase

	name     string
	capacity int
	items    []any
	head     int
}

func (b *fifo) Name() string  { return b.name }
func (b *fifo) Capacity() int { return b.capacity }
func (b *fifo) Size() int     { return len(b.items) - b.head }

func (b *fifo) CanPush() bool {
	return b.capacity == Unbounded || b.Size() < b.capacity
}

func (b *fifo) Push(e any) {
	if !b.CanPush() {
		log.Panicf("buffer %s is full", b.name)
	}

	b.items = append(b.items, e)
	b.notify(HookPosBufPush, e)
}

func (b *fifo) Pop() any {
	if b.Size() == 0 {
		return nil
	}

	e := b.items[b.head]
	b.items[b.head] = nil
	b.head++

	if b.head == len(b.items) {
		b.items = b.items[:0]
		b.head = 0
	}

	b.notify(HookPosBufPop, e)

	return e
}

func (b *fifo) Peek() any {
	if b.Size() == 0 {
		return nil
	}

	return b.items[b.head]
}

func (b *fifo) Clear() {
	b.items = nil
	b.head = 0
}

func (b *fifo) notify(pos *HookPos, item any) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{Domain: b, Pos: pos, Item: item})
}

// BufferLevel is a copy of a buffer's fill state. Owners that guard their
// buffers with a lock hand out levels instead of the buffers themselves.
type BufferLevel struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

// LevelOf reads the current level of the buffer. The caller must hold
// whatever lock guards the buffer.
func LevelOf(b Buffer) BufferLevel {
	return BufferLevel{Buffer: b.Name(), Level: b.Size(), Cap: b.Capacity()}
}

// Percent returns how full the buffer is, or 0 for unbounded buffers.
func (l BufferLevel) Percent() float64 {
	if l.Cap <= 0 {
		return 0
	}

	return float64(l.Level) / float64(l.Cap)
}
