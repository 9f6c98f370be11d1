package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator generates unique IDs for events and packets.
type IDGenerator interface {
	Generate() string
}

var ids struct {
	sync.Mutex
	gen IDGenerator
}

// UseSequentialIDGenerator makes IDs consecutive decimal numbers, which
// keeps runs reproducible. It is the default.
func UseSequentialIDGenerator() {
	setIDGenerator(new(sequentialIDs))
}

// UseParallelIDGenerator makes IDs globally unique xids. IDs then differ
// between runs.
func UseParallelIDGenerator() {
	setIDGenerator(xidIDs{})
}

func setIDGenerator(g IDGenerator) {
	ids.Lock()
	defer ids.Unlock()

	if ids.gen != nil {
		log.Panic("the ID generator is already in use and cannot be changed")
	}

	ids.gen = g
}

// GetIDGenerator returns the ID generator, selecting the sequential one if
// none was chosen.
func GetIDGenerator() IDGenerator {
	ids.Lock()
	defer ids.Unlock()

	if ids.gen == nil {
		ids.gen = new(sequentialIDs)
	}

	return ids.gen
}

type sequentialIDs struct {
	last atomic.Uint64
}

func (g *sequentialIDs) Generate() string {
	return strconv.FormatUint(g.last.Add(1), 10)
}

type xidIDs struct{}

func (xidIDs) Generate() string {
	return xid.New().String()
}
