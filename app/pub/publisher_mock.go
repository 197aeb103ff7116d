package pub

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type MockBlockPublisher struct {
	BlocksPublished []*Block

	Lock             *sync.Mutex // as mock publisher is only used in testing, its no harm to have this granularity Lock
	MessagePublished uint32      // atomic integer used to determine the published messages
	stopped          chan struct{}
}

func (publisher *MockBlockPublisher) publish(msg AvroOrJsonMsg, tpe msgType, height int64, timestamp int64) {
	publisher.Lock.Lock()
	defer publisher.Lock.Unlock()

	switch tpe {
	case blockTpe:
		publisher.BlocksPublished = append(publisher.BlocksPublished, msg.(*Block))
	default:
		panic(fmt.Errorf("does not support type %s", tpe.String()))
	}

	atomic.AddUint32(&publisher.MessagePublished, 1)
}

func (publisher *MockBlockPublisher) Stop() {
	close(publisher.stopped)
}

// Stopped is closed once the publication loop has drained its queue.
func (publisher *MockBlockPublisher) Stopped() <-chan struct{} {
	return publisher.stopped
}

func (publisher *MockBlockPublisher) Published() []*Block {
	publisher.Lock.Lock()
	defer publisher.Lock.Unlock()
	return append([]*Block(nil), publisher.BlocksPublished...)
}

func NewMockBlockPublisher() (publisher *MockBlockPublisher) {
	return &MockBlockPublisher{
		make([]*Block, 0),
		&sync.Mutex{},
		0,
		make(chan struct{}),
	}
}
