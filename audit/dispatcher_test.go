package audit_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-universe/nexus-auth/audit"
)

type recordingLog struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (l *recordingLog) Record(_ context.Context, entry audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *recordingLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func TestDispatcherDeliversEntries(t *testing.T) {
	log := &recordingLog{}
	d := audit.NewDispatcher(log, 16)

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Record(context.Background(), audit.Entry{Action: audit.ActionLogin}))
	}
	d.Close()

	assert.Equal(t, 10, log.len())
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	log := &blockingLog{release: block}
	d := audit.NewDispatcher(log, 1)
	defer d.Close()

	// First entry occupies the worker, second fills the buffer, the rest
	// must be dropped without blocking.
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Record(context.Background(), audit.Entry{Action: audit.ActionLoginFailed}))
	}
	close(block)

	assert.GreaterOrEqual(t, d.Dropped(), uint64(1))
}

func TestDispatcherRecordAfterClose(t *testing.T) {
	log := &recordingLog{}
	d := audit.NewDispatcher(log, 4)
	d.Close()

	require.NoError(t, d.Record(context.Background(), audit.Entry{Action: audit.ActionRegister}))
	assert.Zero(t, log.len())
}

type blockingLog struct {
	release <-chan struct{}
}

func (l *blockingLog) Record(context.Context, audit.Entry) error {
	<-l.release
	return nil
}
