package queueaccess

import (
	"fmt"

	"spool/internal/ipc"
	"spool/internal/queue"
)

// Session bundles an Access backend with the cleanup for whichever transport
// it landed on. Access is embedded so callers use queue operations directly
// on the session.
type Session struct {
	Access
	close func() error
}

// Close releases the session's backend.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open dials the daemon socket first and falls back to opening the queue
// database directly. CLI commands work the same whether or not the daemon is
// running; only mutations visible to a live workflow require the socket.
func Open(dial func() (*ipc.Client, error), openStore func() (*queue.Store, error)) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{Access: NewIPCAccess(client), close: client.Close}, nil
		}
	}
	if openStore == nil {
		return Session{}, fmt.Errorf("open queue store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{Access: NewStoreAccess(store), close: store.Close}, nil
}
