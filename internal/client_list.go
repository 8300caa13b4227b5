package internal

import (
	"container/list"
	"sync"

	"croupier/internal/core/client"
)

// A concurrency-safe wrapper around container/list for maintaining a
// collection of connected clients. Clients are tracked by identity rather
// than address since multiple sessions from the same host are allowed.
type clientList struct {
	clients *list.List
	sync.RWMutex
}

func newClientList() *clientList {
	return &clientList{clients: list.New()}
}

func (cl *clientList) add(c *client.Client) {
	cl.Lock()
	cl.clients.PushBack(c)
	cl.Unlock()
}

func (cl *clientList) remove(c *client.Client) {
	cl.Lock()
	defer cl.Unlock()

	for clientElem := cl.clients.Front(); clientElem != nil; clientElem = clientElem.Next() {
		if clientElem.Value.(*client.Client) == c {
			cl.clients.Remove(clientElem)
			break
		}
	}
}

func (cl *clientList) len() int {
	cl.RLock()
	defer cl.RUnlock()
	return cl.clients.Len()
}

// closeAll closes the underlying connections of every tracked client,
// unblocking any reads in flight so their goroutines can exit.
func (cl *clientList) closeAll() {
	cl.RLock()
	defer cl.RUnlock()

	for clientElem := cl.clients.Front(); clientElem != nil; clientElem = clientElem.Next() {
		_ = clientElem.Value.(*client.Client).Close()
	}
}
