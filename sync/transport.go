package sync

// Transport carries opaque document updates between peers of one project.
// Implementations decide topology and delivery; the manager only requires
// that Subscribe hands every inbound update to the handler and that
// SendUpdate offers an update to the peers. Delivery may duplicate or
// reorder updates; the document tolerates both.
type Transport interface {
	// SendUpdate offers an update to connected peers.
	SendUpdate(update []byte) error

	// Subscribe registers a handler for inbound updates and returns a
	// function that unregisters it. The handler may be invoked from
	// transport goroutines.
	Subscribe(handler func(update []byte)) (unsubscribe func())
}
