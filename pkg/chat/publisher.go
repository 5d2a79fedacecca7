package chat

// NewMessage is published whenever an entry is archived.
type NewMessage struct {
	Chat    string `json:"chat"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Publisher receives archive events. Publish is called on the actor's
// goroutine and must not block.
type Publisher interface {
	Publish(NewMessage)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(NewMessage)

func (f PublisherFunc) Publish(m NewMessage) { f(m) }
