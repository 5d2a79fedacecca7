package chat

// Entry is one archived message.
type Entry struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Archive maps a conversation key, the remote node name, to its messages
// in arrival order. It is not safe for concurrent use; the actor's
// dispatch loop is its only owner.
type Archive struct {
	convs map[string][]Entry
	total int
}

// NewArchive returns an empty archive.
func NewArchive() *Archive {
	return &Archive{convs: make(map[string][]Entry)}
}

// Append adds an entry to the end of a conversation, creating it if needed.
func (a *Archive) Append(conversation, author, content string) {
	a.convs[conversation] = append(a.convs[conversation], Entry{Author: author, Content: content})
	a.total++
}

// Get returns a copy of a conversation. Unknown keys yield an empty,
// non-nil slice.
func (a *Archive) Get(conversation string) []Entry {
	out := make([]Entry, len(a.convs[conversation]))
	copy(out, a.convs[conversation])
	return out
}

// All returns a copy of every conversation.
func (a *Archive) All() map[string][]Entry {
	out := make(map[string][]Entry, len(a.convs))
	for k := range a.convs {
		out[k] = a.Get(k)
	}
	return out
}

// Len returns the number of entries across all conversations.
func (a *Archive) Len() int { return a.total }
