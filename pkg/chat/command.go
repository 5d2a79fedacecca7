package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Command is a decoded request body. It is one of SendCommand,
// HistoryCommand or UnknownCommand.
type Command interface {
	command() string
}

// SendCommand delivers Message to the conversation with Target.
type SendCommand struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

// HistoryCommand asks for one conversation, or the whole archive when Node
// is nil.
type HistoryCommand struct {
	Node *string
}

// UnknownCommand is a JSON object carrying neither known key.
type UnknownCommand struct {
	Raw []byte
}

func (SendCommand) command() string    { return "send" }
func (HistoryCommand) command() string { return "history" }
func (UnknownCommand) command() string { return "unknown" }

// CommandName returns the metric label for a command.
func CommandName(c Command) string { return c.command() }

var null = []byte("null")

// DecodeCommand classifies a request body. Send wins over History when a
// body carries both keys.
func DecodeCommand(body []byte) (Command, error) {
	if !utf8.Valid(body) {
		return nil, &Error{Kind: KindDecode, Op: "decode", Err: errors.New("body is not valid UTF-8")}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, &Error{Kind: KindDecode, Op: "decode", Err: err}
	}

	if raw, ok := obj["Send"]; ok {
		if bytes.Equal(bytes.TrimSpace(raw), null) {
			return nil, &Error{Kind: KindDecode, Op: "decode", Err: errors.New("Send payload is null")}
		}
		var s SendCommand
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &Error{Kind: KindDecode, Op: "decode", Err: fmt.Errorf("Send payload: %w", err)}
		}
		return s, nil
	}

	if raw, ok := obj["History"]; ok {
		if bytes.Equal(bytes.TrimSpace(raw), null) {
			return HistoryCommand{}, nil
		}
		var target string
		if err := json.Unmarshal(raw, &target); err != nil {
			return nil, &Error{Kind: KindDecode, Op: "decode", Err: fmt.Errorf("History payload: %w", err)}
		}
		return HistoryCommand{Node: &target}, nil
	}

	return UnknownCommand{Raw: body}, nil
}

// EncodeSend builds a Send request body.
func EncodeSend(target, message string) []byte {
	b, _ := json.Marshal(map[string]SendCommand{"Send": {Target: target, Message: message}})
	return b
}

// EncodeHistory builds a History request body; an empty node asks for the
// whole archive.
func EncodeHistory(node string) []byte {
	if node == "" {
		return []byte(`{"History":null}`)
	}
	b, _ := json.Marshal(map[string]string{"History": node})
	return b
}

// EncodeAck is the reply to every Send.
func EncodeAck() []byte {
	return []byte(`{"Send":null}`)
}

func encodeHistory(entries []Entry) []byte {
	if entries == nil {
		entries = []Entry{}
	}
	b, _ := json.Marshal(map[string][]Entry{"History": entries})
	return b
}

func encodeArchive(all map[string][]Entry) []byte {
	b, _ := json.Marshal(map[string]map[string][]Entry{"History": all})
	return b
}

// Reply is a decoded response body.
type Reply struct {
	Ack bool
	// Entries is set for a single-conversation History reply.
	Entries []Entry
	// Archive is set for a full-archive History reply.
	Archive map[string][]Entry
}

// DecodeReply parses a response body produced by the actor.
func DecodeReply(body []byte) (Reply, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return Reply{}, &Error{Kind: KindDecode, Op: "decode_reply", Err: err}
	}
	if raw, ok := obj["Send"]; ok && bytes.Equal(bytes.TrimSpace(raw), null) {
		return Reply{Ack: true}, nil
	}
	raw, ok := obj["History"]
	if !ok {
		return Reply{}, &Error{Kind: KindDecode, Op: "decode_reply", Err: ErrUnknownCommand}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var all map[string][]Entry
		if err := json.Unmarshal(raw, &all); err != nil {
			return Reply{}, &Error{Kind: KindDecode, Op: "decode_reply", Err: err}
		}
		return Reply{Archive: all}, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Reply{}, &Error{Kind: KindDecode, Op: "decode_reply", Err: err}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Reply{Entries: entries}, nil
}

// IsAck reports whether body is the Send acknowledgment.
func IsAck(body []byte) bool {
	r, err := DecodeReply(body)
	return err == nil && r.Ack
}
