package stream

import (
	"context"
	"testing"
)

func TestMessageType_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  MessageType
		want string
	}{
		{MessageBinary, "binary"},
		{MessageText, "text"},
		{MessagePing, "ping"},
		{MessagePong, "pong"},
		{MessageClose, "close"},
		{MessageType(0), ""},
		{MessageType(999), ""},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("MessageType(%d).String() = %q; want %q", tt.typ, got, tt.want)
		}
	}
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     Message
		typ     MessageType
		data    string
		isClose bool
	}{
		{"text", Text("hello"), MessageText, "hello", false},
		{"binary", Binary([]byte{1, 2}), MessageBinary, "\x01\x02", false},
		{"ping", Ping([]byte("p")), MessagePing, "p", false},
		{"pong", Pong([]byte("p")), MessagePong, "p", false},
		{"close", Close(StatusNormalClosure, "bye"), MessageClose, "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.msg.Type != tt.typ {
				t.Errorf("Type = %s; want %s", tt.msg.Type, tt.typ)
			}
			if string(tt.msg.Data) != tt.data {
				t.Errorf("Data = %q; want %q", tt.msg.Data, tt.data)
			}
			if tt.msg.IsClose() != tt.isClose {
				t.Errorf("IsClose() = %t; want %t", tt.msg.IsClose(), tt.isClose)
			}
		})
	}

	c := Close(StatusInternalError, "boom")
	if c.CloseCode != 1011 || c.CloseReason != "boom" {
		t.Errorf("Close() = %+v", c)
	}
}

func TestHandlerFunc(t *testing.T) {
	t.Parallel()

	var got Message
	var h Handler = HandlerFunc(func(ctx context.Context, sink Sink, msg Message) {
		got = msg
	})

	h.Process(context.Background(), nil, Text("x"))
	if string(got.Data) != "x" {
		t.Errorf("HandlerFunc did not receive message, got %+v", got)
	}
}
