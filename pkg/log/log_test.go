package log

import (
	"bytes"
	"os"
	"testing"
)

func TestErrorMsg(t *testing.T) {
	// Capture stderr
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	ErrorMsg("test error: %s", "something")

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	if output == "" {
		t.Error("ErrorMsg() produced no output")
	}
	if !bytes.Contains([]byte(output), []byte("test error")) {
		t.Errorf("ErrorMsg() output does not contain expected text: %q", output)
	}
}

func TestInfoMsg(t *testing.T) {
	// Capture stderr
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	InfoMsg("test info: %s", "something")

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	if output == "" {
		t.Error("InfoMsg() produced no output")
	}
	if !bytes.Contains([]byte(output), []byte("test info")) {
		t.Errorf("InfoMsg() output does not contain expected text: %q", output)
	}
}

func TestLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verbose bool
		log     func(l *Logger)
		want    string
	}{
		{"error", false, func(l *Logger) { l.ErrorMsg("bind failed: %s\n", "busy") }, "[!] Error: bind failed: busy"},
		{"warn", false, func(l *Logger) { l.WarnMsg("read: %d\n", 42) }, "[~] read: 42"},
		{"info", false, func(l *Logger) { l.InfoMsg("listening on %s\n", ":9002") }, "[+] listening on :9002"},
		{"verbose on", true, func(l *Logger) { l.VerboseMsg("session %s", "abc") }, "[v] session abc\n"},
		{"verbose off", false, func(l *Logger) { l.VerboseMsg("session %s", "abc") }, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.log(NewLoggerTo(&buf, tt.verbose))

			got := buf.String()
			if tt.want == "" {
				if got != "" {
					t.Errorf("expected no output, got %q", got)
				}
				return
			}
			if !bytes.Contains([]byte(got), []byte(tt.want)) {
				t.Errorf("output = %q; want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestLogger_Nil(t *testing.T) {
	t.Parallel()

	var l *Logger
	l.ErrorMsg("ignored")
	l.InfoMsg("ignored")
	l.VerboseMsg("ignored")
	if l.Verbose() {
		t.Error("nil logger should not be verbose")
	}
}
