package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLog_WritesOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	Log("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("disabled logger wrote %q", buf.String())
	}

	SetEnabled(true)
	defer SetEnabled(false)
	Log("shown %d", 2)
	LogTiming("render", 5*time.Millisecond)
	LogIf(false, "never")
	defer LogEnterExit("op")()

	out := buf.String()
	for _, want := range []string{"shown 2", "render took 5ms", "-> op"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "never") {
		t.Error("LogIf(false) wrote output")
	}
}
