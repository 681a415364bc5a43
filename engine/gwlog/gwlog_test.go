package gwlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestGWLog(t *testing.T) {
	SetSource("gwlog_test")
	SetOutput([]string{"stderr"})
	SetLevel(DebugLevel)

	if lv := ParseLevel("debug"); lv != DebugLevel {
		t.Fail()
	}
	if lv := ParseLevel("info"); lv != InfoLevel {
		t.Fail()
	}
	if lv := ParseLevel("warn"); lv != WarnLevel {
		t.Fail()
	}
	if lv := ParseLevel("error"); lv != ErrorLevel {
		t.Fail()
	}
	if lv := ParseLevel("panic"); lv != PanicLevel {
		t.Fail()
	}
	if lv := ParseLevel("fatal"); lv != FatalLevel {
		t.Fail()
	}

	Debugf("this is a debug %d", 1)
	SetLevel(InfoLevel)
	if GetLevel() != InfoLevel {
		t.Fail()
	}
	Debugf("SHOULD NOT SEE THIS!")
	Infof("this is an info %d", 2)
	Warnf("this is a warning %d", 3)
	TraceError("this is a trace error %d", 4)
	func() {
		defer func() {
			_ = recover()
		}()
		Panicf("this is a panic %d", 4)
	}()
}

func TestSetOutputWriter(t *testing.T) {
	defer SetOutput([]string{"stderr"})
	SetSource("writer_test")
	SetLevel(InfoLevel)

	var buf bytes.Buffer
	SetOutputWriter(&buf)
	Debugf("hidden %d", 1)
	Infof("visible %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug log should be filtered: %q", out)
	}
	if !strings.Contains(out, "visible 2") || !strings.Contains(out, "writer_test") {
		t.Errorf("info log should be written with source: %q", out)
	}
	if GetOutput() != &buf {
		t.Errorf("GetOutput should return the writer")
	}
}
