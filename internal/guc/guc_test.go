package guc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSanitizeEmpty(t *testing.T) {
	t.Parallel()
	out := Sanitize(nil, zerolog.Nop())
	if len(out) != 2 {
		t.Fatalf("expected exactly 2 entries, got %v", out)
	}
	if out[0] != (Entry{Name: "client_encoding", Value: "utf8"}) {
		t.Fatalf("expected forced client_encoding first, got %+v", out[0])
	}
	if out[1] != (Entry{Name: "application_name", Value: DefaultApplicationName}) {
		t.Fatalf("expected default application_name last, got %+v", out[1])
	}
}

func TestSanitizeDropsNonUTF8EncodingWithWarning(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	out := Sanitize([]Entry{
		{Name: "client_encoding", Value: "latin1"},
		{Name: "application_name", Value: "myapp"},
	}, logger)

	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %v", out)
	}
	if out[0].Name != "client_encoding" || out[0].Value != "utf8" {
		t.Fatalf("expected forced utf8, got %+v", out[0])
	}
	if out[1].Name != "application_name" || out[1].Value != "myapp" {
		t.Fatalf("caller application_name was not preserved: %+v", out[1])
	}
	if !strings.Contains(buf.String(), "non-utf8") {
		t.Fatalf("expected a warning about the dropped encoding, got %q", buf.String())
	}
}

func TestSanitizeDropsDuplicateUTF8Silently(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	for _, value := range []string{"utf8", "UTF8", "utf-8", "UTF-8"} {
		buf.Reset()
		out := Sanitize([]Entry{{Name: "client_encoding", Value: value}}, logger)
		encodings := 0
		for _, e := range out {
			if strings.EqualFold(e.Name, "client_encoding") {
				encodings++
			}
		}
		if encodings != 1 {
			t.Fatalf("value %q: expected exactly one client_encoding, got %v", value, out)
		}
		if buf.Len() != 0 {
			t.Fatalf("value %q: expected no warning, got %q", value, buf.String())
		}
	}
}

func TestSanitizeNameComparisonIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	out := Sanitize([]Entry{
		{Name: "Client_Encoding", Value: "latin1"},
		{Name: "APPLICATION_NAME", Value: "loader"},
	}, zerolog.Nop())

	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %v", out)
	}
	if out[1].Name != "APPLICATION_NAME" || out[1].Value != "loader" {
		t.Fatalf("caller-cased application_name was not preserved: %+v", out[1])
	}
}

func TestSanitizePreservesCallerOrder(t *testing.T) {
	t.Parallel()
	out := Sanitize([]Entry{
		{Name: "work_mem", Value: "64MB"},
		{Name: "maintenance_work_mem", Value: "256MB"},
		{Name: "search_path", Value: "staging, public"},
	}, zerolog.Nop())

	want := []string{"client_encoding", "work_mem", "maintenance_work_mem", "search_path", "application_name"}
	if len(out) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), out)
	}
	for i, name := range want {
		if out[i].Name != name {
			t.Fatalf("entry %d: expected %q, got %q", i, name, out[i].Name)
		}
	}
}
