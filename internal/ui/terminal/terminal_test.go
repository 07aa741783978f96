package terminal

import (
	"bytes"
	"testing"

	tu "github.com/justyntemme/wsl-t/internal/testing"
)

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeNone, ModeKitty, ModeIterm, ModeSixel} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("braille"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestWrite(t *testing.T) {
	img, err := Decode(tu.CoverPNG())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 6 {
		t.Fatalf("unexpected bounds %v", b)
	}

	t.Run("None Writes Nothing", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, img, ModeNone); err != nil || buf.Len() != 0 {
			t.Errorf("expected no output, got %d bytes err=%v", buf.Len(), err)
		}
	})

	for _, m := range []Mode{ModeKitty, ModeIterm, ModeSixel} {
		t.Run(m.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, img, m); err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if buf.Len() == 0 || buf.Bytes()[0] != 0x1b {
				t.Errorf("expected an escape sequence, got %q", buf.String())
			}
		})
	}

	t.Run("Not An Image", func(t *testing.T) {
		if _, err := Decode([]byte("plain text")); err == nil {
			t.Error("expected a decode error")
		}
	})
}
