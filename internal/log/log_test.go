package log

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func capture(t *testing.T, fn func()) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	oldW, oldFlags := stdlog.Writer(), stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	defer func() {
		stdlog.SetOutput(oldW)
		stdlog.SetFlags(oldFlags)
	}()

	fn()

	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("not a json line: %q", line)
		}
		out = append(out, m)
	}
	return out
}

func TestWriteWithoutRequest(t *testing.T) {
	lines := capture(t, func() {
		Error(nil, "catalog.load.fail", errors.New("boom"), map[string]any{SessionKey: "s-1"})
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	e := lines[0]
	if e["level"] != "error" || e["action"] != "catalog.load.fail" || e["err"] != "boom" {
		t.Fatalf("unexpected entry: %v", e)
	}
	// the session id is lifted out of fields
	if e["sid"] != "s-1" {
		t.Fatalf("sid = %v", e["sid"])
	}
	if _, ok := e["fields"]; ok {
		t.Fatalf("empty fields should be omitted: %v", e)
	}
	if _, ok := e["path"]; ok {
		t.Fatalf("no request, no path: %v", e)
	}
}

func TestWriteFromRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/cart", func(c *fiber.Ctx) error {
		c.Locals(SessionKey, "s-2")
		c.Locals("requestid", "r-1")
		c.Status(fiber.StatusAccepted)
		Audit(c, "cart.add", map[string]any{"product": 3})
		return nil
	})

	lines := capture(t, func() {
		if _, err := app.Test(httptest.NewRequest("GET", "/cart", nil)); err != nil {
			t.Fatal(err)
		}
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	e := lines[0]
	if e["level"] != "audit" || e["method"] != "GET" || e["path"] != "/cart" {
		t.Fatalf("unexpected entry: %v", e)
	}
	if e["sid"] != "s-2" || e["req_id"] != "r-1" || e["status"] != float64(fiber.StatusAccepted) {
		t.Fatalf("request context missing: %v", e)
	}
	fields, _ := e["fields"].(map[string]any)
	if fields["product"] != float64(3) {
		t.Fatalf("fields = %v", e["fields"])
	}
}

func TestLevels(t *testing.T) {
	lines := capture(t, func() {
		Info(nil, "a", nil)
		Security(nil, "b", nil)
		Warn(nil, "c", nil, nil)
	})
	want := []string{"info", "warn", "warn"}
	for i, w := range want {
		if lines[i]["level"] != w {
			t.Fatalf("line %d level = %v, want %s", i, lines[i]["level"], w)
		}
	}
}
