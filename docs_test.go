package vial_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/xraph/vial"
	"github.com/xraph/vial/store/memory"
)

// TestDocumentationExamples verifies that the examples in the documentation work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use SQLite or PostgreSQL in production)
		store := memory.New()

		tr := vial.New(store,
			vial.WithLogger(slog.New(slog.DiscardHandler)),
			vial.WithCapacity(vial.Ml("10")),
			vial.WithShotSize(vial.Ml("0.11")),
			vial.WithClock(fixedClock),
		)

		ctx := context.Background()
		if err := tr.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer tr.Stop()

		tr.Session().SetDraft(vial.Fields{Brand: "Humalog", AmountMl: "0.11"})
		if out := tr.Save(ctx); !out.OK() {
			t.Fatalf("save: %s: %v", out.Message, out.Err)
		}

		got := tr.State().Format()
		if !strings.HasPrefix(got, "Remaining Insulin: 9.89 ml\nShots Taken: 1\n") {
			t.Errorf("unexpected state:\n%s", got)
		}
	})

	t.Run("VolumeExamples", func(t *testing.T) {
		v, err := vial.ParseVolume("0.22")
		if err != nil {
			t.Fatal(err)
		}
		if n := v.Portions(vial.Ml("0.11")); n != 2 {
			t.Errorf("0.22 / 0.11: got %d portions, want 2", n)
		}
		if s := vial.Ml("10").Subtract(v).String(); s != "9.78 ml" {
			t.Errorf("got %q", s)
		}
	})

	t.Run("ShotIDExamples", func(t *testing.T) {
		if _, err := vial.ParseShotID("plan_01h2xcejqtf2nbrexx3vqjhp41"); err == nil {
			t.Error("foreign prefixes must be rejected")
		}
	})
}
