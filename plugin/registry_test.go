package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/plugin"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
)

type counter struct {
	name    string
	created int
	low     int
	fail    error
}

func (c *counter) Name() string { return c.name }

func (c *counter) OnShotCreated(context.Context, id.ShotID, shot.Fields) error {
	c.created++
	return c.fail
}

func (c *counter) OnLowSupply(context.Context, supply.State) error {
	c.low++
	return nil
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnShotDeleted(ctx context.Context, _ id.ShotID) error {
	time.Sleep(time.Second)
	return nil
}

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newRegistry()
	if err := r.Register(&counter{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&counter{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 || r.Get("a") == nil || r.Get("b") != nil {
		t.Errorf("unexpected registry state: %d plugins", r.Count())
	}
}

func TestEmitReachesOnlyImplementers(t *testing.T) {
	r := newRegistry()
	a := &counter{name: "a"}
	b := &counter{name: "b", fail: errors.New("ignored")}
	for _, p := range []plugin.Plugin{a, b, slow{}} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	r.EmitShotCreated(ctx, id.NewShotID(), shot.Fields{})
	r.EmitLowSupply(ctx, supply.State{})
	r.EmitShotUpdated(ctx, id.NewShotID(), shot.Fields{})

	if a.created != 1 || b.created != 1 {
		t.Errorf("created: a=%d b=%d", a.created, b.created)
	}
	if a.low != 1 || b.low != 1 {
		t.Errorf("low supply: a=%d b=%d", a.low, b.low)
	}
	if len(r.List()) != 3 {
		t.Errorf("list: %d", len(r.List()))
	}
}

func TestEmitTimesOut(t *testing.T) {
	r := newRegistry().WithTimeout(10 * time.Millisecond)
	if err := r.Register(slow{}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r.EmitShotDeleted(context.Background(), id.NewShotID())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("slow plugin blocked emit for %s", elapsed)
	}
}
