package health

import (
	"context"
	"testing"

	storemock "github.com/twistvox/twistvox/internal/store/mock"
)

func TestStoreChecker(t *testing.T) {
	st := storemock.New()
	c := StoreChecker(st)

	if c.Name != "database" {
		t.Errorf("Name = %q, want %q", c.Name, "database")
	}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("Check() error: %v", err)
	}

	st.PingErr = context.DeadlineExceeded
	if err := c.Check(context.Background()); err == nil {
		t.Error("Check() should fail when Ping fails")
	}
}

func TestGatewayChecker(t *testing.T) {
	ready := false
	c := GatewayChecker(func() bool { return ready })

	if err := c.Check(context.Background()); err == nil {
		t.Error("Check() should fail before the gateway is up")
	}

	ready = true
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("Check() error: %v", err)
	}
}

func TestTranscriberChecker(t *testing.T) {
	c := TranscriberChecker(func() bool { return false })
	if err := c.Check(context.Background()); err == nil {
		t.Error("Check() should fail when the model is not loaded")
	}

	c = TranscriberChecker(func() bool { return true })
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("Check() error: %v", err)
	}
}
