// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests service advertisement and discovery
package discovery

import (
	"testing"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "test-reference",
		Port:        8927,
	}

	mgr := NewManager(config)
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.ServiceName != "test-reference" {
		t.Errorf("expected ServiceName 'test-reference', got %q", mgr.config.ServiceName)
	}
	if mgr.config.Port != 8927 {
		t.Errorf("expected Port 8927, got %d", mgr.config.Port)
	}
}

func TestStopClosesContext(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "test-reference", Port: 8927})
	mgr.Stop()
	select {
	case <-mgr.ctx.Done():
	default:
		t.Error("expected context to be done after Stop")
	}
}
