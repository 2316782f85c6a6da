package portman

import (
	"testing"
)

func TestRegisterDiscoverUnregister(t *testing.T) {
	manager := NewManager(t.TempDir())

	if err := manager.RegisterService("aidis-mcp", 8912, "/healthz"); err != nil {
		t.Fatalf("RegisterService() error = %v", err)
	}

	port, err := manager.DiscoverServicePort("aidis-mcp")
	if err != nil {
		t.Fatalf("DiscoverServicePort() error = %v", err)
	}
	if port != 8912 {
		t.Fatalf("port = %d, want 8912", port)
	}

	if err := manager.UnregisterService("aidis-mcp"); err != nil {
		t.Fatalf("UnregisterService() error = %v", err)
	}
	port, err = manager.DiscoverServicePort("aidis-mcp")
	if err != nil {
		t.Fatalf("DiscoverServicePort() error = %v", err)
	}
	if port != 0 {
		t.Fatalf("port after unregister = %d, want 0", port)
	}
}

func TestDiscoverUnknownService(t *testing.T) {
	manager := NewManager(t.TempDir())
	port, err := manager.DiscoverServicePort("ghost")
	if err != nil {
		t.Fatalf("DiscoverServicePort() error = %v", err)
	}
	if port != 0 {
		t.Fatalf("port = %d, want 0 for unknown service", port)
	}
}

func TestAssignPortReturnsUsablePort(t *testing.T) {
	manager := NewManager(t.TempDir())
	port, err := manager.AssignPort("aidis-mcp")
	if err != nil {
		t.Fatalf("AssignPort() error = %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Fatalf("port = %d out of range", port)
	}
}

func TestRegistrySurvivesReload(t *testing.T) {
	dir := t.TempDir()

	first := NewManager(dir)
	if err := first.RegisterService("aidis-mcp", 9001, "/healthz"); err != nil {
		t.Fatalf("RegisterService() error = %v", err)
	}

	// A fresh manager over the same state dir sees the mapping.
	second := NewManager(dir)
	port, err := second.DiscoverServicePort("aidis-mcp")
	if err != nil {
		t.Fatalf("DiscoverServicePort() error = %v", err)
	}
	if port != 9001 {
		t.Fatalf("port = %d, want 9001", port)
	}
}
