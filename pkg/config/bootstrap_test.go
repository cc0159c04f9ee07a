package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBootstrapSubstitutesEnvVars(t *testing.T) {
	os.Setenv("SORCHA_TEST_NETWORK_NAME", "devnet-7")
	defer os.Unsetenv("SORCHA_TEST_NETWORK_NAME")

	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.yaml")
	contents := `
environment: development
tenants:
  - tenant_id: tenant-a
    initial_admins: ["w:alice", "w:bob"]
    default_owner: "w:alice"
advertise:
  docket_interval: 2s
  min_quorum_size: 2
  network_name: "${SORCHA_TEST_NETWORK_NAME:-unknown}"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write bootstrap file: %v", err)
	}

	b, err := LoadBootstrap(path)
	if err != nil {
		t.Fatalf("load bootstrap: %v", err)
	}
	if b.Advertise.NetworkName != "devnet-7" {
		t.Errorf("expected substituted network name, got %q", b.Advertise.NetworkName)
	}
	if b.Advertise.DocketInterval.Duration().Seconds() != 2 {
		t.Errorf("expected 2s docket interval, got %v", b.Advertise.DocketInterval.Duration())
	}

	tenant, ok := b.TenantFor("tenant-a")
	if !ok {
		t.Fatal("expected tenant-a to be found")
	}
	if tenant.DefaultOwner != "w:alice" {
		t.Errorf("unexpected default owner: %s", tenant.DefaultOwner)
	}

	if _, ok := b.TenantFor("does-not-exist"); ok {
		t.Fatal("expected unknown tenant to be not-found")
	}
}

func TestLoadBootstrapMissingFile(t *testing.T) {
	if _, err := LoadBootstrap("/nonexistent/path/bootstrap.yaml"); err == nil {
		t.Fatal("expected error for missing bootstrap file")
	}
}
