package version

import "testing"

func TestInfo(t *testing.T) {
	bi := Info("emolens-analyse")
	if bi.Service != "emolens-analyse" {
		t.Fatalf("Service = %q", bi.Service)
	}
	if bi.Version != "dev" || bi.Date != "unknown" {
		t.Fatalf("defaults changed: %+v", bi)
	}
	if bi.Commit == "" {
		t.Fatalf("Commit should never be empty")
	}
}
