package artifacts

import (
	"os"
	"testing"
	"time"

	"github.com/cloudshipai/adw/pkg/models"
)

func newArtifact(workflowID string, t models.ArtifactType, field string) models.Artifact {
	return models.Artifact{
		WorkflowID:   workflowID,
		ArtifactType: t,
		CreatedAt:    time.Now().UTC(),
		Fields:       map[string]interface{}{"value": field},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	base := t.TempDir()
	store, err := Open(base, "adw-abc", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	a := newArtifact("adw-abc", models.ArtifactPlan, "hello")
	if err := store.Write(a); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(models.ArtifactPlan)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Fields["value"] != "hello" {
		t.Fatalf("round-trip mismatch: got %+v", got)
	}
}

func TestWriteOverwritesSameType(t *testing.T) {
	base := t.TempDir()
	store, _ := Open(base, "adw-abc", "")

	store.Write(newArtifact("adw-abc", models.ArtifactPlan, "first"))
	store.Write(newArtifact("adw-abc", models.ArtifactPlan, "second"))

	got, err := store.Read(models.ArtifactPlan)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Fields["value"] != "second" {
		t.Fatalf("expected overwrite to win, got %+v", got.Fields)
	}
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	base := t.TempDir()
	store, _ := Open(base, "adw-abc", "")

	_, err := store.Read(models.ArtifactPlan)
	if err == nil {
		t.Fatalf("expected not-found error")
	}
	var nf *ErrNotFound
	if !asErrNotFound(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %T: %v", err, err)
	}
}

func asErrNotFound(err error, target **ErrNotFound) bool {
	nf, ok := err.(*ErrNotFound)
	if ok {
		*target = nf
	}
	return ok
}

func TestReadCorruptedFails(t *testing.T) {
	base := t.TempDir()
	store, _ := Open(base, "adw-abc", "")

	if err := os.WriteFile(store.path(models.ArtifactPlan), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("setup write: %v", err)
	}

	_, err := store.Read(models.ArtifactPlan)
	if err == nil {
		t.Fatalf("expected corruption error")
	}
	if _, ok := err.(*ErrCorrupted); !ok {
		t.Fatalf("expected ErrCorrupted, got %T", err)
	}
}

func TestOpenFailsWhenParentMissing(t *testing.T) {
	base := t.TempDir()
	_, err := Open(base, "adw-abc-patch", "adw-abc")
	if err == nil {
		t.Fatalf("expected error when parent workflow directory is missing")
	}
}

func TestPatchSharedArtifactFallsBackToParent(t *testing.T) {
	base := t.TempDir()
	parent, err := Open(base, "adw-abc", "")
	if err != nil {
		t.Fatalf("Open parent: %v", err)
	}
	parent.Write(newArtifact("adw-abc", models.ArtifactPlan, "parent-plan"))

	patch, err := Open(base, "adw-abc-patch", "adw-abc")
	if err != nil {
		t.Fatalf("Open patch: %v", err)
	}

	got, err := patch.Read(models.ArtifactPlan)
	if err != nil {
		t.Fatalf("Read plan from patch: %v", err)
	}
	if got.Fields["value"] != "parent-plan" {
		t.Fatalf("expected parent plan, got %+v", got.Fields)
	}

	patch.Write(newArtifact("adw-abc-patch", models.ArtifactPatchPlan, "patch-plan-local"))

	got, err = patch.Read(models.ArtifactPlan)
	if err != nil {
		t.Fatalf("Read plan again: %v", err)
	}
	if got.Fields["value"] != "parent-plan" {
		t.Fatalf("writing patch-plan must not override shared plan read, got %+v", got.Fields)
	}

	got, err = patch.Read(models.ArtifactPatchPlan)
	if err != nil {
		t.Fatalf("Read patch-plan: %v", err)
	}
	if got.Fields["value"] != "patch-plan-local" {
		t.Fatalf("expected local patch-plan, got %+v", got.Fields)
	}
}

func TestPatchSpecificNeverFallsBackToParent(t *testing.T) {
	base := t.TempDir()
	parent, _ := Open(base, "adw-abc", "")
	parent.Write(newArtifact("adw-abc", models.ArtifactImplement, "parent-implement"))

	patch, err := Open(base, "adw-abc-patch", "adw-abc")
	if err != nil {
		t.Fatalf("Open patch: %v", err)
	}

	_, err = patch.Read(models.ArtifactImplement)
	if err == nil {
		t.Fatalf("expected not-found: patch-specific artifacts must not fall back to parent")
	}
}

func TestExistsIsLocalOnly(t *testing.T) {
	base := t.TempDir()
	parent, _ := Open(base, "adw-abc", "")
	parent.Write(newArtifact("adw-abc", models.ArtifactPlan, "v"))

	patch, _ := Open(base, "adw-abc-patch", "adw-abc")
	if patch.Exists(models.ArtifactPlan) {
		t.Fatalf("Exists must not consult the parent workflow")
	}
}

func TestListAndDelete(t *testing.T) {
	base := t.TempDir()
	store, _ := Open(base, "adw-abc", "")
	store.Write(newArtifact("adw-abc", models.ArtifactPlan, "v"))
	store.Write(newArtifact("adw-abc", models.ArtifactClassify, "v"))

	types, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 artifacts, got %d: %v", len(types), types)
	}

	deleted, err := store.Delete(models.ArtifactPlan)
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	if store.Exists(models.ArtifactPlan) {
		t.Fatalf("expected plan artifact to be gone")
	}

	deleted, err = store.Delete(models.ArtifactPlan)
	if err != nil || deleted {
		t.Fatalf("expected second delete to report false, got deleted=%v err=%v", deleted, err)
	}
}

func TestInfoOf(t *testing.T) {
	base := t.TempDir()
	store, _ := Open(base, "adw-abc", "")
	if store.InfoOf(models.ArtifactPlan) != nil {
		t.Fatalf("expected nil info for missing artifact")
	}
	store.Write(newArtifact("adw-abc", models.ArtifactPlan, "v"))
	info := store.InfoOf(models.ArtifactPlan)
	if info == nil || info.Size == 0 {
		t.Fatalf("expected non-nil info with positive size, got %+v", info)
	}
}
