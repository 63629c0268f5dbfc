package store

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s, func() { s.Close() }
}

func TestAddAndSearchMemory(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	m := &Memory{Content: "restart the augur-executor via systemctl", Categories: []string{"operations"}}
	if err := s.AddMemory(m); err != nil {
		t.Fatalf("AddMemory failed: %v", err)
	}
	if m.Confidence != 1.0 {
		t.Errorf("expected initial confidence 1.0, got %f", m.Confidence)
	}

	results, err := s.Search("augur-executor", nil, 0, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != m.ID {
		t.Errorf("expected to find memory %s, got %d results", m.ID, len(results))
	}
}

func TestConfidenceOutOfRangeRejected(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	m := &Memory{Content: "bad confidence", Confidence: 1.5}
	if err := s.AddMemory(m); err != ErrConfidenceOutOfRange {
		t.Errorf("expected ErrConfidenceOutOfRange, got %v", err)
	}
}

func TestSetConfidenceAudits(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	m := &Memory{Content: "decaying memory"}
	if err := s.AddMemory(m); err != nil {
		t.Fatalf("AddMemory failed: %v", err)
	}
	if err := s.SetConfidence(m.ID, 0.7, "age_decay"); err != nil {
		t.Fatalf("SetConfidence failed: %v", err)
	}
	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM confidence_audit WHERE memory_id = ?`, m.ID).Scan(&count); err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 audit rows (create + update), got %d", count)
	}
}

func TestAtomRequiresAllFacets(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	err := s.CreateAtom(&Atom{Subject: "deploy", Action: "ran migration", Outcome: "", Consequences: "downtime"})
	if err == nil {
		t.Error("expected error for empty outcome facet")
	}
}

func TestCausalLinkRejectsSelfReference(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	err := s.CreateLink(&CausalLink{FromAtomID: "a1", ToAtomID: "a1", LinkType: LinkCauses, Strength: 0.5})
	if err == nil {
		t.Error("expected error for self-referencing causal link")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	m := &Message{FromAgent: "sergeant", ToAgent: "dev-1", Subject: "task", Body: "go", Priority: PriorityAction}
	if err := s.SendMessage(m); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	inbox, err := s.Inbox("dev-1", false, 10)
	if err != nil || len(inbox) != 1 {
		t.Fatalf("Inbox failed: err=%v len=%d", err, len(inbox))
	}

	if err := s.ReadMessage(m.ID, "dev-1"); err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if err := s.AckMessage(m.ID, "dev-1", ""); err != nil {
		t.Fatalf("AckMessage failed: %v", err)
	}
	// Ack is idempotent.
	if err := s.AckMessage(m.ID, "dev-1", ""); err != nil {
		t.Fatalf("second AckMessage should be a no-op, got: %v", err)
	}

	hist, err := s.History(m.ThreadID, "dev-1", 10)
	if err != nil || len(hist) != 1 {
		t.Fatalf("History failed: err=%v len=%d", err, len(hist))
	}
}

func TestWorkingMemoryRejectsDuplicateLabels(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	pins := []WorkingMemoryPin{
		{Content: "pin one", Label: "dup", PinnedAt: time.Now()},
		{Content: "pin two", Label: "dup", PinnedAt: time.Now()},
	}
	if err := s.SaveWorkingMemory(pins); err == nil {
		t.Error("expected error for duplicate pin labels")
	}
}

func TestIncidentUpsertIsUnique(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	inc := &Incident{AnomalyType: "disk_pressure", TargetID: "host-1", Severity: SeverityHigh}
	first, err := s.UpsertIncident(inc, "initial detection")
	if err != nil {
		t.Fatalf("UpsertIncident failed: %v", err)
	}

	second, err := s.UpsertIncident(&Incident{AnomalyType: "disk_pressure", TargetID: "host-1", Severity: SeverityHigh}, "re-detected")
	if err != nil {
		t.Fatalf("UpsertIncident (refresh) failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same incident id on re-detection, got %s and %s", first.ID, second.ID)
	}

	all, err := s.ListIncidents(true)
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected exactly one open incident for (disk_pressure, host-1), got %d", len(all))
	}
}

func TestTrustScoreDefaultsWhenUnset(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	score, err := s.GetTrustScore("financial_augur", 4)
	if err != nil {
		t.Fatalf("GetTrustScore failed: %v", err)
	}
	if score.CurrentScore != 0.5 {
		t.Errorf("expected default score 0.5, got %f", score.CurrentScore)
	}
}
