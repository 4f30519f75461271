package shared

import (
	"context"
	"testing"
	"time"
)

func TestAuditTimestampDefaulted(t *testing.T) {
	before := time.Now()
	stamped := stampAuditTime(AuditLog{ActorID: 1, Action: "account.block", Entity: "account", EntityID: "7"})
	if stamped.At.IsZero() {
		t.Fatal("occurred_at must never reach the insert as the zero time")
	}
	if stamped.At.Before(before) || stamped.At.After(time.Now()) {
		t.Fatalf("defaulted timestamp out of range: %v", stamped.At)
	}
}

func TestAuditTimestampPreserved(t *testing.T) {
	at := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	stamped := stampAuditTime(AuditLog{Action: "account.create", Entity: "account", EntityID: "7", At: at})
	if !stamped.At.Equal(at) {
		t.Fatalf("explicit timestamp replaced: %v", stamped.At)
	}
}

func TestAuditRecordRequiresFields(t *testing.T) {
	logger := &AuditLogger{}
	if err := logger.Record(context.Background(), AuditLog{Action: "account.block"}); err == nil {
		t.Fatal("expected an error for a log without entity/entity_id")
	}
	var missing *AuditLogger
	if err := missing.Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}); err == nil {
		t.Fatal("expected an error from a nil logger")
	}
}
