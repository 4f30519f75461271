package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aulanet/aulanet/internal/shared"
	_ "github.com/aulanet/aulanet/testing"
)

func newManager(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, shared.NewSessionManager(client, "test_session", "secret", ttl, false)
}

func loadFresh(t *testing.T, manager *shared.SessionManager) *shared.Session {
	t.Helper()
	sess, err := manager.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return sess
}

func commit(t *testing.T, manager *shared.SessionManager, sess *shared.Session) {
	t.Helper()
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := manager.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func reload(t *testing.T, manager *shared.SessionManager, id string) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: manager.CookieName(), Value: id})
	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return sess
}

func TestSessionRoundTrip(t *testing.T) {
	_, manager := newManager(t, 4*time.Hour)
	sess := loadFresh(t, manager)
	now := time.Now()
	sess.BindIdentity(shared.Identity{
		UserID:     42,
		Username:   "maria",
		Email:      "maria@uni.local",
		Roles:      []string{"Estudiante"},
		ActiveRole: "Estudiante",
		IssuedAt:   now,
		ExpiresAt:  now.Add(4 * time.Hour),
	})
	commit(t, manager, sess)

	loaded := reload(t, manager, sess.ID)
	identity := loaded.Identity()
	if identity == nil {
		t.Fatal("identity lost in round trip")
	}
	if identity.UserID != 42 || identity.ActiveRole != "Estudiante" {
		t.Fatalf("identity mismatch: %+v", identity)
	}
}

func TestSessionAbsoluteExpiry(t *testing.T) {
	// Expiry is absolute from login; the stored record's TTL is the
	// remaining lifetime and an elapsed record loads as anonymous.
	mr, manager := newManager(t, 4*time.Hour)
	sess := loadFresh(t, manager)
	now := time.Now()
	sess.BindIdentity(shared.Identity{
		UserID:     1,
		ActiveRole: "Estudiante",
		IssuedAt:   now,
		ExpiresAt:  now.Add(4 * time.Hour),
	})
	commit(t, manager, sess)

	mr.FastForward(5 * time.Hour)

	loaded := reload(t, manager, sess.ID)
	if loaded.Identity() != nil {
		t.Fatal("expired session must load as anonymous")
	}
}

func TestExpiredIdentityLoadsAnonymous(t *testing.T) {
	_, manager := newManager(t, 4*time.Hour)
	sess := loadFresh(t, manager)
	sess.BindIdentity(shared.Identity{
		UserID:     1,
		ActiveRole: "Estudiante",
		IssuedAt:   time.Now().Add(-5 * time.Hour),
		ExpiresAt:  time.Now().Add(-time.Hour),
	})
	if sess.Identity() != nil {
		t.Fatal("expired identity must read as nil")
	}
}

func TestRenewRotatesIDAndDropsState(t *testing.T) {
	mr, manager := newManager(t, time.Hour)
	sess := loadFresh(t, manager)
	sess.Set("key", "value")
	commit(t, manager, sess)
	oldID := sess.ID

	reloaded := reload(t, manager, oldID)
	reloaded.Renew()
	if reloaded.ID == oldID {
		t.Fatal("renew must rotate the session ID")
	}
	if reloaded.Get("key") != "" {
		t.Fatal("renew must drop prior values")
	}
	commit(t, manager, reloaded)

	if mr.Exists("session:" + oldID) {
		t.Fatal("stale record must be deleted on commit")
	}
}

func TestDestroyClearsCookieAndRecord(t *testing.T) {
	mr, manager := newManager(t, time.Hour)
	sess := loadFresh(t, manager)
	sess.Set("key", "value")
	commit(t, manager, sess)

	manager.Destroy(sess)
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := manager.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}

	if mr.Exists("session:" + sess.ID) {
		t.Fatal("record must be deleted")
	}
	cookies := res.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("expected expiring cookie, got %+v", cookies)
	}

	// Destroying again commits cleanly.
	manager.Destroy(sess)
	if err := manager.Commit(context.Background(), httptest.NewRecorder(), req, sess); err != nil {
		t.Fatalf("second destroy commit: %v", err)
	}
}

func TestFlashSurvivesRedirect(t *testing.T) {
	// A flash queued before a redirect is persisted by that request's
	// commit and must still be there when the browser follows the
	// redirect with the session cookie.
	_, manager := newManager(t, time.Hour)
	sess := loadFresh(t, manager)
	sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Inicia sesión para continuar."})
	commit(t, manager, sess)

	followUp := reload(t, manager, sess.ID)
	msg := followUp.PopFlash()
	if msg == nil {
		t.Fatal("flash lost across the redirect")
	}
	if msg.Kind != "warning" || msg.Message != "Inicia sesión para continuar." {
		t.Fatalf("unexpected flash: %+v", msg)
	}
	commit(t, manager, followUp)

	// Consuming it on the rendering request clears it for good.
	third := reload(t, manager, sess.ID)
	if msg := third.PopFlash(); msg != nil {
		t.Fatalf("flash must not repeat after render, got %+v", msg)
	}
}

func TestFlashOrder(t *testing.T) {
	_, manager := newManager(t, time.Hour)
	sess := loadFresh(t, manager)
	sess.AddFlash(shared.FlashMessage{Kind: "info", Message: "first"})
	sess.AddFlash(shared.FlashMessage{Kind: "info", Message: "second"})

	if msg := sess.PopFlash(); msg == nil || msg.Message != "first" {
		t.Fatalf("expected first flash, got %+v", msg)
	}
	if msg := sess.PopFlash(); msg == nil || msg.Message != "second" {
		t.Fatalf("expected second flash, got %+v", msg)
	}
	if msg := sess.PopFlash(); msg != nil {
		t.Fatalf("expected no flash, got %+v", msg)
	}
}
