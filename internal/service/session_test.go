package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
)

func newSessionService(t *testing.T, sessions *fakeSessionRepo, users *fakeUserRepo, now func() time.Time) *SessionService {
	t.Helper()
	svc, err := NewSessionService(SessionServiceOptions{
		Sessions: sessions,
		Users:    users,
		Now:      now,
	})
	require.NoError(t, err)
	return svc
}

func TestSessionService_Create(t *testing.T) {
	var saved domainauth.Session
	sessions := &fakeSessionRepo{
		createFunc: func(_ context.Context, sess domainauth.Session) error {
			saved = sess
			return nil
		},
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSessionService(t, sessions, &fakeUserRepo{}, func() time.Time { return base })

	sess, err := svc.Create(context.Background(), "user-1", 7*24*time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, base.Add(7*24*time.Hour), sess.ExpiresAt)
	assert.Equal(t, sess, saved)
}

func TestSessionService_Create_RequiresUserAndTTL(t *testing.T) {
	svc := newSessionService(t, &fakeSessionRepo{}, &fakeUserRepo{}, nil)

	_, err := svc.Create(context.Background(), "", time.Hour)
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), "user-1", 0)
	assert.Error(t, err)
}

func TestSessionService_Validate_Success(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessionRepo{
		getFunc: func(_ context.Context, id string) (domainauth.Session, error) {
			return domainauth.Session{ID: id, UserID: "user-1", ExpiresAt: base.Add(time.Hour)}, nil
		},
	}
	users := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "alice@example.com"}, nil
		},
	}
	svc := newSessionService(t, sessions, users, func() time.Time { return base })

	result, err := svc.Validate(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, result.User)
	require.NotNil(t, result.Session)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, "sess-1", result.Session.ID)
}

func TestSessionService_Validate_UnknownIsNotAnError(t *testing.T) {
	svc := newSessionService(t, &fakeSessionRepo{}, &fakeUserRepo{}, nil)

	result, err := svc.Validate(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, result.User)
	assert.Nil(t, result.Session)
}

func TestSessionService_Validate_EmptyID(t *testing.T) {
	svc := newSessionService(t, &fakeSessionRepo{}, &fakeUserRepo{}, nil)

	result, err := svc.Validate(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, result.User)
}

func TestSessionService_Validate_ExpiredIsDeleted(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var deleted string
	sessions := &fakeSessionRepo{
		getFunc: func(_ context.Context, id string) (domainauth.Session, error) {
			return domainauth.Session{ID: id, UserID: "user-1", ExpiresAt: base.Add(-time.Minute)}, nil
		},
		deleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newSessionService(t, sessions, &fakeUserRepo{}, func() time.Time { return base })

	result, err := svc.Validate(context.Background(), "sess-expired")
	require.NoError(t, err)
	assert.Nil(t, result.User)
	assert.Equal(t, "sess-expired", deleted, "expired session must be removed")
}

func TestSessionService_Validate_DeletedUser(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessionRepo{
		getFunc: func(_ context.Context, id string) (domainauth.Session, error) {
			return domainauth.Session{ID: id, UserID: "ghost", ExpiresAt: base.Add(time.Hour)}, nil
		},
	}
	svc := newSessionService(t, sessions, &fakeUserRepo{}, func() time.Time { return base })

	result, err := svc.Validate(context.Background(), "sess-orphan")
	require.NoError(t, err)
	assert.Nil(t, result.User, "session pointing at a deleted user is unauthenticated")
}

func TestSessionService_Invalidate(t *testing.T) {
	var deleted string
	sessions := &fakeSessionRepo{
		deleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newSessionService(t, sessions, &fakeUserRepo{}, nil)

	require.NoError(t, svc.Invalidate(context.Background(), "sess-1"))
	assert.Equal(t, "sess-1", deleted)

	// Empty id is a no-op, not an error.
	require.NoError(t, svc.Invalidate(context.Background(), ""))
}

func TestSessionService_InvalidateUser(t *testing.T) {
	var deletedUser string
	sessions := &fakeSessionRepo{
		deleteByUserFunc: func(_ context.Context, userID string) error {
			deletedUser = userID
			return nil
		},
	}
	svc := newSessionService(t, sessions, &fakeUserRepo{}, nil)

	require.NoError(t, svc.InvalidateUser(context.Background(), "user-1"))
	assert.Equal(t, "user-1", deletedUser)
}

func TestSessionService_ReapExpired(t *testing.T) {
	sessions := &fakeSessionRepo{
		deleteExpiredFunc: func(_ context.Context) (int64, error) {
			return 3, nil
		},
	}
	svc := newSessionService(t, sessions, &fakeUserRepo{}, nil)

	removed, err := svc.ReapExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestSessionService_RunReaper(t *testing.T) {
	sweeps := make(chan struct{}, 16)
	sessions := &fakeSessionRepo{
		deleteExpiredFunc: func(_ context.Context) (int64, error) {
			sweeps <- struct{}{}
			return 1, nil
		},
	}
	svc := newSessionService(t, sessions, &fakeUserRepo{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunReaper(ctx, time.Millisecond) }()

	select {
	case <-sweeps:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper never swept")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation stops the loop cleanly")
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop on cancel")
	}
}

func TestSessionService_RunReaper_RequiresInterval(t *testing.T) {
	svc := newSessionService(t, &fakeSessionRepo{}, &fakeUserRepo{}, nil)
	assert.Error(t, svc.RunReaper(context.Background(), 0))
}
