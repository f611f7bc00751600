package service

import (
	"context"
	"time"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
	apperrors "github.com/monanga/monanga-business/internal/errors"
	"github.com/monanga/monanga-business/internal/ports"
)

// fakeUserRepo is a function-field test double for ports.UserRepository.
// Unset fields answer "not found" so tests only wire what they exercise.
type fakeUserRepo struct {
	createFunc             func(ctx context.Context, user *model.User) (*model.User, error)
	getByIDFunc            func(ctx context.Context, id string) (*model.User, error)
	getByEmailFunc         func(ctx context.Context, email string) (*model.User, error)
	updatePasswordFunc     func(ctx context.Context, id, passwordHash string) error
	setResetTokenFunc      func(ctx context.Context, id, token string, expiresAt time.Time) error
	clearResetTokenFunc    func(ctx context.Context, id string) error
	usernameExistsFunc     func(ctx context.Context, username string) (bool, error)
	deleteWithSessionsFunc func(ctx context.Context, id string) error
	upsertOAuthLoginFunc   func(ctx context.Context, user *model.User, sess domainauth.Session) (*model.User, error)
}

var _ ports.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, user)
	}
	return user, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.getByEmailFunc != nil {
		return f.getByEmailFunc(ctx, email)
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if f.updatePasswordFunc != nil {
		return f.updatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (f *fakeUserRepo) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	if f.setResetTokenFunc != nil {
		return f.setResetTokenFunc(ctx, id, token, expiresAt)
	}
	return nil
}

func (f *fakeUserRepo) ClearResetToken(ctx context.Context, id string) error {
	if f.clearResetTokenFunc != nil {
		return f.clearResetTokenFunc(ctx, id)
	}
	return nil
}

func (f *fakeUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if f.usernameExistsFunc != nil {
		return f.usernameExistsFunc(ctx, username)
	}
	return false, nil
}

func (f *fakeUserRepo) DeleteWithSessions(ctx context.Context, id string) error {
	if f.deleteWithSessionsFunc != nil {
		return f.deleteWithSessionsFunc(ctx, id)
	}
	return nil
}

func (f *fakeUserRepo) UpsertOAuthLogin(ctx context.Context, user *model.User, sess domainauth.Session) (*model.User, error) {
	if f.upsertOAuthLoginFunc != nil {
		return f.upsertOAuthLoginFunc(ctx, user, sess)
	}
	return user, nil
}

// fakeSessionRepo is a function-field test double for ports.SessionRepository.
type fakeSessionRepo struct {
	createFunc        func(ctx context.Context, sess domainauth.Session) error
	getFunc           func(ctx context.Context, id string) (domainauth.Session, error)
	deleteFunc        func(ctx context.Context, id string) error
	deleteByUserFunc  func(ctx context.Context, userID string) error
	deleteExpiredFunc func(ctx context.Context) (int64, error)
}

var _ ports.SessionRepository = (*fakeSessionRepo)(nil)

func (f *fakeSessionRepo) Create(ctx context.Context, sess domainauth.Session) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, sess)
	}
	return nil
}

func (f *fakeSessionRepo) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, id)
	}
	return domainauth.Session{}, apperrors.NotFound("session not found")
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, id)
	}
	return nil
}

func (f *fakeSessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	if f.deleteByUserFunc != nil {
		return f.deleteByUserFunc(ctx, userID)
	}
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if f.deleteExpiredFunc != nil {
		return f.deleteExpiredFunc(ctx)
	}
	return 0, nil
}

// fakeMailer records sent reset mails.
type fakeMailer struct {
	sendFunc func(ctx context.Context, to, resetURL string) error
	sent     []string
	urls     []string
}

var _ ports.Mailer = (*fakeMailer)(nil)

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	f.sent = append(f.sent, to)
	f.urls = append(f.urls, resetURL)
	if f.sendFunc != nil {
		return f.sendFunc(ctx, to, resetURL)
	}
	return nil
}
