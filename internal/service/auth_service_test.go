package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classbridge/report-api/internal/models"
	"github.com/classbridge/report-api/internal/repository"
	appErrors "github.com/classbridge/report-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	assignedClasses  []string
	assignedErr      error
	lastLoginUpdated bool
	assignedCalled   bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) AssignedClassIDs(ctx context.Context, userID string) ([]string, error) {
	m.assignedCalled = true
	if m.assignedErr != nil {
		return nil, m.assignedErr
	}
	return m.assignedClasses, nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "classbridge-report-api",
	}
}

func testAuthUser(t *testing.T, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		SchoolID:     "sch-1",
		Email:        "ama@school.test",
		PasswordHash: string(hash),
		FullName:     "Ama Mensah",
		Role:         role,
		Active:       true,
	}
}

func TestAuthLoginIssuesTokenWithClassScope(t *testing.T) {
	repo := &mockAuthRepo{
		userByEmail:     testAuthUser(t, models.RoleTeacher),
		assignedClasses: []string{"class-1", "class-2"},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sch-1", claims.SchoolID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, []string{"class-1", "class-2"}, claims.ClassIDs)
}

func TestAuthLoginHeadTeacherTokenIsSchoolWide(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: testAuthUser(t, models.RoleHeadTeacher)}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "s3cret!"})
	require.NoError(t, err)
	// Head teachers see all classes, so no assignment lookup happens
	// and the token carries no class list.
	assert.False(t, repo.assignedCalled)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.ClassIDs)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: testAuthUser(t, models.RoleTeacher)}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	repo := &mockAuthRepo{findByEmailErr: repository.ErrUserNotFound}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@school.test", Password: "s3cret!"})
	require.Error(t, err)
	// Unknown email and wrong password are indistinguishable.
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	user := testAuthUser(t, models.RoleTeacher)
	user.Active = false
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "s3cret!"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginRejectsInvalidPayload(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsForgedSecret(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: testAuthUser(t, models.RoleTeacher)}
	issuer := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "other-secret",
		AccessTokenExpiry: time.Hour,
	})
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "s3cret!"})
	require.NoError(t, err)

	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsExpired(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: testAuthUser(t, models.RoleTeacher)}
	cfg := testAuthConfig()
	cfg.AccessTokenExpiry = -time.Minute
	issuer := NewAuthService(repo, nil, nil, cfg)
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "s3cret!"})
	require.NoError(t, err)

	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
