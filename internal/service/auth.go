package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/auth"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/repository"
)

// minPasswordLength applies to new registrations only; existing hashes are
// never re-validated against it.
const minPasswordLength = 8

// AuthService orchestrates login and token checks. Two entry points issue
// sessions: the GitHub OAuth callback and the email/password pair. Both end
// in the same JWT cookie.
type AuthService struct {
	users     repository.UserRepository
	credits   *CreditService
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	credits *CreditService,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		credits:   credits,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record with the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub completes the OAuth callback after the handler has
// exchanged the code for a GitHub profile.
//
// The user is upserted on github_id: first login inserts, later logins
// refresh login/email/avatar in case they changed on GitHub. A first login
// also seeds the account with its free generation credits.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}

	created, err := s.users.Upsert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	if created {
		// Seeding credits is best-effort: a ledger hiccup should not block
		// the login itself. The user can still be granted later by support.
		if err := s.credits.GrantSignupCredits(ctx, user.ID); err != nil {
			s.logger.Error("granting signup credits failed",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
		slog.Bool("newUser", created),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// RegisterWithPassword creates an email/password account and issues a
// session, seeding the same signup credits a first OAuth login gets.
//
// The login name is the email's local part ("ada@example.com" → "ada") —
// purely cosmetic, no uniqueness requirement.
func (s *AuthService) RegisterWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Login:        email[:strings.Index(email, "@")],
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	// Same best-effort seeding as the OAuth path.
	if err := s.credits.GrantSignupCredits(ctx, user.ID); err != nil {
		s.logger.Error("granting signup credits failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user registered with password",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// LoginWithPassword verifies credentials and issues a session.
//
// An unknown email and a wrong password both return the same Unauthorized:
// the response must not reveal which addresses have accounts.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	// OAuth accounts have no hash; they can't log in with a password.
	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user authenticated with password",
		slog.String("userID", user.ID),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID is used by /api/me after the middleware has validated the JWT
// and extracted the userID from the Subject claim.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetByID(ctx, id)
}

// ValidateToken validates a JWT string and returns the userID it encodes.
// Thin delegation so callers only import the service package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
