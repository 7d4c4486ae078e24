package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

const testSecret = "test-secret-key-with-at-least-32-characters"

// Mock RepositoryAPI for testing
type mockUserRepository struct {
	users         map[string]*coreUser.User
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("12345678"), bcrypt.MinCost)

	return &mockUserRepository{
		users: map[string]*coreUser.User{
			"test@gmail.com": {
				ID: "8b0f1a36-4a38-4c3c-9a7e-1d2f3a4b5c6d", Email: "test@gmail.com", PasswordHash: string(hashedPassword),
				FirstName: "Jane", LastName: "Smith", Role: coreUser.RoleEmployee, IsActive: true,
			},
			"viet@gmail.com": {
				ID: "2c1e5a7b-9d3f-4e6a-8b1c-0f2e4d6a8c1e", Email: "viet@gmail.com", PasswordHash: string(hashedPassword),
				FirstName: "Viet", LastName: "Nguyen", Role: coreUser.RoleManager, IsActive: true,
			},
			"gone@gmail.com": {
				ID: "5d7f9b1c-3e5a-4c7e-9f1b-3d5f7a9c1e3b", Email: "gone@gmail.com", PasswordHash: string(hashedPassword),
				FirstName: "Gone", LastName: "User", Role: coreUser.RoleEmployee, IsActive: false,
			},
		},
	}
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*coreUser.User, error) {
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, coreUser.ErrNotFound
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*coreUser.User, error) {
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, coreUser.ErrNotFound
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		repo     *mockUserRepository
		tokens   *JWTTokenGenerator
		denylist *MemoryDenylist
		service  *Service
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		repo = newMockUserRepository()
		tokens = NewJWTTokenGenerator(testSecret, time.Hour)
		denylist = NewMemoryDenylist()
		service = NewService(repo, tokens, denylist, slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx = context.Background()
	})

	ginkgo.Describe("Login", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return an access token and the user", func() {
				// Given
				dto := LoginDTO{Email: "test@gmail.com", Password: "12345678"}

				// When
				resp, err := service.Login(ctx, dto)

				// Then
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(resp.AccessToken).NotTo(gomega.BeEmpty())
				gomega.Expect(resp.User.Email).To(gomega.Equal("test@gmail.com"))
				gomega.Expect(resp.User.Role).To(gomega.Equal(coreUser.RoleEmployee))
			})

			ginkgo.It("should issue a token carrying id, email and role", func() {
				// Given
				dto := LoginDTO{Email: "viet@gmail.com", Password: "12345678"}

				// When
				resp, err := service.Login(ctx, dto)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				claims, err := tokens.ValidateToken(resp.AccessToken)

				// Then
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(claims.UserID()).To(gomega.Equal("2c1e5a7b-9d3f-4e6a-8b1c-0f2e4d6a8c1e"))
				gomega.Expect(claims.Email).To(gomega.Equal("viet@gmail.com"))
				gomega.Expect(claims.Role).To(gomega.Equal(coreUser.RoleManager))
				gomega.Expect(claims.ID).NotTo(gomega.BeEmpty())
			})

			ginkgo.It("should normalize the email before lookup", func() {
				resp, err := service.Login(ctx, LoginDTO{Email: "  Test@Gmail.com ", Password: "12345678"})

				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(resp.User.Email).To(gomega.Equal("test@gmail.com"))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return invalid credentials for an unknown email", func() {
				// When
				_, err := service.Login(ctx, LoginDTO{Email: "nobody@gmail.com", Password: "12345678"})

				// Then
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})

			ginkgo.It("should return invalid credentials for a wrong password", func() {
				_, err := service.Login(ctx, LoginDTO{Email: "test@gmail.com", Password: "wrong-password"})

				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})

			ginkgo.It("should reject a deactivated account", func() {
				_, err := service.Login(ctx, LoginDTO{Email: "gone@gmail.com", Password: "12345678"})

				gomega.Expect(err).To(gomega.MatchError(internal.ErrUserInactive))
			})
		})

		ginkgo.Context("when input validation fails", func() {
			ginkgo.It("should return a validation error for an empty email", func() {
				_, err := service.Login(ctx, LoginDTO{Email: "", Password: "12345678"})

				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
			})

			ginkgo.It("should return a validation error for an empty password", func() {
				_, err := service.Login(ctx, LoginDTO{Email: "test@gmail.com"})

				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
			})
		})

		ginkgo.Context("when repository returns error", func() {
			ginkgo.It("should return an internal error", func() {
				// Given
				repo.errorToReturn = errors.New("connection refused")

				// When
				_, err := service.Login(ctx, LoginDTO{Email: "test@gmail.com", Password: "12345678"})

				// Then
				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeInternal))
			})
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		var user *coreUser.User

		ginkgo.BeforeEach(func() {
			user = repo.users["test@gmail.com"]
		})

		ginkgo.It("should accept a freshly issued token", func() {
			token, _, err := tokens.GenerateAccessToken(user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(ctx, token)

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.UserID()).To(gomega.Equal(user.ID))
		})

		ginkgo.It("should reject the token of a user deactivated after login", func() {
			// Given
			resp, err := service.Login(ctx, LoginDTO{Email: "test@gmail.com", Password: "12345678"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			user.IsActive = false

			// When
			_, err = service.ValidateAccessToken(ctx, resp.AccessToken)

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserInactive))
		})

		ginkgo.It("should reject the token of a user that no longer exists", func() {
			token, _, err := tokens.GenerateAccessToken(user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			delete(repo.users, user.Email)

			_, err = service.ValidateAccessToken(ctx, token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject garbage", func() {
			_, err := service.ValidateAccessToken(ctx, "not.a.token")

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject a token signed with another secret", func() {
			other := NewJWTTokenGenerator("another-secret-key-with-32-characters!!", time.Hour)
			token, _, err := other.GenerateAccessToken(user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(ctx, token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should report an expired token", func() {
			// Given
			issued := time.Now().Add(-2 * time.Hour)
			stale := NewJWTTokenGenerator(testSecret, time.Hour).WithClock(func() time.Time { return issued })
			token, _, err := stale.GenerateAccessToken(user)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			_, err = service.ValidateAccessToken(ctx, token)

			// Then
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should reject the none algorithm", func() {
			claims := &Claims{
				Email: user.Email,
				Role:  user.Role,
				RegisteredClaims: jwt.RegisteredClaims{
					ID:        "jti",
					Subject:   user.ID,
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(ctx, token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject a token with an unknown role", func() {
			claims := &Claims{
				Email: user.Email,
				Role:  coreUser.Role("admin"),
				RegisteredClaims: jwt.RegisteredClaims{
					ID:        "jti",
					Subject:   user.ID,
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(ctx, token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should revoke the token until it expires", func() {
			// Given
			token, _, err := tokens.GenerateAccessToken(repo.users["test@gmail.com"])
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			claims, err := service.ValidateAccessToken(ctx, token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// When
			resp, err := service.Logout(ctx, claims)

			// Then
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(resp.Message).To(gomega.Equal("Successfully logged out"))
			_, err = service.ValidateAccessToken(ctx, token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenRevoked))
		})

		ginkgo.It("should leave other tokens valid", func() {
			first, _, _ := tokens.GenerateAccessToken(repo.users["test@gmail.com"])
			second, _, _ := tokens.GenerateAccessToken(repo.users["test@gmail.com"])
			claims, err := service.ValidateAccessToken(ctx, first)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.Logout(ctx, claims)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(ctx, second)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should reject claims without a token id", func() {
			_, err := service.Logout(ctx, &Claims{})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("HashPassword", func() {
		ginkgo.It("should produce a hash that verifies", func() {
			hash, err := HashPassword("12345678", bcrypt.MinCost)

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(hash).NotTo(gomega.Equal("12345678"))
			gomega.Expect(VerifyPassword(hash, "12345678")).To(gomega.Succeed())
			gomega.Expect(VerifyPassword(hash, "nope")).NotTo(gomega.Succeed())
		})
	})
})

var _ = ginkgo.Describe("MemoryDenylist", func() {
	ginkgo.It("should forget entries after their expiry", func() {
		// Given
		now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
		d := NewMemoryDenylist()
		d.now = func() time.Time { return now }
		gomega.Expect(d.Revoke(context.Background(), "jti-1", now.Add(time.Minute))).To(gomega.Succeed())

		// When
		before, err := d.IsRevoked(context.Background(), "jti-1")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		now = now.Add(2 * time.Minute)
		after, err := d.IsRevoked(context.Background(), "jti-1")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		// Then
		gomega.Expect(before).To(gomega.BeTrue())
		gomega.Expect(after).To(gomega.BeFalse())
	})
})
