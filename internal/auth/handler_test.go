package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("AuthHandler", func() {
	var (
		router http.Handler
		tokens *JWTTokenGenerator
		repo   *mockUserRepository
	)

	ginkgo.BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = newMockUserRepository()
		tokens = NewJWTTokenGenerator(testSecret, time.Hour)
		service := NewService(repo, tokens, NewMemoryDenylist(), lg)
		handler := NewHandler(transport.NewBaseHandler(lg), service)

		ok := func(w http.ResponseWriter, r *http.Request) {
			p, _ := internal.PrincipalFromContext(r.Context())
			_ = json.NewEncoder(w).Encode(map[string]string{"id": p.ID, "role": string(p.Role)})
		}

		r := chi.NewRouter()
		r.Post("/auth/login", handler.Login)
		r.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.Post("/auth/logout", handler.Logout)
			r.Get("/whoami", ok)
			r.With(handler.RequireRole(coreUser.RoleManager)).Get("/managers-only", ok)
		})
		router = r
	})

	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	login := func(email string) string {
		w := do(http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"12345678"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		var resp LoginResponse
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		return resp.AccessToken
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return 401 for bad credentials", func() {
			w := do(http.MethodPost, "/auth/login", "", `{"email":"test@gmail.com","password":"nope"}`)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring("Invalid credentials"))
		})

		ginkgo.It("should return 400 for a malformed body", func() {
			w := do(http.MethodPost, "/auth/login", "", `{"email":`)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		ginkgo.It("should reject a missing token", func() {
			w := do(http.MethodGet, "/whoami", "", "")

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should reject a non-bearer scheme", func() {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Basic dGVzdDp0ZXN0")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should put the principal on the context", func() {
			token := login("test@gmail.com")

			w := do(http.MethodGet, "/whoami", token, "")

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			var body map[string]string
			gomega.Expect(json.NewDecoder(w.Body).Decode(&body)).To(gomega.Succeed())
			gomega.Expect(body["id"]).To(gomega.Equal(repo.users["test@gmail.com"].ID))
			gomega.Expect(body["role"]).To(gomega.Equal("employee"))
		})

		ginkgo.It("should stop a manager deactivated after login", func() {
			token := login("viet@gmail.com")
			repo.users["viet@gmail.com"].IsActive = false

			w := do(http.MethodGet, "/managers-only", token, "")

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring("Account is deactivated"))
		})
	})

	ginkgo.Describe("RequireRole", func() {
		ginkgo.It("should forbid employees", func() {
			w := do(http.MethodGet, "/managers-only", login("test@gmail.com"), "")

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should allow managers", func() {
			w := do(http.MethodGet, "/managers-only", login("viet@gmail.com"), "")

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should make the token unusable", func() {
			token := login("test@gmail.com")

			w := do(http.MethodPost, "/auth/logout", token, "")
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

			w = do(http.MethodGet, "/whoami", token, "")
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring("Token has been revoked"))
		})
	})
})
