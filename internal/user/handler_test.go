package user_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/leave-management/internal"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/frahmantamala/leave-management/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("User Handler", func() {
	var (
		repo     *memRepo
		handler  *user.Handler
		manager  *coreUser.User
		employee *coreUser.User
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = newMemRepo()
		manager = repo.add(&coreUser.User{Email: "viet@gmail.com", Role: coreUser.RoleManager, IsActive: true})
		employee = repo.add(&coreUser.User{Email: "test@gmail.com", Role: coreUser.RoleEmployee, IsActive: true})
		service := user.NewService(repo, &recordingBalances{calls: map[string]int{}}, bcrypt.MinCost, lg)
		handler = user.NewHandler(transport.NewBaseHandler(lg), service)
	})

	serve := func(as *coreUser.User, method, path, body string) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := internal.ContextWithPrincipal(req.Context(), &internal.Principal{ID: as.ID, Email: as.Email, Role: as.Role})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Get("/users/me", handler.GetCurrentUser)
		r.Get("/users", handler.ListUsers)
		r.Post("/users", handler.CreateUser)
		r.Get("/users/{id}", handler.GetUser)
		r.Put("/users/{id}", handler.UpdateUser)
		r.Patch("/users/{id}/deactivate", handler.DeactivateUser)

		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req.WithContext(context.Background()))
		return w
	}

	It("returns the current profile", func() {
		w := serve(employee, http.MethodGet, "/users/me", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var p user.Profile
		Expect(json.NewDecoder(w.Body).Decode(&p)).To(Succeed())
		Expect(p.ID).To(Equal(employee.ID))
		Expect(w.Body.String()).NotTo(ContainSubstring("password"))
	})

	It("creates a user with 201", func() {
		w := serve(manager, http.MethodPost, "/users",
			`{"email":"new@gmail.com","password":"secret1","firstName":"New","lastName":"Hire","role":"employee"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
	})

	It("returns 409 for a duplicate email", func() {
		w := serve(manager, http.MethodPost, "/users",
			`{"email":"test@gmail.com","password":"secret1","firstName":"Jane","lastName":"Smith","role":"employee"}`)
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("forbids employees from listing users", func() {
		w := serve(employee, http.MethodGet, "/users", "")
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("deactivates a user", func() {
		w := serve(manager, http.MethodPatch, "/users/"+employee.ID+"/deactivate", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(repo.byID[employee.ID].IsActive).To(BeFalse())
	})

	It("returns a user by id to a manager", func() {
		w := serve(manager, http.MethodGet, "/users/"+employee.ID, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var p user.Profile
		Expect(json.NewDecoder(w.Body).Decode(&p)).To(Succeed())
		Expect(p.Email).To(Equal("test@gmail.com"))
	})

	It("answers 403 for another employee's profile and 400 for a bad id", func() {
		Expect(serve(employee, http.MethodGet, "/users/"+manager.ID, "").Code).To(Equal(http.StatusForbidden))
		Expect(serve(manager, http.MethodGet, "/users/not-a-uuid", "").Code).To(Equal(http.StatusBadRequest))
	})

	It("updates the caller's own names", func() {
		w := serve(employee, http.MethodPut, "/users/"+employee.ID, `{"firstName":"Janet","lastName":"Smith","role":"manager"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(repo.byID[employee.ID].FirstName).To(Equal("Janet"))
		Expect(repo.byID[employee.ID].Role).To(Equal(coreUser.RoleEmployee))
	})
})
