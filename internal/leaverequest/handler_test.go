package leaverequest_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	balanceDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leavebalance"
	requestDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leaverequest"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	"github.com/frahmantamala/leave-management/internal/core/events"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	balancePostgres "github.com/frahmantamala/leave-management/internal/leavebalance/postgres"
	"github.com/frahmantamala/leave-management/internal/leaverequest"
	requestPostgres "github.com/frahmantamala/leave-management/internal/leaverequest/postgres"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("LeaveRequest Handler Integration", func() {
	var (
		db       *gorm.DB
		router   chi.Router
		bus      *events.EventBus
		received chan events.Event
		employee *userDatamodel.User
		manager  *userDatamodel.User
		users    memUsers
	)

	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	principalFor := func(u *userDatamodel.User) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := internal.ContextWithPrincipal(r.Context(), &internal.Principal{
					ID:    u.ID,
					Email: u.Email,
					Role:  coreUser.Role(u.Role),
				})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	do := func(as *userDatamodel.User, method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		r := chi.NewRouter()
		r.Use(principalFor(as))
		r.Mount("/", router)
		r.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) errorEnvelope {
		var env errorEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&env)).To(Succeed())
		return env
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{}, &balanceDatamodel.LeaveBalance{}, &requestDatamodel.LeaveRequest{})).To(Succeed())

		employee = &userDatamodel.User{Email: "test@gmail.com", PasswordHash: "x", FirstName: "Jane", LastName: "Smith", Role: "employee", IsActive: true}
		manager = &userDatamodel.User{Email: "viet@gmail.com", PasswordHash: "x", FirstName: "Viet", LastName: "Nguyen", Role: "manager", IsActive: true}
		Expect(db.Create(employee).Error).To(Succeed())
		Expect(db.Create(manager).Error).To(Succeed())
		users = memUsers{
			employee.ID: {ID: employee.ID, Email: employee.Email, Role: coreUser.RoleEmployee, IsActive: true},
			manager.ID:  {ID: manager.ID, Email: manager.Email, Role: coreUser.RoleManager, IsActive: true},
		}

		clock := func() time.Time { return now }
		balanceRepo := balancePostgres.NewLeaveBalanceRepository(db)
		balances := leavebalance.NewService(balanceRepo, slogger).WithClock(clock)
		_, err = balances.CreateOrUpdateLeaveBalance(context.Background(), employee.ID, leave.TypeAnnual, 20, 2025)
		Expect(err).NotTo(HaveOccurred())

		bus = events.NewEventBus(slogger)
		received = make(chan events.Event, 8)
		bus.SubscribeAll(events.LeaveRequestEventTypes, func(_ context.Context, e events.Event) error {
			received <- e
			return nil
		})

		service := leaverequest.NewService(requestPostgres.NewLeaveRequestRepository(db), balanceRepo, users, bus, slogger).
			WithClock(clock, time.UTC)
		handler := leaverequest.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		r := chi.NewRouter()
		r.Post("/leave-request", handler.CreateLeaveRequest)
		r.Get("/leave-request", handler.GetMyLeaveRequests)
		r.Get("/leave-request/all", handler.GetAllLeaveRequests)
		r.Get("/leave-request/{id}", handler.GetLeaveRequest)
		r.Patch("/leave-request/{id}", handler.UpdateLeaveRequestStatus)
		r.Delete("/leave-request/{id}", handler.DeleteLeaveRequest)
		router = r
	})

	AfterEach(func() {
		bus.Wait()
	})

	create := func() leaverequest.LeaveRequest {
		w := do(employee, http.MethodPost, "/leave-request",
			`{"leaveType":"annual","startDate":"2025-06-16","endDate":"2025-06-20","numberOfDays":5,"reason":"Family trip"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		var created leaverequest.LeaveRequest
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		return created
	}

	It("runs the approve flow and deducts the balance", func() {
		created := create()
		Expect(created.Status).To(Equal(leave.StatusPending))
		Eventually(received).Should(Receive())

		w := do(manager, http.MethodPatch, "/leave-request/"+created.ID, `{"status":"approved"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		var decided leaverequest.LeaveRequest
		Expect(json.NewDecoder(w.Body).Decode(&decided)).To(Succeed())
		Expect(decided.Status).To(Equal(leave.StatusApproved))
		Expect(decided.Approver).NotTo(BeNil())
		Expect(decided.Approver.ID).To(Equal(manager.ID))

		var balance balanceDatamodel.LeaveBalance
		Expect(db.Where("user_id = ? AND leave_type = ? AND year = ?", employee.ID, "annual", 2025).First(&balance).Error).To(Succeed())
		Expect(balance.UsedDays).To(Equal(5))
		Expect(balance.RemainingDays).To(Equal(15))

		w = do(manager, http.MethodPatch, "/leave-request/"+created.ID, `{"status":"approved"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Error.Message).To(Equal("Leave request has already been processed"))
	})

	It("returns the created request on GET by id", func() {
		created := create()

		w := do(employee, http.MethodGet, "/leave-request/"+created.ID, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var got leaverequest.LeaveRequest
		Expect(json.NewDecoder(w.Body).Decode(&got)).To(Succeed())
		Expect(got.ID).To(Equal(created.ID))
		Expect(got.Reason).To(Equal("Family trip"))
		Expect(got.User).NotTo(BeNil())
		Expect(got.User.Email).To(Equal("test@gmail.com"))
	})

	It("lists the caller's requests", func() {
		create()
		w := do(employee, http.MethodGet, "/leave-request", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var list []leaverequest.LeaveRequest
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list).To(HaveLen(1))
	})

	It("rejects malformed ids with 400 before any lookup", func() {
		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			w := do(employee, method, "/leave-request/not-a-uuid", "")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w).Error.Message).To(Equal("Invalid UUID format for leave request ID"))
		}
	})

	It("returns 404 for unknown ids", func() {
		w := do(employee, http.MethodGet, "/leave-request/3fa85f64-5717-4562-b3fc-2c963f66afa6", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("forbids employees from /all", func() {
		w := do(employee, http.MethodGet, "/leave-request/all", "")
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(w).Error.Message).To(Equal("Only managers can view all leave requests"))
	})

	It("validates the status filter on /all", func() {
		w := do(manager, http.MethodGet, "/leave-request/all?status=done", "")
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		create()
		w = do(manager, http.MethodGet, "/leave-request/all?status=pending", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var list []leaverequest.LeaveRequest
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list).To(HaveLen(1))
	})

	It("reports insufficient balance", func() {
		w := do(employee, http.MethodPost, "/leave-request",
			`{"leaveType":"annual","startDate":"2025-06-16","endDate":"2025-07-20","numberOfDays":25,"reason":"Long trip"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Error.Message).To(Equal("Insufficient leave balance. You have 20 days remaining but requested 25 days"))
	})

	It("rejects malformed JSON", func() {
		w := do(employee, http.MethodPost, "/leave-request", `{"leaveType":`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("deletes a pending request for its owner", func() {
		created := create()

		w := do(employee, http.MethodDelete, "/leave-request/"+created.ID, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var msg leaverequest.MessageResponse
		Expect(json.NewDecoder(w.Body).Decode(&msg)).To(Succeed())
		Expect(msg.Message).To(Equal("Leave request deleted successfully"))

		w = do(employee, http.MethodGet, "/leave-request/"+created.ID, "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
