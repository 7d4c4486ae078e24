package leavebalance_test

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
	"github.com/frahmantamala/leave-management/internal/core/leave"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	balancePostgres "github.com/frahmantamala/leave-management/internal/leavebalance/postgres"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func withRouteParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func asEmployee(req *http.Request, id string) *http.Request {
	return req.WithContext(internal.ContextWithPrincipal(req.Context(), &internal.Principal{
		ID:   id,
		Role: coreUser.RoleEmployee,
	}))
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("LeaveBalance Handler Integration", func() {
	var (
		db      *gorm.DB
		service *leavebalance.Service
		handler *leavebalance.Handler
		userID  string
	)

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
		Expect(db.AutoMigrate(&balanceDatamodel.LeaveBalance{})).To(Succeed())

		repo := balancePostgres.NewLeaveBalanceRepository(db)
		service = leavebalance.NewService(repo, slogger).
			WithClock(func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) })
		handler = leavebalance.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		userID = uuid.NewString()
		_, err = service.InitializeDefaultLeaveBalances(context.Background(), userID, 2025)
		Expect(err).NotTo(HaveOccurred())
	})

	It("lists the caller's balances for the current year", func() {
		req := asEmployee(httptest.NewRequest(http.MethodGet, "/leave-balance", nil), userID)
		w := httptest.NewRecorder()

		handler.GetMyBalances(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var balances []leavebalance.LeaveBalance
		Expect(json.NewDecoder(w.Body).Decode(&balances)).To(Succeed())
		Expect(balances).To(HaveLen(5))
		Expect(balances[0].LeaveType).To(Equal(leave.TypeAnnual))
	})

	It("rejects a malformed year", func() {
		req := asEmployee(httptest.NewRequest(http.MethodGet, "/leave-balance?year=abc", nil), userID)
		w := httptest.NewRecorder()

		handler.GetMyBalances(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 without a principal", func() {
		w := httptest.NewRecorder()
		handler.GetMyBalances(w, httptest.NewRequest(http.MethodGet, "/leave-balance", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("returns a single balance by type", func() {
		req := asEmployee(httptest.NewRequest(http.MethodGet, "/leave-balance/sick", nil), userID)
		req = withRouteParams(req, map[string]string{"leaveType": "sick"})
		w := httptest.NewRecorder()

		handler.GetMyBalanceByType(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var b leavebalance.LeaveBalance
		Expect(json.NewDecoder(w.Body).Decode(&b)).To(Succeed())
		Expect(b.TotalDays).To(Equal(10))
		Expect(b.RemainingDays).To(Equal(10))
	})

	It("returns 404 for a year with no balance", func() {
		req := asEmployee(httptest.NewRequest(http.MethodGet, "/leave-balance/sick?year=2030", nil), userID)
		req = withRouteParams(req, map[string]string{"leaveType": "sick"})
		w := httptest.NewRecorder()

		handler.GetMyBalanceByType(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		var body errorBody
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Message).To(Equal("Leave balance not found for type sick in year 2030"))
	})

	It("returns 400 for an unknown leave type", func() {
		req := asEmployee(httptest.NewRequest(http.MethodGet, "/leave-balance/holiday", nil), userID)
		req = withRouteParams(req, map[string]string{"leaveType": "holiday"})
		w := httptest.NewRecorder()

		handler.GetMyBalanceByType(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("sets another user's allocation", func() {
		body := strings.NewReader(`{"leaveType":"annual","totalDays":25,"year":2025}`)
		req := httptest.NewRequest(http.MethodPut, "/leave-balance/users/"+userID, body)
		req = withRouteParams(req, map[string]string{"userId": userID})
		w := httptest.NewRecorder()

		handler.SetUserBalance(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var b leavebalance.LeaveBalance
		Expect(json.NewDecoder(w.Body).Decode(&b)).To(Succeed())
		Expect(b.TotalDays).To(Equal(25))
		Expect(b.RemainingDays).To(Equal(25))
	})

	It("requires totalDays when setting an allocation", func() {
		body := strings.NewReader(`{"leaveType":"annual"}`)
		req := httptest.NewRequest(http.MethodPut, "/leave-balance/users/"+userID, body)
		req = withRouteParams(req, map[string]string{"userId": userID})
		w := httptest.NewRecorder()

		handler.SetUserBalance(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects a non-uuid user id before touching the store", func() {
		req := httptest.NewRequest(http.MethodGet, "/leave-balance/users/nope", nil)
		req = withRouteParams(req, map[string]string{"userId": "nope"})
		w := httptest.NewRecorder()

		handler.GetUserBalances(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("initializes defaults for a user without a body", func() {
		other := uuid.NewString()
		req := httptest.NewRequest(http.MethodPost, "/leave-balance/users/"+other+"/initialize", nil)
		req = withRouteParams(req, map[string]string{"userId": other})
		w := httptest.NewRecorder()

		handler.InitializeUserBalances(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var balances []leavebalance.LeaveBalance
		Expect(json.NewDecoder(w.Body).Decode(&balances)).To(Succeed())
		Expect(balances).To(HaveLen(5))
		for _, b := range balances {
			Expect(b.Year).To(Equal(2025))
		}
	})
})
