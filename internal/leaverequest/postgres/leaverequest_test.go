package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	balanceDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leavebalance"
	requestDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leaverequest"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	"github.com/frahmantamala/leave-management/internal/core/leave"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	balancePostgres "github.com/frahmantamala/leave-management/internal/leavebalance/postgres"
	"github.com/frahmantamala/leave-management/internal/leaverequest"
	requestPostgres "github.com/frahmantamala/leave-management/internal/leaverequest/postgres"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// approvalAfterRead runs onRead once, right after the first balance read.
type approvalAfterRead struct {
	*balancePostgres.LeaveBalanceRepository
	onRead func()
}

func (a *approvalAfterRead) GetByUserTypeYear(ctx context.Context, userID string, t leave.Type, year int) (*leavebalance.LeaveBalance, error) {
	b, err := a.LeaveBalanceRepository.GetByUserTypeYear(ctx, userID, t, year)
	if a.onRead != nil {
		a.onRead()
		a.onRead = nil
	}
	return b, err
}

func TestLeaveRequestPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LeaveRequest Postgres Suite")
}

var _ = Describe("LeaveRequest Repository", func() {
	var (
		db       *gorm.DB
		repo     *requestPostgres.LeaveRequestRepository
		ctx      context.Context
		employee *userDatamodel.User
		manager  *userDatamodel.User
	)

	newRequest := func(userID string, createdAt time.Time) *leaverequest.LeaveRequest {
		start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		r := leaverequest.NewLeaveRequest(userID, leave.TypeAnnual, start, start.AddDate(0, 0, 2), 3, "Holiday")
		r.CreatedAt = createdAt
		r.UpdatedAt = createdAt
		return r
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		// every pooled connection to :memory: would open its own database
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(
			&userDatamodel.User{},
			&balanceDatamodel.LeaveBalance{},
			&requestDatamodel.LeaveRequest{},
		)).To(Succeed())

		employee = &userDatamodel.User{Email: "test@gmail.com", PasswordHash: "x", FirstName: "Jane", LastName: "Smith", Role: "employee", IsActive: true}
		manager = &userDatamodel.User{Email: "viet@gmail.com", PasswordHash: "x", FirstName: "Viet", LastName: "Nguyen", Role: "manager", IsActive: true}
		Expect(db.Create(employee).Error).To(Succeed())
		Expect(db.Create(manager).Error).To(Succeed())

		repo = requestPostgres.NewLeaveRequestRepository(db)
		ctx = context.Background()
	})

	Describe("Create and GetByID", func() {
		It("round-trips a request with its requester", func() {
			r := newRequest(employee.ID, time.Now())
			Expect(repo.Create(ctx, r)).To(Succeed())
			Expect(r.ID).NotTo(BeEmpty())

			got, err := repo.GetByID(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserID).To(Equal(employee.ID))
			Expect(got.Status).To(Equal(leave.StatusPending))
			Expect(got.NumberOfDays).To(Equal(3))
			Expect(got.StartDate.Equal(r.StartDate)).To(BeTrue())
			Expect(got.EndDate.Equal(r.EndDate)).To(BeTrue())
			Expect(got.User).NotTo(BeNil())
			Expect(got.User.Email).To(Equal("test@gmail.com"))
			Expect(got.Approver).To(BeNil())
		})

		It("returns ErrNotFound for unknown ids", func() {
			_, err := repo.GetByID(ctx, uuid.NewString())
			Expect(err).To(MatchError(leaverequest.ErrNotFound))
		})
	})

	Describe("listing", func() {
		It("orders by creation time descending and filters by status", func() {
			base := time.Now().Add(-time.Hour)
			older := newRequest(employee.ID, base)
			newer := newRequest(employee.ID, base.Add(time.Minute))
			foreign := newRequest(manager.ID, base.Add(2*time.Minute))
			for _, r := range []*leaverequest.LeaveRequest{older, newer, foreign} {
				Expect(repo.Create(ctx, r)).To(Succeed())
			}

			mine, err := repo.ListByUser(ctx, employee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(2))
			Expect(mine[0].ID).To(Equal(newer.ID))
			Expect(mine[1].ID).To(Equal(older.ID))

			all, err := repo.List(ctx, leaverequest.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].ID).To(Equal(foreign.ID))

			approved, err := repo.List(ctx, leaverequest.ListFilter{Status: leave.StatusApproved})
			Expect(err).NotTo(HaveOccurred())
			Expect(approved).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("removes the row and reports missing ids", func() {
			r := newRequest(employee.ID, time.Now())
			Expect(repo.Create(ctx, r)).To(Succeed())

			Expect(repo.Delete(ctx, r.ID)).To(Succeed())
			Expect(repo.Delete(ctx, r.ID)).To(MatchError(leaverequest.ErrNotFound))
		})
	})

	Describe("WithinTx", func() {
		var (
			r       *leaverequest.LeaveRequest
			balance *balanceDatamodel.LeaveBalance
		)

		BeforeEach(func() {
			r = newRequest(employee.ID, time.Now())
			Expect(repo.Create(ctx, r)).To(Succeed())

			balance = &balanceDatamodel.LeaveBalance{UserID: employee.ID, LeaveType: "annual", TotalDays: 20, RemainingDays: 20, Year: 2025}
			Expect(db.Create(balance).Error).To(Succeed())
		})

		It("applies a decision and consumes the balance atomically", func() {
			err := repo.WithinTx(ctx, func(tx leaverequest.TxAPI) error {
				locked, err := tx.GetForUpdate(ctx, r.ID)
				if err != nil {
					return err
				}
				locked.Decide(leave.StatusApproved, manager.ID, "")
				if err := tx.ApplyDecision(ctx, locked); err != nil {
					return err
				}
				b, err := tx.BalanceForUpdate(ctx, employee.ID, leave.TypeAnnual, 2025)
				if err != nil {
					return err
				}
				b.Consume(locked.NumberOfDays)
				return tx.SaveBalance(ctx, b)
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := repo.GetByID(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(leave.StatusApproved))
			Expect(*got.ApprovedBy).To(Equal(manager.ID))
			Expect(got.Approver).NotTo(BeNil())
			Expect(got.Approver.Email).To(Equal("viet@gmail.com"))

			var stored balanceDatamodel.LeaveBalance
			Expect(db.First(&stored, "id = ?", balance.ID).Error).To(Succeed())
			Expect(stored.UsedDays).To(Equal(3))
			Expect(stored.RemainingDays).To(Equal(17))
		})

		It("keeps an approval that commits while a manager resets the total", func() {
			approve := func() {
				err := repo.WithinTx(ctx, func(tx leaverequest.TxAPI) error {
					locked, err := tx.GetForUpdate(ctx, r.ID)
					if err != nil {
						return err
					}
					locked.Decide(leave.StatusApproved, manager.ID, "")
					if err := tx.ApplyDecision(ctx, locked); err != nil {
						return err
					}
					b, err := tx.BalanceForUpdate(ctx, employee.ID, leave.TypeAnnual, 2025)
					if err != nil {
						return err
					}
					b.Consume(locked.NumberOfDays)
					return tx.SaveBalance(ctx, b)
				})
				Expect(err).NotTo(HaveOccurred())
			}
			balances := &approvalAfterRead{
				LeaveBalanceRepository: balancePostgres.NewLeaveBalanceRepository(db),
				onRead:                 approve,
			}
			svc := leavebalance.NewService(balances, slog.New(slog.NewTextHandler(io.Discard, nil)))

			updated, err := svc.CreateOrUpdateLeaveBalance(ctx, employee.ID, leave.TypeAnnual, 25, 2025)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.UsedDays).To(Equal(3))
			Expect(updated.RemainingDays).To(Equal(22))

			var stored balanceDatamodel.LeaveBalance
			Expect(db.First(&stored, "id = ?", balance.ID).Error).To(Succeed())
			Expect(stored.TotalDays).To(Equal(25))
			Expect(stored.UsedDays).To(Equal(3))
			Expect(stored.RemainingDays).To(Equal(22))
		})

		It("refuses a second decision on the same row", func() {
			decide := func(status leave.Status) error {
				return repo.WithinTx(ctx, func(tx leaverequest.TxAPI) error {
					stale := *r
					stale.Decide(status, manager.ID, "late")
					return tx.ApplyDecision(ctx, &stale)
				})
			}
			Expect(decide(leave.StatusApproved)).To(Succeed())
			Expect(decide(leave.StatusRejected)).To(MatchError(leaverequest.ErrNotPending))

			got, err := repo.GetByID(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(leave.StatusApproved))
		})

		It("rolls back every write when the callback fails", func() {
			err := repo.WithinTx(ctx, func(tx leaverequest.TxAPI) error {
				locked, err := tx.GetForUpdate(ctx, r.ID)
				if err != nil {
					return err
				}
				locked.Decide(leave.StatusApproved, manager.ID, "")
				if err := tx.ApplyDecision(ctx, locked); err != nil {
					return err
				}
				return leavebalance.ErrBalanceNotFound
			})
			Expect(err).To(MatchError(leavebalance.ErrBalanceNotFound))

			got, err := repo.GetByID(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(leave.StatusPending))
		})

		It("reports missing balances", func() {
			err := repo.WithinTx(ctx, func(tx leaverequest.TxAPI) error {
				_, err := tx.BalanceForUpdate(ctx, employee.ID, leave.TypeSick, 2025)
				return err
			})
			Expect(err).To(MatchError(leavebalance.ErrBalanceNotFound))
		})
	})
})
