package postgres_test

import (
	"context"
	"testing"

	authPostgres "github.com/frahmantamala/leave-management/internal/auth/postgres"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAuthPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Postgres Suite")
}

var _ = Describe("Auth Repository", func() {
	var (
		db   *gorm.DB
		repo *authPostgres.Repository
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&userDatamodel.User{})).To(Succeed())
		repo = authPostgres.NewRepository(db)

		Expect(db.Create(&userDatamodel.User{
			Email: "test@gmail.com", PasswordHash: "hash", FirstName: "Jane", LastName: "Smith",
			Role: "employee", IsActive: true,
		}).Error).To(Succeed())
		Expect(db.Create(&userDatamodel.User{
			Email: "gone@gmail.com", PasswordHash: "hash", FirstName: "Gone", LastName: "User",
			Role: "employee", IsActive: false,
		}).Error).To(Succeed())
	})

	It("maps the stored row", func() {
		u, err := repo.GetByEmail(context.Background(), "test@gmail.com")

		Expect(err).NotTo(HaveOccurred())
		Expect(u.ID).NotTo(BeEmpty())
		Expect(u.PasswordHash).To(Equal("hash"))
		Expect(u.Role).To(Equal(coreUser.RoleEmployee))
		Expect(u.IsActive).To(BeTrue())
	})

	It("returns inactive users", func() {
		u, err := repo.GetByEmail(context.Background(), "gone@gmail.com")

		Expect(err).NotTo(HaveOccurred())
		Expect(u.IsActive).To(BeFalse())
	})

	It("returns ErrNotFound for unknown emails", func() {
		_, err := repo.GetByEmail(context.Background(), "nobody@gmail.com")

		Expect(err).To(MatchError(coreUser.ErrNotFound))
	})

	It("looks users up by id", func() {
		byEmail, err := repo.GetByEmail(context.Background(), "gone@gmail.com")
		Expect(err).NotTo(HaveOccurred())

		u, err := repo.GetByID(context.Background(), byEmail.ID)

		Expect(err).NotTo(HaveOccurred())
		Expect(u.Email).To(Equal("gone@gmail.com"))
		Expect(u.IsActive).To(BeFalse())

		_, err = repo.GetByID(context.Background(), "8b0f1a36-4a38-4c3c-9a7e-1d2f3a4b5c6d")
		Expect(err).To(MatchError(coreUser.ErrNotFound))
	})
})
