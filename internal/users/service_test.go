package users_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/coe/internal/users"
)

type failingStore struct {
	users.Store
	err error
}

func (f failingStore) GetByEmail(context.Context, string) (users.User, error) {
	return users.User{}, f.err
}

var _ = Describe("Service", func() {
	var (
		ctx   context.Context
		store *users.MemoryStore
		svc   *users.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = users.NewMemoryStore()
		svc = users.NewService(store)
	})

	Describe("Create", func() {
		It("assigns an id and creation time", func() {
			u, err := svc.Create(ctx, users.CreateInput{Name: "John Doe", Email: "john@example.com"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).NotTo(BeEmpty())
			Expect(u.CreatedAt.IsZero()).To(BeFalse())
			Expect(u.Name).To(Equal("John Doe"))
		})

		It("trims input", func() {
			u, err := svc.Create(ctx, users.CreateInput{Name: "  John  ", Email: " john@example.com "})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Name).To(Equal("John"))
			Expect(u.Email).To(Equal("john@example.com"))
		})

		DescribeTable("rejects invalid payloads without creating a record",
			func(in users.CreateInput, field, message string) {
				_, err := svc.Create(ctx, in)

				var verr *users.ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue())
				Expect(verr.Fields).To(HaveKeyWithValue(field, message))

				all, _ := store.List(ctx)
				Expect(all).To(BeEmpty())
			},
			Entry("empty name", users.CreateInput{Name: "", Email: "test@example.com"}, "name", "Name is required"),
			Entry("blank name", users.CreateInput{Name: "   ", Email: "test@example.com"}, "name", "Name is required"),
			Entry("long name", users.CreateInput{Name: strings.Repeat("a", 101), Email: "test@example.com"}, "name", "Name too long"),
			Entry("bad email", users.CreateInput{Name: "Test", Email: "not-an-email"}, "email", "Invalid email format"),
			Entry("missing email", users.CreateInput{Name: "Test"}, "email", "Email is required"),
		)

		It("rejects a duplicate email with a conflict and leaves the store unchanged", func() {
			first, err := svc.Create(ctx, users.CreateInput{Name: "John Doe", Email: "john@example.com"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Create(ctx, users.CreateInput{Name: "Jane Doe", Email: "john@example.com"})
			Expect(err).To(MatchError(users.ErrConflict))

			all, _ := svc.List(ctx)
			Expect(all).To(Equal([]users.User{first}))
		})

		It("surfaces store failures", func() {
			boom := errors.New("boom")
			svc = users.NewService(failingStore{Store: store, err: boom})

			_, err := svc.Create(ctx, users.CreateInput{Name: "John", Email: "john@example.com"})
			Expect(err).To(MatchError(boom))
		})
	})

	Describe("Update", func() {
		var john users.User

		BeforeEach(func() {
			var err error
			john, err = svc.Create(ctx, users.CreateInput{Name: "John Doe", Email: "john@example.com"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("updates the provided fields", func() {
			u, err := svc.Update(ctx, john.ID, users.UpdateInput{Email: strPtr(" johnny@example.com ")})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("johnny@example.com"))
			Expect(u.Name).To(Equal("John Doe"))
		})

		It("rejects an empty name", func() {
			_, err := svc.Update(ctx, john.ID, users.UpdateInput{Name: strPtr(" ")})
			var verr *users.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Fields).To(HaveKey("name"))
		})

		It("reports a missing user", func() {
			_, err := svc.Update(ctx, "missing", users.UpdateInput{Name: strPtr("x")})
			Expect(err).To(MatchError(users.ErrNotFound))
		})
	})

	It("resets the store", func() {
		svc.Create(ctx, users.CreateInput{Name: "John Doe", Email: "john@example.com"})
		Expect(svc.Reset(ctx)).To(Succeed())

		all, err := svc.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(BeEmpty())
	})

	It("describes validation errors", func() {
		err := &users.ValidationError{Fields: map[string]string{"name": "Name is required", "email": "Invalid email format"}}
		Expect(err.Error()).To(Equal("validation failed: email: Invalid email format; name: Name is required"))
	})
})
