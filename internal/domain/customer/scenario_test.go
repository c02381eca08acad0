package customer_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"customer-registry/internal/domain/customer"
	"customer-registry/internal/event"
	"customer-registry/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository keeps the same rules as the SQL repository in memory so
// whole operation sequences can be checked without a database.
type memoryRepository struct {
	mu        sync.Mutex
	seq       int
	customers map[string]*customer.Customer
	addresses map[string]*customer.Address
}

var _ customer.Repository = (*memoryRepository)(nil)

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		customers: make(map[string]*customer.Customer),
		addresses: make(map[string]*customer.Address),
	}
}

func (r *memoryRepository) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s%d", prefix, r.seq)
}

func (r *memoryRepository) Create(_ context.Context, c *customer.Customer, text string) (*customer.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID("c")
	stored := *c
	r.customers[c.ID] = &stored
	addr := &customer.Address{AddressID: r.nextID("a"), CustomerID: c.ID, Text: text, IsPrimary: true}
	r.addresses[addr.AddressID] = addr
	copied := *addr
	return &copied, nil
}

func (r *memoryRepository) Update(_ context.Context, id string, f customer.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return customer.ErrCustomerNotFound
	}
	c.FirstName, c.LastName, c.PhoneNumber, c.Email = f.FirstName, f.LastName, f.PhoneNumber, f.Email
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; !ok {
		return customer.ErrCustomerNotFound
	}
	delete(r.customers, id)
	for aid, a := range r.addresses {
		if a.CustomerID == id {
			delete(r.addresses, aid)
		}
	}
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, customer.ErrCustomerNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memoryRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	return r.Search(ctx, customer.SearchCriteria{})
}

func (r *memoryRepository) Search(_ context.Context, s customer.SearchCriteria) ([]*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*customer.Customer, 0)
	for _, c := range r.customers {
		name := strings.ToLower(s.Name)
		if s.Name != "" && !strings.Contains(strings.ToLower(c.FirstName), name) && !strings.Contains(strings.ToLower(c.LastName), name) {
			continue
		}
		if s.Email != "" && c.Email != s.Email {
			continue
		}
		if s.PhoneNumber != "" && !strings.Contains(c.PhoneNumber, s.PhoneNumber) {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) AddAddress(_ context.Context, cid, text string) (*customer.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[cid]; !ok {
		return nil, customer.ErrCustomerNotFound
	}
	addr := &customer.Address{AddressID: r.nextID("a"), CustomerID: cid, Text: text}
	r.addresses[addr.AddressID] = addr
	copied := *addr
	return &copied, nil
}

func (r *memoryRepository) address(cid, aid string) (*customer.Address, error) {
	a, ok := r.addresses[aid]
	if !ok || a.CustomerID != cid {
		return nil, customer.ErrAddressNotFound
	}
	return a, nil
}

func (r *memoryRepository) UpdateAddress(_ context.Context, cid, aid, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.address(cid, aid)
	if err != nil {
		return err
	}
	a.Text = text
	return nil
}

func (r *memoryRepository) SetPrimaryAddress(_ context.Context, cid, aid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[cid]; !ok {
		return customer.ErrCustomerNotFound
	}
	target, err := r.address(cid, aid)
	if err != nil {
		return err
	}
	for _, a := range r.addresses {
		if a.CustomerID == cid {
			a.IsPrimary = false
		}
	}
	target.IsPrimary = true
	return nil
}

func (r *memoryRepository) DeleteAddress(_ context.Context, cid, aid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[cid]; !ok {
		return customer.ErrCustomerNotFound
	}
	a, err := r.address(cid, aid)
	if err != nil {
		return err
	}
	if a.IsPrimary {
		return customer.ErrPrimaryAddressDelete
	}
	delete(r.addresses, aid)
	return nil
}

func (r *memoryRepository) FindAddresses(_ context.Context, cid string) ([]*customer.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*customer.Address, 0)
	for _, a := range r.addresses {
		if a.CustomerID == cid {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddressID < out[j].AddressID })
	return out, nil
}

func (r *memoryRepository) FindAddress(_ context.Context, cid, aid string) (*customer.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.address(cid, aid)
	if err != nil {
		return nil, err
	}
	copied := *a
	return &copied, nil
}

func (r *memoryRepository) FindPrimaryAddressViolations(_ context.Context) ([]customer.PrimaryAddressViolation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]customer.PrimaryAddressViolation, 0)
	for id := range r.customers {
		v := customer.PrimaryAddressViolation{CustomerID: id}
		for _, a := range r.addresses {
			if a.CustomerID == id {
				v.AddressCount++
				if a.IsPrimary {
					v.PrimaryCount++
				}
			}
		}
		if v.PrimaryCount != 1 {
			out = append(out, v)
		}
	}
	return out, nil
}

func newScenarioService() (customer.CustomerService, *memoryRepository) {
	repo := newMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return customer.NewCustomerService(repo, event.NewLogPublisher(logger), logger), repo
}

func primaryCount(addresses []*customer.Address) int {
	n := 0
	for _, a := range addresses {
		if a.IsPrimary {
			n++
		}
	}
	return n
}

func findByText(t *testing.T, addresses []*customer.Address, text string) *customer.Address {
	t.Helper()
	for _, a := range addresses {
		if a.Text == text {
			return a
		}
	}
	t.Fatalf("address %q not found", text)
	return nil
}

func TestPrimaryAddressLifecycle(t *testing.T) {
	ctx := context.Background()
	service, repo := newScenarioService()

	created, err := service.CreateCustomer(ctx, validFields, "1 Main St")
	require.NoError(t, err)

	listed, err := service.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, validFields, listed[0].Fields())

	addresses, err := service.ListAddresses(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.True(t, addresses[0].IsPrimary)
	assert.Equal(t, "1 Main St", addresses[0].Text)
	mainID := addresses[0].AddressID

	side, err := service.AddAddress(ctx, created.ID, "2 Side Ave")
	require.NoError(t, err)
	addresses, _ = service.ListAddresses(ctx, created.ID)
	assert.Len(t, addresses, 2)
	assert.True(t, findByText(t, addresses, "1 Main St").IsPrimary)
	assert.Equal(t, 1, primaryCount(addresses))

	require.NoError(t, service.SetPrimaryAddress(ctx, created.ID, side.AddressID))
	addresses, _ = service.ListAddresses(ctx, created.ID)
	assert.False(t, findByText(t, addresses, "1 Main St").IsPrimary)
	assert.True(t, findByText(t, addresses, "2 Side Ave").IsPrimary)
	assert.Equal(t, 1, primaryCount(addresses))

	require.NoError(t, service.DeleteAddress(ctx, created.ID, mainID))

	err = service.DeleteAddress(ctx, created.ID, side.AddressID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	addresses, _ = service.ListAddresses(ctx, created.ID)
	require.Len(t, addresses, 1)
	assert.True(t, addresses[0].IsPrimary)

	violations, err := repo.FindPrimaryAddressViolations(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestDeleteCustomerRemovesAddresses(t *testing.T) {
	ctx := context.Background()
	service, _ := newScenarioService()

	created, err := service.CreateCustomer(ctx, validFields, "1 Main St")
	require.NoError(t, err)
	extra, err := service.AddAddress(ctx, created.ID, "2 Side Ave")
	require.NoError(t, err)

	require.NoError(t, service.DeleteCustomer(ctx, created.ID))

	_, err = service.GetAddress(ctx, created.ID, created.Addresses[0].AddressID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = service.GetAddress(ctx, created.ID, extra.AddressID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = service.GetCustomer(ctx, created.ID)
	assert.ErrorIs(t, err, customer.ErrCustomerNotFound)
}

func TestSetPrimaryOnUnknownPairChangesNothing(t *testing.T) {
	ctx := context.Background()
	service, _ := newScenarioService()

	created, err := service.CreateCustomer(ctx, validFields, "1 Main St")
	require.NoError(t, err)
	other, err := service.CreateCustomer(ctx, customer.Fields{FirstName: "John", LastName: "Roe", PhoneNumber: "5550000000", Email: "john@x.com"}, "9 Far Rd")
	require.NoError(t, err)

	err = service.SetPrimaryAddress(ctx, created.ID, other.Addresses[0].AddressID)
	assert.ErrorIs(t, err, customer.ErrAddressNotFound)

	addresses, _ := service.ListAddresses(ctx, created.ID)
	assert.Equal(t, 1, primaryCount(addresses))
	assert.True(t, findByText(t, addresses, "1 Main St").IsPrimary)
}

func TestSearchCombinesCriteriaWithAnd(t *testing.T) {
	ctx := context.Background()
	service, _ := newScenarioService()

	_, err := service.CreateCustomer(ctx, validFields, "1 Main St")
	require.NoError(t, err)
	_, err = service.CreateCustomer(ctx, customer.Fields{FirstName: "John", LastName: "Doe", PhoneNumber: "5550000000", Email: "john@x.com"}, "9 Far Rd")
	require.NoError(t, err)

	byName, err := service.SearchCustomers(ctx, customer.SearchCriteria{Name: "doe"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	narrowed, err := service.SearchCustomers(ctx, customer.SearchCriteria{Name: "doe", Email: "john@x.com"})
	require.NoError(t, err)
	require.Len(t, narrowed, 1)
	assert.Equal(t, "John", narrowed[0].FirstName)

	none, err := service.SearchCustomers(ctx, customer.SearchCriteria{Name: "john@x.com"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
