package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/repository"
)

type fakeCustomers struct {
	byID     map[string]*model.Customer
	byEmail  map[string]bool
	created  []*model.Customer
	feedback map[string]string
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{
		byID:     make(map[string]*model.Customer),
		byEmail:  make(map[string]bool),
		feedback: make(map[string]string),
	}
}

func (f *fakeCustomers) Create(ctx context.Context, c *model.Customer) error {
	if f.byEmail[c.Email] {
		return repository.ErrDuplicate
	}
	f.byID[c.ID] = c
	f.byEmail[c.Email] = true
	f.created = append(f.created, c)
	return nil
}

func (f *fakeCustomers) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCustomers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return f.byEmail[email], nil
}

func (f *fakeCustomers) List(ctx context.Context) ([]*model.Customer, error) {
	var all []*model.Customer
	for _, c := range f.byID {
		all = append(all, c)
	}
	return all, nil
}

func (f *fakeCustomers) Update(ctx context.Context, c *model.Customer) error {
	if _, ok := f.byID[c.ID]; !ok {
		return repository.ErrNotFound
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCustomers) SaveFeedback(ctx context.Context, id string, feedback string, ts time.Time) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	f.feedback[id] = feedback
	return nil
}

func (f *fakeCustomers) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func newCustomerHandler(customers CustomerStore) *Handler {
	return &Handler{
		log:       logger.New("error", "json"),
		customers: customers,
	}
}

func TestCreateCustomer(t *testing.T) {
	customers := newFakeCustomers()
	h := newCustomerHandler(customers)

	body := `{"name":"Maria Silva","email":"maria@example.com","diveCount":2,"visitDate":"2026-08-20","language":"pt","invoiceAmount":120,"vatRate":0.22}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateCustomer(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, customers.created, 1)

	c := customers.created[0]
	assert.Equal(t, "Maria Silva", c.Name)
	assert.Equal(t, model.LanguagePT, c.Language)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), c.VisitDate)
	assert.NotEmpty(t, c.ID)
	assert.Nil(t, c.FirstSentAt)
}

func TestCreateCustomerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@example.com","visitDate":"2026-08-20"}`},
		{"bad email", `{"name":"A","email":"not-an-email","visitDate":"2026-08-20"}`},
		{"bad date", `{"name":"A","email":"a@example.com","visitDate":"20/08/2026"}`},
		{"bad language", `{"name":"A","email":"a@example.com","visitDate":"2026-08-20","language":"xx"}`},
		{"negative amount", `{"name":"A","email":"a@example.com","visitDate":"2026-08-20","invoiceAmount":-5}`},
		{"unknown field", `{"name":"A","email":"a@example.com","visitDate":"2026-08-20","surprise":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCustomerHandler(newFakeCustomers())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.CreateCustomer(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	customers := newFakeCustomers()
	customers.byEmail["maria@example.com"] = true
	h := newCustomerHandler(customers)

	body := `{"name":"Maria","email":"maria@example.com","visitDate":"2026-08-20"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateCustomer(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, customers.created)
}

func TestGetCustomerNotFound(t *testing.T) {
	h := newCustomerHandler(newFakeCustomers())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	h.GetCustomer(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveFeedback(t *testing.T) {
	customers := newFakeCustomers()
	customers.byID["c1"] = &model.Customer{ID: "c1", Email: "maria@example.com"}
	h := newCustomerHandler(customers)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/c1/feedback",
		strings.NewReader(`{"feedback":"Amazing dive, thank you!"}`))
	req.SetPathValue("id", "c1")
	rec := httptest.NewRecorder()

	h.SaveFeedback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Amazing dive, thank you!", customers.feedback["c1"])
}

func TestSaveFeedbackRequiresText(t *testing.T) {
	h := newCustomerHandler(newFakeCustomers())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/c1/feedback",
		strings.NewReader(`{"feedback":""}`))
	req.SetPathValue("id", "c1")
	rec := httptest.NewRecorder()

	h.SaveFeedback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCustomersCSV(t *testing.T) {
	customers := newFakeCustomers()
	sent := time.Now()
	customers.byID["c1"] = &model.Customer{
		ID: "c1", Name: "Maria", Email: "maria@example.com", DiveCount: 2,
		VisitDate:     time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Language:      model.LanguagePT,
		InvoiceAmount: 100, VATRate: 0.22,
		AddedBy:     "ana",
		FirstSentAt: &sent,
	}
	h := newCustomerHandler(customers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/export", nil)
	rec := httptest.NewRecorder()

	h.ExportCustomers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "customers.csv")

	body := rec.Body.String()
	assert.Contains(t, body, "Added By,Name,Email")
	assert.Contains(t, body, "maria@example.com")
	assert.Contains(t, body, "122.00")
	assert.Contains(t, body, "yes,no,no")
}

func TestListCustomersShape(t *testing.T) {
	customers := newFakeCustomers()
	customers.byID["c1"] = &model.Customer{ID: "c1", Name: "Maria", Email: "maria@example.com"}
	h := newCustomerHandler(customers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	rec := httptest.NewRecorder()

	h.ListCustomers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Customers []*model.Customer `json:"customers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "Maria", resp.Customers[0].Name)
}
