package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/bitfantasy/campus/internal/campus/testutil"
	"github.com/shopspring/decimal"
)

func setupBudgetTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	h := NewBudgetHandler(service.NewBudgetService(repos.Budget))

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/budgets", h.List)
	api.POST("/budgets", h.Create)
	api.GET("/budgets/:department", h.Get)
	api.GET("/budgets/:department/remaining", h.GetRemaining)
	api.PUT("/budgets/:department", h.Update)
	api.DELETE("/budgets/:department", h.Delete)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestBudgetCreate(t *testing.T) {
	env := setupBudgetTest(t)
	token := testutil.AdminToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/budgets",
		map[string]interface{}{"department": "Kitchen", "allocated_amount": 1000}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var budget entity.Budget
	if err := env.DB.Where("department = ?", "Kitchen").First(&budget).Error; err != nil {
		t.Fatalf("Expected budget row: %v", err)
	}
	if !budget.AllocatedAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected allocated 1000, got %s", budget.AllocatedAmount)
	}
	if !budget.SpentAmount.IsZero() {
		t.Errorf("Expected spent 0, got %s", budget.SpentAmount)
	}

	// Same department again: conflict
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/budgets",
		map[string]interface{}{"department": "Kitchen", "allocated_amount": 500}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on duplicate department, got %d", w.Code)
	}
}

func TestBudgetCreateNegativeAmount(t *testing.T) {
	env := setupBudgetTest(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/budgets",
		map[string]interface{}{"department": "Kitchen", "allocated_amount": -100}, testutil.AdminToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for negative allocation, got %d", w.Code)
	}
}

func TestBudgetRemaining(t *testing.T) {
	env := setupBudgetTest(t)
	budget := &entity.Budget{
		ID:              "budget-001",
		Department:      "Kitchen",
		AllocatedAmount: decimal.NewFromInt(1000),
		SpentAmount:     decimal.NewFromInt(250),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := env.DB.Create(budget).Error; err != nil {
		t.Fatalf("Failed to seed budget: %v", err)
	}

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/budgets/Kitchen/remaining", nil, testutil.StaffToken("staff-001"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["remaining"].(string) != "750" {
		t.Errorf("Expected remaining 750, got %v", data["remaining"])
	}

	// Unknown department
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/budgets/Library/remaining", nil, testutil.StaffToken("staff-001"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}

func TestBudgetUpdateRenameCollision(t *testing.T) {
	env := setupBudgetTest(t)
	token := testutil.AdminToken()

	for _, dept := range []string{"Kitchen", "Library"} {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/budgets",
			map[string]interface{}{"department": dept, "allocated_amount": 100}, token)
		if w.Code != http.StatusCreated {
			t.Fatalf("Seed create failed: %d", w.Code)
		}
	}

	// Rename Library onto Kitchen: conflict
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/budgets/Library",
		map[string]interface{}{"department": "Kitchen", "allocated_amount": 100}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on rename collision, got %d: %s", w.Code, w.Body.String())
	}

	// Plain allocation bump works
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/budgets/Library",
		map[string]interface{}{"allocated_amount": 300}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var budget entity.Budget
	env.DB.Where("department = ?", "Library").First(&budget)
	if !budget.AllocatedAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected allocated 300, got %s", budget.AllocatedAmount)
	}
}

// TestBudgetUpdateKeepsSpentAmount verifies an allocation update only writes
// the admin-editable columns: a spend committed by an ingestion between the
// update's read and its write must survive.
func TestBudgetUpdateKeepsSpentAmount(t *testing.T) {
	env := setupBudgetTest(t)
	budget := &entity.Budget{
		ID:              "budget-001",
		Department:      "Kitchen",
		AllocatedAmount: decimal.NewFromInt(1000),
		SpentAmount:     decimal.NewFromInt(200),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := env.DB.Create(budget).Error; err != nil {
		t.Fatalf("Failed to seed budget: %v", err)
	}

	repos := repository.NewRepositories(env.DB)

	// Read the row, then let a concurrent ingestion commit a spend bump
	stale, err := repos.Budget.FindByDepartment(context.Background(), "Kitchen")
	if err != nil {
		t.Fatalf("Failed to load budget: %v", err)
	}
	if err := env.DB.Model(&entity.Budget{}).Where("id = ?", budget.ID).
		Update("spent_amount", decimal.NewFromInt(250)).Error; err != nil {
		t.Fatalf("Failed to bump spend: %v", err)
	}

	// Persist the allocation change from the stale copy
	stale.AllocatedAmount = decimal.NewFromInt(2000)
	if err := repos.Budget.Update(context.Background(), stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	var reloaded entity.Budget
	env.DB.Where("id = ?", budget.ID).First(&reloaded)
	if !reloaded.AllocatedAmount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Expected allocated 2000, got %s", reloaded.AllocatedAmount)
	}
	if !reloaded.SpentAmount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected concurrent spend 250 kept, got %s", reloaded.SpentAmount)
	}
}

func TestBudgetDeleteCascadesTransactions(t *testing.T) {
	env := setupBudgetTest(t)
	budget := &entity.Budget{
		ID:              "budget-001",
		Department:      "Kitchen",
		AllocatedAmount: decimal.NewFromInt(1000),
		SpentAmount:     decimal.NewFromInt(50),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := env.DB.Create(budget).Error; err != nil {
		t.Fatalf("Failed to seed budget: %v", err)
	}
	tx := &entity.BudgetTransaction{
		ID:            "btx-001",
		BudgetID:      budget.ID,
		ProcurementID: "proc-001",
		TotalCost:     decimal.NewFromInt(50),
		AddedBy:       "staff-001",
		CreatedAt:     time.Now(),
	}
	if err := env.DB.Create(tx).Error; err != nil {
		t.Fatalf("Failed to seed transaction: %v", err)
	}

	w := testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/budgets/Kitchen", nil, testutil.AdminToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var budgetCount, txCount int64
	env.DB.Model(&entity.Budget{}).Count(&budgetCount)
	env.DB.Model(&entity.BudgetTransaction{}).Count(&txCount)
	if budgetCount != 0 || txCount != 0 {
		t.Errorf("Expected budget and transactions deleted, got %d/%d", budgetCount, txCount)
	}

	// Get after delete: not found
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/budgets/Kitchen", nil, testutil.AdminToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestBudgetGetWithTransactions(t *testing.T) {
	env := setupBudgetTest(t)
	budget := &entity.Budget{
		ID:              "budget-001",
		Department:      "Kitchen",
		AllocatedAmount: decimal.NewFromInt(1000),
		SpentAmount:     decimal.NewFromInt(80),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := env.DB.Create(budget).Error; err != nil {
		t.Fatalf("Failed to seed budget: %v", err)
	}
	for i, id := range []string{"btx-001", "btx-002"} {
		tx := &entity.BudgetTransaction{
			ID:            id,
			BudgetID:      budget.ID,
			ProcurementID: fmt.Sprintf("proc-%03d", i+1),
			TotalCost:     decimal.NewFromInt(40),
			AddedBy:       "staff-001",
			CreatedAt:     time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := env.DB.Create(tx).Error; err != nil {
			t.Fatalf("Failed to seed transaction: %v", err)
		}
	}

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/budgets/Kitchen", nil, testutil.StaffToken("staff-001"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	txs := data["transactions"].([]interface{})
	if len(txs) != 2 {
		t.Errorf("Expected 2 transactions in detail, got %d", len(txs))
	}
}
