package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/bitfantasy/campus/internal/campus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testDepartment = "Kitchen"

func setupInventoryTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	logger := zap.NewNop()

	inventorySvc := service.NewInventoryService(repos.Inventory, repos.Record, db, logger)
	ingestionSvc := service.NewIngestionService(repos.Procurement, repos.Record, db, testDepartment, logger)
	h := NewInventoryHandler(inventorySvc, ingestionSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/inventory", h.List)
	api.POST("/inventory/add", h.Add)
	api.POST("/inventory/consume/:itemId", h.Consume)
	api.GET("/inventory/records", h.ListRecords)
	api.DELETE("/inventory/records", h.PurgeRecords)
	api.GET("/inventory/export", h.Export)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedBudget(t *testing.T, db *gorm.DB, allocated, spent int64) *entity.Budget {
	t.Helper()
	budget := &entity.Budget{
		ID:              "budget-kitchen-001",
		Department:      testDepartment,
		AllocatedAmount: decimal.NewFromInt(allocated),
		SpentAmount:     decimal.NewFromInt(spent),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("Failed to seed budget: %v", err)
	}
	return budget
}

func seedProcurement(t *testing.T, db *gorm.DB, id, uploaderID, status string, itemsAdded bool) *entity.Procurement {
	t.Helper()
	p := &entity.Procurement{
		ID:           id,
		UploaderID:   uploaderID,
		FileName:     id + ".pdf",
		OriginalName: "receipt.pdf",
		MimeType:     "application/pdf",
		Status:       status,
		ItemsAdded:   itemsAdded,
		UploadedAt:   time.Now(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed procurement: %v", err)
	}
	return p
}

func seedInventoryItem(t *testing.T, db *gorm.DB, name string, quantity float64, price int64, lastUpdatedBy string) *entity.InventoryItem {
	t.Helper()
	item := &entity.InventoryItem{
		ID:            "item-" + entity.NormalizeItemName(name),
		ItemName:      name,
		NameKey:       entity.NormalizeItemName(name),
		Quantity:      quantity,
		Unit:          "kg",
		PricePerUnit:  decimal.NewFromInt(price),
		LastUpdatedBy: lastUpdatedBy,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to seed inventory item: %v", err)
	}
	return item
}

func addBody(procurementID string, items []map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"procurement_id": procurementID,
		"items":          items,
	}
}

// TestIngestSuccess covers the happy path: accepted procurement, budget gets
// charged, inventory row created, procurement consumed, audit record written.
func TestIngestSuccess(t *testing.T) {
	env := setupInventoryTest(t)
	seedBudget(t, env.DB, 1000, 200)
	seedProcurement(t, env.DB, "proc-001", "staff-001", entity.ProcurementStatusAccepted, false)
	token := testutil.StaffToken("staff-001")

	body := addBody("proc-001", []map[string]interface{}{
		{"item_name": "Sugar", "quantity": 10, "price_per_unit": 5, "unit": "kg"},
	})
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Inventory row created with quantity 10
	var item entity.InventoryItem
	if err := env.DB.Where("name_key = ?", "sugar").First(&item).Error; err != nil {
		t.Fatalf("Expected Sugar inventory row: %v", err)
	}
	if item.Quantity != 10 {
		t.Errorf("Expected quantity 10, got %v", item.Quantity)
	}
	if item.LastUpdatedBy != "staff-001" {
		t.Errorf("Expected last_updated_by staff-001, got %s", item.LastUpdatedBy)
	}

	// Budget charged 50
	var budget entity.Budget
	if err := env.DB.Where("department = ?", testDepartment).First(&budget).Error; err != nil {
		t.Fatalf("Failed to reload budget: %v", err)
	}
	if !budget.SpentAmount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected spent 250, got %s", budget.SpentAmount)
	}

	// Procurement consumed
	var proc entity.Procurement
	if err := env.DB.Where("id = ?", "proc-001").First(&proc).Error; err != nil {
		t.Fatalf("Failed to reload procurement: %v", err)
	}
	if !proc.ItemsAdded {
		t.Error("Expected items_added = true")
	}

	// One budget transaction appended
	var txCount int64
	env.DB.Model(&entity.BudgetTransaction{}).Where("procurement_id = ?", "proc-001").Count(&txCount)
	if txCount != 1 {
		t.Errorf("Expected 1 budget transaction, got %d", txCount)
	}

	// One "added" audit record
	var record entity.InventoryRecord
	if err := env.DB.Where("action = ?", entity.RecordActionAdded).First(&record).Error; err != nil {
		t.Fatalf("Expected added inventory record: %v", err)
	}
	if !record.TotalCost.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected record total 50, got %s", record.TotalCost)
	}
	if len(record.Items) != 1 || record.Items[0].PrevQuantity != 0 || record.Items[0].NewQuantity != 10 {
		t.Errorf("Unexpected record lines: %+v", record.Items)
	}
}

// TestIngestSecondCallRejected verifies the one-shot guarantee: a second
// ingestion of the same procurement fails and changes nothing.
func TestIngestSecondCallRejected(t *testing.T) {
	env := setupInventoryTest(t)
	seedBudget(t, env.DB, 1000, 200)
	seedProcurement(t, env.DB, "proc-001", "staff-001", entity.ProcurementStatusAccepted, false)
	token := testutil.StaffToken("staff-001")

	body := addBody("proc-001", []map[string]interface{}{
		{"item_name": "Sugar", "quantity": 10, "price_per_unit": 5, "unit": "kg"},
	})
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("First ingest failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", body, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on second ingest, got %d: %s", w.Code, w.Body.String())
	}

	// No double counting
	var budget entity.Budget
	env.DB.Where("department = ?", testDepartment).First(&budget)
	if !budget.SpentAmount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected spent still 250, got %s", budget.SpentAmount)
	}
	var item entity.InventoryItem
	env.DB.Where("name_key = ?", "sugar").First(&item)
	if item.Quantity != 10 {
		t.Errorf("Expected quantity still 10, got %v", item.Quantity)
	}
}

// TestIngestBudgetExceeded verifies the budget gate runs before any inventory
// mutation: an over-budget batch leaves everything untouched.
func TestIngestBudgetExceeded(t *testing.T) {
	env := setupInventoryTest(t)
	seedBudget(t, env.DB, 300, 200) // remaining 100
	seedProcurement(t, env.DB, "proc-001", "staff-001", entity.ProcurementStatusAccepted, false)
	token := testutil.StaffToken("staff-001")

	body := addBody("proc-001", []map[string]interface{}{
		{"item_name": "Rice", "quantity": 10, "price_per_unit": 10, "unit": "kg"}, // 100
		{"item_name": "Oil", "quantity": 5, "price_per_unit": 10, "unit": "l"},    // 50
	})
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var itemCount int64
	env.DB.Model(&entity.InventoryItem{}).Count(&itemCount)
	if itemCount != 0 {
		t.Errorf("Expected no inventory rows, got %d", itemCount)
	}

	var budget entity.Budget
	env.DB.Where("department = ?", testDepartment).First(&budget)
	if !budget.SpentAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected spent unchanged at 200, got %s", budget.SpentAmount)
	}

	var proc entity.Procurement
	env.DB.Where("id = ?", "proc-001").First(&proc)
	if proc.ItemsAdded {
		t.Error("Expected items_added to stay false")
	}
}

// TestIngestCaseInsensitiveMerge verifies "Rice" and "rice" land on the same
// inventory row with quantities summed and price replaced.
func TestIngestCaseInsensitiveMerge(t *testing.T) {
	env := setupInventoryTest(t)
	seedBudget(t, env.DB, 1000, 0)
	seedProcurement(t, env.DB, "proc-001", "staff-001", entity.ProcurementStatusAccepted, false)
	seedProcurement(t, env.DB, "proc-002", "staff-001", entity.ProcurementStatusAccepted, false)
	token := testutil.StaffToken("staff-001")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", addBody("proc-001", []map[string]interface{}{
		{"item_name": "Rice", "quantity": 10, "price_per_unit": 5, "unit": "kg"},
	}), token)
	if w.Code != http.StatusOK {
		t.Fatalf("First ingest failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", addBody("proc-002", []map[string]interface{}{
		{"item_name": "rice", "quantity": 7, "price_per_unit": 6, "unit": "kg"},
	}), token)
	if w.Code != http.StatusOK {
		t.Fatalf("Second ingest failed: %d %s", w.Code, w.Body.String())
	}

	var count int64
	env.DB.Model(&entity.InventoryItem{}).Count(&count)
	if count != 1 {
		t.Fatalf("Expected a single merged row, got %d", count)
	}

	var item entity.InventoryItem
	env.DB.Where("name_key = ?", "rice").First(&item)
	if item.Quantity != 17 {
		t.Errorf("Expected merged quantity 17, got %v", item.Quantity)
	}
	if !item.PricePerUnit.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected price replaced with 6, got %s", item.PricePerUnit)
	}
}

// TestIngestSkipsMalformedLines verifies partial tolerance: invalid lines are
// skipped and reported, valid ones applied.
func TestIngestSkipsMalformedLines(t *testing.T) {
	env := setupInventoryTest(t)
	seedBudget(t, env.DB, 1000, 0)
	seedProcurement(t, env.DB, "proc-001", "staff-001", entity.ProcurementStatusAccepted, false)
	token := testutil.StaffToken("staff-001")

	body := addBody("proc-001", []map[string]interface{}{
		{"item_name": "Sugar", "quantity": 10, "price_per_unit": 5, "unit": "kg"},
		{"item_name": "", "quantity": 3, "price_per_unit": 2},  // no name
		{"item_name": "Salt", "quantity": 0, "price_per_unit": 2}, // bad quantity
		{"item_name": "Flour", "quantity": 4},                  // no price
	})
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if applied := data["applied"].(float64); applied != 1 {
		t.Errorf("Expected 1 applied, got %v", applied)
	}
	if skipped := data["skipped"].(float64); skipped != 3 {
		t.Errorf("Expected 3 skipped, got %v", skipped)
	}

	var count int64
	env.DB.Model(&entity.InventoryItem{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected only the valid line applied, got %d rows", count)
	}
}

// TestIngestAllLinesMalformed verifies an all-invalid batch is rejected before
// any state change so the procurement keeps its single ingestion chance.
func TestIngestAllLinesMalformed(t *testing.T) {
	env := setupInventoryTest(t)
	seedBudget(t, env.DB, 1000, 0)
	seedProcurement(t, env.DB, "proc-001", "staff-001", entity.ProcurementStatusAccepted, false)
	token := testutil.StaffToken("staff-001")

	body := addBody("proc-001", []map[string]interface{}{
		{"item_name": "", "quantity": 3, "price_per_unit": 2},
		{"item_name": "Salt", "quantity": -1, "price_per_unit": 2},
	})
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var proc entity.Procurement
	env.DB.Where("id = ?", "proc-001").First(&proc)
	if proc.ItemsAdded {
		t.Error("Expected items_added to stay false")
	}
}

// TestIngestPreconditions walks the pre-mutation failure ladder.
func TestIngestPreconditions(t *testing.T) {
	env := setupInventoryTest(t)
	seedBudget(t, env.DB, 1000, 0)
	seedProcurement(t, env.DB, "proc-pending", "staff-001", entity.ProcurementStatusPending, false)
	seedProcurement(t, env.DB, "proc-accepted", "staff-001", entity.ProcurementStatusAccepted, false)

	lines := []map[string]interface{}{
		{"item_name": "Sugar", "quantity": 1, "price_per_unit": 1, "unit": "kg"},
	}

	cases := []struct {
		name       string
		procID     string
		token      string
		wantStatus int
	}{
		{"unknown procurement", "proc-missing", testutil.StaffToken("staff-001"), http.StatusNotFound},
		{"not accepted yet", "proc-pending", testutil.StaffToken("staff-001"), http.StatusConflict},
		{"wrong actor", "proc-accepted", testutil.StaffToken("staff-002"), http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", addBody(tc.procID, lines), tc.token)
			if w.Code != tc.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	// Nothing mutated along the way
	var count int64
	env.DB.Model(&entity.InventoryItem{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no inventory rows, got %d", count)
	}
}

// TestIngestNoBudget verifies a missing department budget blocks ingestion.
func TestIngestNoBudget(t *testing.T) {
	env := setupInventoryTest(t)
	seedProcurement(t, env.DB, "proc-001", "staff-001", entity.ProcurementStatusAccepted, false)
	token := testutil.StaffToken("staff-001")

	body := addBody("proc-001", []map[string]interface{}{
		{"item_name": "Sugar", "quantity": 1, "price_per_unit": 1, "unit": "kg"},
	})
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/add", body, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

// TestConsumeInsufficientStock verifies consuming more than available fails
// and leaves the quantity unchanged.
func TestConsumeInsufficientStock(t *testing.T) {
	env := setupInventoryTest(t)
	item := seedInventoryItem(t, env.DB, "Sugar", 10, 5, "staff-001")
	token := testutil.StaffToken("staff-001")

	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/inventory/consume/%s", item.ID),
		map[string]interface{}{"quantity": 15}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded entity.InventoryItem
	env.DB.Where("id = ?", item.ID).First(&reloaded)
	if reloaded.Quantity != 10 {
		t.Errorf("Expected quantity unchanged at 10, got %v", reloaded.Quantity)
	}
}

// TestConsumeToZeroDeletesRow verifies consuming the exact quantity removes
// the row entirely and writes a consumed audit record.
func TestConsumeToZeroDeletesRow(t *testing.T) {
	env := setupInventoryTest(t)
	item := seedInventoryItem(t, env.DB, "Sugar", 10, 5, "staff-001")
	token := testutil.StaffToken("staff-001")

	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/inventory/consume/%s", item.ID),
		map[string]interface{}{"quantity": 10, "note": "weekly usage"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	env.DB.Model(&entity.InventoryItem{}).Where("id = ?", item.ID).Count(&count)
	if count != 0 {
		t.Error("Expected row deleted at zero stock")
	}

	var record entity.InventoryRecord
	if err := env.DB.Where("action = ?", entity.RecordActionConsumed).First(&record).Error; err != nil {
		t.Fatalf("Expected consumed inventory record: %v", err)
	}
	if len(record.Items) != 1 || record.Items[0].PrevQuantity != 10 || record.Items[0].NewQuantity != 0 {
		t.Errorf("Unexpected record lines: %+v", record.Items)
	}
}

// TestConsumeAuthorization verifies only the last modifier or an admin may
// consume an item.
func TestConsumeAuthorization(t *testing.T) {
	env := setupInventoryTest(t)
	item := seedInventoryItem(t, env.DB, "Sugar", 10, 5, "staff-001")

	// Different staff: rejected
	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/inventory/consume/%s", item.ID),
		map[string]interface{}{"quantity": 2}, testutil.StaffToken("staff-002"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-modifier, got %d", w.Code)
	}

	// Admin: allowed
	w = testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/inventory/consume/%s", item.ID),
		map[string]interface{}{"quantity": 2}, testutil.AdminToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded entity.InventoryItem
	env.DB.Where("id = ?", item.ID).First(&reloaded)
	if reloaded.Quantity != 8 {
		t.Errorf("Expected quantity 8, got %v", reloaded.Quantity)
	}
}

// TestConsumeInvalidQuantity verifies non-positive quantities are rejected.
func TestConsumeInvalidQuantity(t *testing.T) {
	env := setupInventoryTest(t)
	item := seedInventoryItem(t, env.DB, "Sugar", 10, 5, "staff-001")
	token := testutil.StaffToken("staff-001")

	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/inventory/consume/%s", item.ID),
		map[string]interface{}{"quantity": -5}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

// TestInventoryExport verifies the xlsx report download.
func TestInventoryExport(t *testing.T) {
	env := setupInventoryTest(t)
	seedInventoryItem(t, env.DB, "Sugar", 10, 5, "staff-001")

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/inventory/export", nil, testutil.StaffToken("staff-001"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Unexpected Content-Type: %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("Expected non-empty xlsx body")
	}
}

// TestPurgeRecords verifies the admin bulk purge empties the audit trail.
func TestPurgeRecords(t *testing.T) {
	env := setupInventoryTest(t)
	item := seedInventoryItem(t, env.DB, "Sugar", 10, 5, "staff-001")
	token := testutil.StaffToken("staff-001")

	w := testutil.DoRequest(env.Router, http.MethodPost,
		fmt.Sprintf("/api/v1/inventory/consume/%s", item.ID),
		map[string]interface{}{"quantity": 3}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Consume failed: %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/inventory/records", nil, testutil.AdminToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	env.DB.Model(&entity.InventoryRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected records purged, got %d", count)
	}
}
