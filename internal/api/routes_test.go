package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-medo/swu-collection/backend/internal/database"
	"github.com/the-medo/swu-collection/backend/internal/models"
	"github.com/the-medo/swu-collection/backend/internal/services"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "api.db"), logger.Silent)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	valuation := services.NewValuationService(services.NewStalenessSelector(db), services.NewAggregateStore(db), services.ValuationOptions{})
	worker := services.NewAggregateWorker(valuation, time.Minute)
	router := SetupRouter([]string{"http://localhost:5173"}, valuation, services.NewOwnershipStore(db), worker)
	return router, db
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := setupTestRouter(t)

	if w := doRequest(router, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/metrics", nil); w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", w.Code)
	}
}

func TestAddCardThenReadPrices(t *testing.T) {
	router, db := setupTestRouter(t)

	col := models.Collection{UserID: "user-1", Title: "main"}
	if err := db.Create(&col).Error; err != nil {
		t.Fatal(err)
	}
	snapshot := models.PriceSnapshot{
		CardID:     "sor-005",
		VariantID:  "standard",
		SourceType: models.SourceCardmarket,
		Price:      decimal.NewNullDecimal(decimal.RequireFromString("0.80")),
		Data:       `{"trend": 0.75}`,
	}
	if err := db.Create(&snapshot).Error; err != nil {
		t.Fatal(err)
	}

	w := doRequest(router, http.MethodPost, "/api/collections/"+col.ID+"/cards", models.AddCardRequest{
		CardID:    "sor-005",
		VariantID: "standard",
		Condition: models.ConditionNearMint,
		Quantity:  3,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add card status = %d body %s", w.Code, w.Body.String())
	}
	var added models.AddCardResponse
	json.Unmarshal(w.Body.Bytes(), &added)
	if added.Quantity != 3 || added.EntityID != col.ID {
		t.Errorf("unexpected add response %+v", added)
	}

	w = doRequest(router, http.MethodGet, "/api/collections/"+col.ID+"/prices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("prices status = %d body %s", w.Code, w.Body.String())
	}
	var resp models.EntityPricesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Recomputed || resp.EntityKind != models.EntityCollection {
		t.Errorf("unexpected response header %+v", resp)
	}
	if len(resp.Prices) != 1 || resp.Prices[0].Price != "2.40" || resp.Prices[0].Data["trend"] != "2.25" {
		t.Errorf("unexpected prices %+v", resp.Prices)
	}

	w = doRequest(router, http.MethodGet, "/api/collections/"+col.ID+"/prices", nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Outcome != string(services.OnDemandDebounced) {
		t.Errorf("second read outcome = %s, want debounced", resp.Outcome)
	}

	w = doRequest(router, http.MethodPost, "/api/collections/"+col.ID+"/prices/refresh", nil)
	if w.Code != http.StatusOK {
		t.Errorf("refresh status = %d", w.Code)
	}
}

func TestEntityErrors(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"prices of missing deck", http.MethodGet, "/api/decks/nope/prices", nil, http.StatusNotFound},
		{"refresh of missing collection", http.MethodPost, "/api/collections/nope/prices/refresh", nil, http.StatusNotFound},
		{"add to missing deck", http.MethodPost, "/api/decks/nope/cards", models.AddCardRequest{CardID: "a", VariantID: "b"}, http.StatusNotFound},
		{"add without card id", http.MethodPost, "/api/decks/nope/cards", map[string]any{"variant_id": "b"}, http.StatusBadRequest},
		{"add with unknown condition", http.MethodPost, "/api/decks/nope/cards", map[string]any{"card_id": "a", "variant_id": "b", "condition": 9}, http.StatusBadRequest},
		{"add with negative condition", http.MethodPost, "/api/decks/nope/cards", map[string]any{"card_id": "a", "variant_id": "b", "condition": -1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAggregateStatus(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/aggregates/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status services.AggregateStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Interval != "1m0s" || len(status.Kinds) != 2 {
		t.Errorf("unexpected status %+v", status)
	}
}
