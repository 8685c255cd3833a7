package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yamakishi/tehai-ops/internal/entity"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"github.com/yamakishi/tehai-ops/internal/service"
	"github.com/yamakishi/tehai-ops/internal/testutil"
)

func setupOrderTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	svc := service.NewOrderService(repos, db, nil, "", zap.NewNop())
	h := NewOrderHandler(svc)

	api := router.Group("/api/v1")
	api.GET("/orders", h.List)
	api.GET("/orders/:id", h.Get)
	api.PUT("/orders/:id", h.Update)
	api.POST("/orders/:id/archive", h.Archive)
	api.POST("/orders/:id/unarchive", h.Unarchive)
	api.GET("/orders/:id/logs", h.EditLogs)
	api.GET("/seibans/:seiban/orders", h.ListBySeiban)
	api.GET("/seibans/:seiban/family", h.SeibanFamily)
	api.GET("/search/by-order-number/:orderNumber", h.SearchByOrderNumber)
	api.GET("/search/by-spec1/:spec1", h.SearchBySpec1)

	return db, router
}

func TestOrderGetWithDetails(t *testing.T) {
	db, router := setupOrderTest(t)
	order := testutil.SeedOrder(t, db, "MHT0700", "SS400")
	testutil.SeedDetail(t, db, order.ID, "ベース", "87001", 1)
	d2 := testutil.SeedDetail(t, db, order.ID, "カバー", "87002", 2)
	d2.IsReceived = true
	db.Save(d2)

	w := testutil.DoRequest(router, "GET", "/api/v1/orders/"+order.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["detail_count"] != float64(2) {
		t.Errorf("Expected detail_count=2, got %v", data["detail_count"])
	}
	if data["received_count"] != float64(1) {
		t.Errorf("Expected received_count=1, got %v", data["received_count"])
	}
}

func TestOrderUpdateRecordsEditLog(t *testing.T) {
	db, router := setupOrderTest(t)
	order := testutil.SeedOrder(t, db, "MHT0701", "SUS304")

	w := testutil.DoRequest(router, "PUT", "/api/v1/orders/"+order.ID,
		map[string]interface{}{"floor": "2F", "pallet_number": "P-15"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["floor"] != "2F" {
		t.Errorf("Expected floor=2F, got %v", data["floor"])
	}

	// 変更内容が編集ログに残る
	w2 := testutil.DoRequest(router, "GET", "/api/v1/orders/"+order.ID+"/logs", nil)
	logs := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	if len(logs) != 1 {
		t.Fatalf("Expected 1 edit log, got %d", len(logs))
	}
}

func TestOrderArchiveRequiresCompleted(t *testing.T) {
	db, router := setupOrderTest(t)
	order := testutil.SeedOrder(t, db, "MHT0702", "STEEL")
	testutil.SeedDetail(t, db, order.ID, "プレート", "87010", 1)

	// 未完了のアーカイブは409
	w := testutil.DoRequest(router, "POST", "/api/v1/orders/"+order.ID+"/archive", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// 納品完了にすればアーカイブできる
	db.Model(&entity.Order{}).Where("id = ?", order.ID).Update("status", entity.StatusCompleted)
	w2 := testutil.DoRequest(router, "POST", "/api/v1/orders/"+order.ID+"/archive", nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	data := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if data["is_archived"] != true {
		t.Errorf("Expected is_archived=true, got %v", data["is_archived"])
	}

	// 復元
	w3 := testutil.DoRequest(router, "POST", "/api/v1/orders/"+order.ID+"/unarchive", nil)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
}

func TestOrderUnarchiveConflict(t *testing.T) {
	db, router := setupOrderTest(t)
	archived := testutil.SeedOrder(t, db, "MHT0703", "POM")
	archived.Status = entity.StatusCompleted
	archived.IsArchived = true
	db.Save(archived)

	// 同じ製番×ユニットの現役レコードがいると復元できない
	testutil.SeedOrder(t, db, "MHT0703", "POM")

	w := testutil.DoRequest(router, "POST", "/api/v1/orders/"+archived.ID+"/unarchive", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOrderListBySeiban(t *testing.T) {
	db, router := setupOrderTest(t)
	testutil.SeedOrder(t, db, "MHT0704", "SS400")
	testutil.SeedOrder(t, db, "MHT0704", "SUS304")
	hidden := testutil.SeedOrder(t, db, "MHT0704", "POM")
	hidden.IsArchived = true
	db.Save(hidden)

	w := testutil.DoRequest(router, "GET", "/api/v1/seibans/MHT0704/orders", nil)
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("Expected 2 active units, got %d", len(items))
	}

	w2 := testutil.DoRequest(router, "GET", "/api/v1/seibans/MHT0704/orders?include_archived=true", nil)
	items2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items2) != 3 {
		t.Errorf("Expected 3 units with archived, got %d", len(items2))
	}
}

func TestSearchByOrderNumber(t *testing.T) {
	db, router := setupOrderTest(t)
	order := testutil.SeedOrder(t, db, "MHT0706", "SS400")
	testutil.SeedDetail(t, db, order.ID, "ベース", "87020", 1)

	archived := testutil.SeedOrder(t, db, "MHT0706-1", "SS400")
	archived.IsArchived = true
	db.Save(archived)
	testutil.SeedDetail(t, db, archived.ID, "ベース(旧)", "87020", 1)

	// バーコードのゼロ埋め表記でも保存形の明細に届く。アーカイブ済みユニットは対象外
	w := testutil.DoRequest(router, "GET", "/api/v1/search/by-order-number/00087020", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if got := items[0].(map[string]interface{})["item_name"]; got != "ベース" {
		t.Errorf("Expected item_name=ベース, got %v", got)
	}

	// 存在しない発注番号
	w2 := testutil.DoRequest(router, "GET", "/api/v1/search/by-order-number/99999999", nil)
	if w2.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestSearchBySpec1(t *testing.T) {
	db, router := setupOrderTest(t)
	order := testutil.SeedOrder(t, db, "MHT0707", "SUS304")
	d := testutil.SeedDetail(t, db, order.ID, "プレート", "87030", 2)
	db.Model(d).Update("spec1", "SUS304-HL t3.0")

	// 部分一致で引ける
	w := testutil.DoRequest(router, "GET", "/api/v1/search/by-spec1/SUS304-HL", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	// 該当なしは404
	w2 := testutil.DoRequest(router, "GET", "/api/v1/search/by-spec1/A5052", nil)
	if w2.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestSeibanFamily(t *testing.T) {
	db, router := setupOrderTest(t)
	testutil.SeedOrder(t, db, "MHT0705", "SS400")
	testutil.SeedOrder(t, db, "MHT0705-2", "SS400")
	testutil.SeedOrder(t, db, "MHT0705-1", "SS400")

	// 枝番から引いても親を含む一家が番号順で返る
	w := testutil.DoRequest(router, "GET", "/api/v1/seibans/MHT0705-2/family", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	seibans := testutil.ParseResponse(w)["data"].(map[string]interface{})["seibans"].([]interface{})
	want := []string{"MHT0705", "MHT0705-1", "MHT0705-2"}
	if len(seibans) != len(want) {
		t.Fatalf("Expected %d seibans, got %d: %v", len(want), len(seibans), seibans)
	}
	for i, s := range want {
		if seibans[i] != s {
			t.Errorf("family[%d] = %v, want %s", i, seibans[i], s)
		}
	}
}
