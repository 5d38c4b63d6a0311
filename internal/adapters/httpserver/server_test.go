package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/posvariantes/internal/adapters/repo/sqlstore"
	"github.com/phenrril/posvariantes/internal/adapters/xlsx"
	"github.com/phenrril/posvariantes/internal/domain"
	"github.com/phenrril/posvariantes/internal/usecase"
)

func newTestServer(t *testing.T, tweaks ...func(*Server)) *httptest.Server {
	t.Helper()
	db, err := sqlstore.Open("sqlite", filepath.Join(t.TempDir(), "pos.db"), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sqlstore.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.NewStore(db)
	s := &Server{
		catalog:  &usecase.CatalogUC{Store: store},
		products: &usecase.ProductUC{Store: store},
		variants: &usecase.VariantUC{Store: store},
		export:   xlsx.ExportVariants,
	}
	for _, tweak := range tweaks {
		tweak(s)
	}
	srv := httptest.NewServer(s.handler())
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return res.StatusCode
}

type idResp struct {
	ID string `json:"id"`
}

func TestVariantFlow(t *testing.T) {
	srv := newTestServer(t)

	var color idResp
	if code := call(t, srv, http.MethodPost, "/api/attributes", map[string]string{"name": "Color", "display_type": "color"}, &color); code != http.StatusCreated {
		t.Fatalf("create attribute status = %d", code)
	}
	var black, white idResp
	call(t, srv, http.MethodPost, "/api/attributes/"+color.ID+"/values", map[string]string{"value": "BLACK"}, &black)
	call(t, srv, http.MethodPost, "/api/attributes/"+color.ID+"/values", map[string]string{"value": "WHITE"}, &white)

	var product idResp
	if code := call(t, srv, http.MethodPost, "/api/products", map[string]any{"name": "iPhone 13", "unit_price": "100"}, &product); code != http.StatusCreated {
		t.Fatalf("create product status = %d", code)
	}
	line := map[string]any{"values": []map[string]any{
		{"value_id": black.ID, "price_extra": "20", "price_extra_type": "fixed"},
		{"value_id": white.ID, "price_extra": "10", "price_extra_type": "percentage"},
	}}
	if code := call(t, srv, http.MethodPut, "/api/products/"+product.ID+"/lines/"+color.ID, line, nil); code != http.StatusOK {
		t.Fatalf("set line status = %d", code)
	}

	var gen struct {
		Created []struct {
			SKU       string `json:"sku"`
			UnitPrice string `json:"unit_price"`
		} `json:"created"`
	}
	if code := call(t, srv, http.MethodPost, "/api/products/"+product.ID+"/variants/generate", nil, &gen); code != http.StatusOK {
		t.Fatalf("generate status = %d", code)
	}
	if len(gen.Created) != 2 || gen.Created[0].UnitPrice != "120" || gen.Created[1].UnitPrice != "110" {
		t.Fatalf("generated = %+v", gen.Created)
	}

	var resolved struct {
		SKU        string            `json:"sku"`
		Attributes map[string]string `json:"attributes"`
	}
	code := call(t, srv, http.MethodPost, "/api/products/"+product.ID+"/resolve", map[string]any{"selection": map[string]string{"Color": "WHITE"}}, &resolved)
	if code != http.StatusOK || resolved.SKU != gen.Created[1].SKU || resolved.Attributes["Color"] != "WHITE" {
		t.Fatalf("resolve = %d %+v", code, resolved)
	}

	var quote struct {
		FinalPrice string `json:"final_price"`
	}
	call(t, srv, http.MethodPost, "/api/products/"+product.ID+"/quote", map[string]any{"selection": map[string]string{"color": "BLACK"}}, &quote)
	if quote.FinalPrice != "120" {
		t.Fatalf("quote = %+v", quote)
	}

	var match struct {
		Items []json.RawMessage `json:"items"`
	}
	call(t, srv, http.MethodPost, "/api/products/"+product.ID+"/match", map[string]any{"selection": map[string]string{}}, &match)
	if len(match.Items) != 2 {
		t.Fatalf("match all = %d", len(match.Items))
	}
	if code := call(t, srv, http.MethodPost, "/api/products/"+product.ID+"/resolve", map[string]any{"selection": map[string]string{}}, nil); code != http.StatusBadRequest {
		t.Fatalf("ambiguous resolve status = %d", code)
	}
	if code := call(t, srv, http.MethodPost, "/api/products/"+product.ID+"/resolve", map[string]any{"selection": map[string]string{"Color": "RED"}}, nil); code != http.StatusNotFound {
		t.Fatalf("no-match resolve status = %d", code)
	}
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	if code := call(t, srv, http.MethodGet, "/api/products/"+uuid.NewString(), nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown product status = %d", code)
	}
	if code := call(t, srv, http.MethodGet, "/api/products/nope", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", code)
	}
	if code := call(t, srv, http.MethodPost, "/api/products", map[string]any{"name": "Sin precio"}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing price status = %d", code)
	}
	call(t, srv, http.MethodPost, "/api/attributes", map[string]string{"name": "Talle"}, nil)
	var body map[string]string
	if code := call(t, srv, http.MethodPost, "/api/attributes", map[string]string{"name": "TALLE"}, &body); code != http.StatusConflict {
		t.Fatalf("duplicate attribute status = %d", code)
	}
	if !strings.Contains(body["error"], "TALLE") {
		t.Fatalf("error body = %v", body)
	}
	if code := call(t, srv, http.MethodPost, "/api/variants/"+uuid.NewString()+"/stock", map[string]int{"delta": 1}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown variant stock status = %d", code)
	}
}

func exportRequest(t *testing.T, srv *httptest.Server) (*http.Response, []byte) {
	t.Helper()
	var product idResp
	if code := call(t, srv, http.MethodPost, "/api/products", map[string]any{"name": "iPhone 13", "unit_price": "100"}, &product); code != http.StatusCreated {
		t.Fatalf("create product status = %d", code)
	}
	res, err := srv.Client().Get(srv.URL + "/api/products/" + product.ID + "/variants.xlsx")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, body
}

func TestExportVariantsXLSX(t *testing.T) {
	srv := newTestServer(t)
	res, body := exportRequest(t, srv)
	if res.StatusCode != http.StatusOK || !strings.Contains(res.Header.Get("Content-Type"), "spreadsheetml") {
		t.Fatalf("status = %d, content-type = %q", res.StatusCode, res.Header.Get("Content-Type"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	if rows, err := f.GetRows(xlsx.VariantsSheet); err != nil || len(rows) != 1 {
		t.Fatalf("rows = %v, err = %v", rows, err)
	}
}

func TestExportFailureIsNotSentAsSpreadsheet(t *testing.T) {
	srv := newTestServer(t, func(s *Server) {
		s.export = func(w io.Writer, _ *domain.Product, _ []domain.Variant) error {
			_, _ = w.Write([]byte("PK partial"))
			return errors.New("disco lleno")
		}
	})
	res, body := exportRequest(t, srv)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.StatusCode)
	}
	if strings.Contains(res.Header.Get("Content-Type"), "spreadsheetml") || res.Header.Get("Content-Disposition") != "" {
		t.Fatalf("spreadsheet headers sent on failure: %v", res.Header)
	}
	if bytes.Contains(body, []byte("PK partial")) {
		t.Fatalf("partial export leaked to the client: %q", body)
	}
}
