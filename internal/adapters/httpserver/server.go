package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/adapters/xlsx"
	"github.com/phenrril/posvariantes/internal/domain"
	"github.com/phenrril/posvariantes/internal/usecase"
)

const maxBodyBytes = 1 << 20

type Server struct {
	catalog  *usecase.CatalogUC
	products *usecase.ProductUC
	variants *usecase.VariantUC
	generate usecase.GenerateOptions
	export   func(w io.Writer, p *domain.Product, variants []domain.Variant) error
}

func New(c *usecase.CatalogUC, p *usecase.ProductUC, v *usecase.VariantUC, gen usecase.GenerateOptions) http.Handler {
	s := &Server{catalog: c, products: p, variants: v, generate: gen, export: xlsx.ExportVariants}
	return s.handler()
}

func (s *Server) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, Logging, Recovery)
	s.routes(r)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/attributes", s.apiListAttributes)
		api.Post("/attributes", s.apiCreateAttribute)
		api.Get("/attributes/{id}", s.apiGetAttribute)
		api.Delete("/attributes/{id}", s.apiDeleteAttribute)
		api.Post("/attributes/{id}/values", s.apiAddValue)
		api.Delete("/attribute-values/{id}", s.apiRemoveValue)

		api.Get("/products", s.apiListProducts)
		api.Post("/products", s.apiCreateProduct)
		api.Get("/products/{id}", s.apiGetProduct)
		api.Delete("/products/{id}", s.apiDeleteProduct)
		api.Put("/products/{id}/lines/{attributeID}", s.apiSetLine)
		api.Delete("/products/{id}/lines/{attributeID}", s.apiRemoveLine)

		// variantes del producto
		api.Get("/products/{id}/variants", s.apiListVariants)
		api.Get("/products/{id}/variants.xlsx", s.apiExportVariants)
		api.Post("/products/{id}/variants/generate", s.apiGenerate)
		api.Post("/products/{id}/variants/reprice", s.apiReprice)
		api.Post("/products/{id}/variants/repair", s.apiRepair)
		api.Post("/products/{id}/match", s.apiMatch)
		api.Post("/products/{id}/resolve", s.apiResolve)
		api.Post("/products/{id}/quote", s.apiQuote)

		api.Post("/variants/{id}/stock", s.apiAdjustStock)
		api.Put("/variants/{id}/barcode", s.apiAssignBarcode)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError traduce los errores de dominio a códigos HTTP.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg("error interno")
		msg = "error interno"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "json inválido: " + err.Error()})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("%s inválido", name)})
		return uuid.Nil, false
	}
	return id, true
}

// --- Atributos ---

func (s *Server) apiListAttributes(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.ListAttributes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]attributeView, 0, len(list))
	for i := range list {
		out = append(out, newAttributeView(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) apiCreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		DisplayType string `json:"display_type"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := s.catalog.CreateAttribute(r.Context(), req.Name, domain.DisplayType(req.DisplayType))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAttributeView(a))
}

func (s *Server) apiGetAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := s.catalog.GetAttribute(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAttributeView(a))
}

func (s *Server) apiDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.catalog.DeleteAttribute(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiAddValue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Value     string `json:"value"`
		Sequence  *int   `json:"sequence"`
		HTMLColor string `json:"html_color"`
	}
	if !decode(w, r, &req) {
		return
	}
	v, err := s.catalog.AddValue(r.Context(), id, usecase.ValueInput{Value: req.Value, Sequence: req.Sequence, HTMLColor: req.HTMLColor})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newValueView(v))
}

func (s *Server) apiRemoveValue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.catalog.RemoveValue(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Productos ---

func (s *Server) apiListProducts(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	pageSize, _ := strconv.Atoi(qv.Get("page_size"))
	list, total, err := s.products.List(r.Context(), domain.ProductFilter{
		Query:    qv.Get("q"),
		Category: qv.Get("category"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]productView, 0, len(list))
	for i := range list {
		out = append(out, newProductView(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "total": total})
}

func (s *Server) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string              `json:"name"`
		Code          *string             `json:"code"`
		Category      string              `json:"category"`
		UnitPrice     decimal.NullDecimal `json:"unit_price"`
		PurchasePrice decimal.Decimal     `json:"purchase_price"`
		Stock         int                 `json:"stock"`
	}
	if !decode(w, r, &req) {
		return
	}
	p := &domain.Product{
		Name:          req.Name,
		Code:          req.Code,
		Category:      strings.TrimSpace(req.Category),
		UnitPrice:     req.UnitPrice,
		PurchasePrice: req.PurchasePrice,
		Stock:         req.Stock,
	}
	if err := s.products.Create(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductView(p))
}

func (s *Server) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductView(p))
}

func (s *Server) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiSetLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	attributeID, ok := pathID(w, r, "attributeID")
	if !ok {
		return
	}
	var req struct {
		Sequence *int `json:"sequence"`
		Values   []struct {
			ValueID    uuid.UUID       `json:"value_id"`
			PriceExtra decimal.Decimal `json:"price_extra"`
			Kind       string          `json:"price_extra_type"`
		} `json:"values"`
	}
	if !decode(w, r, &req) {
		return
	}
	in := usecase.LineInput{AttributeID: attributeID, Sequence: req.Sequence}
	for _, v := range req.Values {
		in.Values = append(in.Values, usecase.LineValueInput{ValueID: v.ValueID, PriceExtra: v.PriceExtra, Kind: domain.AdjustmentKind(v.Kind)})
	}
	line, err := s.products.SetLine(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLineView(line))
}

func (s *Server) apiRemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	attributeID, ok := pathID(w, r, "attributeID")
	if !ok {
		return
	}
	if err := s.products.RemoveLine(r.Context(), id, attributeID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Variantes ---

func (s *Server) apiListVariants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := s.variants.ListVariants(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": newVariantViews(list)})
}

func (s *Server) apiExportVariants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.variants.ListVariants(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.export(&buf, p, list); err != nil {
		writeError(w, r, fmt.Errorf("export xlsx: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=variantes-%s.xlsx", p.ID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Str("product_id", id.String()).Msg("export xlsx")
	}
}

func (s *Server) apiGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	opts := s.generate
	if v := r.URL.Query().Get("barcodes"); v != "" {
		opts.AssignBarcodes, _ = strconv.ParseBool(v)
	}
	rep, err := s.variants.Generate(r.Context(), id, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created":  newVariantViews(rep.Created),
		"existing": newVariantViews(rep.Existing),
		"stale":    newVariantViews(rep.Stale),
	})
}

func (s *Server) apiReprice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rep, err := s.variants.Reprice(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated":   newVariantViews(rep.Updated),
		"unchanged": rep.Unchanged,
		"skipped":   newVariantViews(rep.Skipped),
	})
}

func (s *Server) apiRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rep, err := s.variants.RepairFromNames(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"repaired": newVariantViews(rep.Repaired),
		"skipped":  newVariantViews(rep.Skipped),
	})
}

func (s *Server) decodeSelection(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Selection, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return uuid.Nil, nil, false
	}
	var req struct {
		Selection domain.Selection `json:"selection"`
	}
	if !decode(w, r, &req) {
		return uuid.Nil, nil, false
	}
	if req.Selection == nil {
		req.Selection = domain.Selection{}
	}
	return id, req.Selection, true
}

func (s *Server) apiMatch(w http.ResponseWriter, r *http.Request) {
	id, sel, ok := s.decodeSelection(w, r)
	if !ok {
		return
	}
	list, err := s.variants.Match(r.Context(), id, sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": newVariantViews(list)})
}

func (s *Server) apiResolve(w http.ResponseWriter, r *http.Request) {
	id, sel, ok := s.decodeSelection(w, r)
	if !ok {
		return
	}
	v, err := s.variants.Resolve(r.Context(), id, sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVariantView(v))
}

func (s *Server) apiQuote(w http.ResponseWriter, r *http.Request) {
	id, sel, ok := s.decodeSelection(w, r)
	if !ok {
		return
	}
	b, err := s.variants.Quote(r.Context(), id, sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) apiAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if !decode(w, r, &req) {
		return
	}
	stock, err := s.variants.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stock": stock})
}

func (s *Server) apiAssignBarcode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Barcode string `json:"barcode"`
	}
	if !decode(w, r, &req) {
		return
	}
	v, err := s.variants.AssignBarcode(r.Context(), id, req.Barcode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVariantView(v))
}
