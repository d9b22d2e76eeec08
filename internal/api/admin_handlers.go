package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"ecfresh/internal/db"
	"ecfresh/internal/entities"
	"ecfresh/internal/repository"
	"ecfresh/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type AdminHandler struct {
	Catalog *service.AdminService
	Orders  *service.OrderService
	log     *zap.Logger
}

func NewAdminHandler(catalog *service.AdminService, orders *service.OrderService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Catalog: catalog, Orders: orders, log: log}
}

// Banners

func (h *AdminHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.Catalog.ListBanners(r.Context())
	h.respond(w, r, http.StatusOK, banners, err)
}

func (h *AdminHandler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var b db.Banner
	if !decode(w, r, &b) {
		return
	}
	h.respond(w, r, http.StatusCreated, &b, h.Catalog.CreateBanner(r.Context(), &b))
}

func (h *AdminHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	patch, ok := readPatch(w, r)
	if !ok {
		return
	}
	b, err := h.Catalog.UpdateBanner(r.Context(), mux.Vars(r)["id"], patch)
	h.respond(w, r, http.StatusOK, b, err)
}

func (h *AdminHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.Catalog.DeleteBanner(r.Context(), mux.Vars(r)["id"]))
}

// Categories

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Catalog.ListCategories(r.Context())
	h.respond(w, r, http.StatusOK, categories, err)
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c db.Category
	if !decode(w, r, &c) {
		return
	}
	h.respond(w, r, http.StatusCreated, &c, h.Catalog.CreateCategory(r.Context(), &c))
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	patch, ok := readPatch(w, r)
	if !ok {
		return
	}
	c, err := h.Catalog.UpdateCategory(r.Context(), mux.Vars(r)["id"], patch)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.Catalog.DeleteCategory(r.Context(), mux.Vars(r)["id"]))
}

// Products

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.Catalog.ListProducts(r.Context(), repository.ProductFilter{
		CategoryID: q.Get("category"),
		Query:      q.Get("q"),
	})
	h.respond(w, r, http.StatusOK, products, err)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p db.Product
	if !decode(w, r, &p) {
		return
	}
	h.respond(w, r, http.StatusCreated, &p, h.Catalog.CreateProduct(r.Context(), &p))
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	patch, ok := readPatch(w, r)
	if !ok {
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), mux.Vars(r)["id"], patch)
	h.respond(w, r, http.StatusOK, p, err)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.Catalog.DeleteProduct(r.Context(), mux.Vars(r)["id"]))
}

// ImportProducts accepts the CSV either as the multipart field "file" or as the raw body.
func (h *AdminHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer file.Close()
		src = file
	}
	result, err := h.Catalog.ImportProducts(r.Context(), src)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *AdminHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Catalog.ExportProducts(r.Context(), &buf); err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeCSV(w, "products.csv", buf.Bytes())
}

func (h *AdminHandler) ProductTemplate(w http.ResponseWriter, r *http.Request) {
	writeCSV(w, "products_template.csv", h.Catalog.ProductTemplate())
}

// Orders

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.List(r.Context(), r.URL.Query().Get("status"))
	h.respond(w, r, http.StatusOK, orders, err)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req entities.StatusUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	h.respond(w, r, http.StatusOK, o, err)
}

func (h *AdminHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Orders.Export(r.Context(), &buf, r.URL.Query().Get("status")); err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeCSV(w, "orders.csv", buf.Bytes())
}

func (h *AdminHandler) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}, err error) {
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, status, v)
}

func (h *AdminHandler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readPatch(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || len(bytes.TrimSpace(patch)) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return patch, true
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
