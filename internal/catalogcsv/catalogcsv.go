// Package catalogcsv reads and writes the admin dashboard's product and
// order spreadsheets.
package catalogcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ecfresh/internal/db"
	"ecfresh/internal/delivery"

	"github.com/shopspring/decimal"
)

// DefaultImage is used when a row leaves the image column empty.
const DefaultImage = "https://images.pexels.com/photos/1640777/pexels-photo-1640777.jpeg"

var Columns = []string{"name", "category", "description", "image", "variants", "isAvailable"}

// RowResult is the outcome of one data row: exactly one of Product and Err is set.
type RowResult struct {
	Line    int
	Product *db.Product
	Err     error
}

// CategoryResolver maps a category id or name to a category id.
type CategoryResolver func(ref string) (id string, ok bool)

// Parse reads a product sheet. A malformed file (bad quoting, missing
// required header) is an error; bad rows are reported per row.
func Parse(r io.Reader, resolve CategoryResolver) ([]RowResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{"name", "category"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	var results []RowResult
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(record) {
				return ""
			}
			return unescapeCell(strings.TrimSpace(record[i]))
		}
		p, err := parseRow(get, resolve)
		if err != nil {
			results = append(results, RowResult{Line: line, Err: fmt.Errorf("Row %d: %w", line, err)})
			continue
		}
		results = append(results, RowResult{Line: line, Product: p})
	}
	return results, nil
}

func parseRow(get func(string) string, resolve CategoryResolver) (*db.Product, error) {
	name, category := get("name"), get("category")
	if name == "" || category == "" {
		return nil, errors.New("Name and category are required")
	}
	categoryID, ok := resolve(category)
	if !ok {
		return nil, fmt.Errorf("Category %q not found", category)
	}
	variants, err := ParseVariants(get("variants"))
	if err != nil {
		return nil, err
	}
	image := get("image")
	if image == "" {
		image = DefaultImage
	}
	return &db.Product{
		Name:        name,
		CategoryID:  categoryID,
		Description: get("description"),
		Image:       image,
		Variants:    variants,
		IsAvailable: strings.EqualFold(get("isAvailable"), "true"),
	}, nil
}

// ParseVariants decodes "weight:price[:originalPrice]" entries joined by ';'.
// An empty string yields a single unpriced 300g variant.
func ParseVariants(s string) (db.Variants, error) {
	if strings.TrimSpace(s) == "" {
		return db.Variants{{Weight: db.Weight300g, Price: decimal.Zero}}, nil
	}
	var out db.Variants
	seen := make(map[db.Weight]bool)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid variant %q", entry)
		}
		w := db.Weight(strings.TrimSpace(parts[0]))
		switch w {
		case db.Weight300g, db.Weight500g, db.Weight1kg:
		default:
			return nil, fmt.Errorf("unknown weight %q", parts[0])
		}
		if seen[w] {
			return nil, fmt.Errorf("duplicate weight %q", w)
		}
		seen[w] = true

		price, err := parsePrice(parts[1])
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", w, err)
		}
		v := db.Variant{Weight: w, Price: price}
		if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
			orig, err := parsePrice(parts[2])
			if err != nil {
				return nil, fmt.Errorf("variant %s original price: %w", w, err)
			}
			v.OriginalPrice = &orig
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("no variants")
	}
	return out, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", s)
	}
	return d, nil
}

// FormatVariants is the inverse of ParseVariants.
func FormatVariants(vs db.Variants) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		s := string(v.Weight) + ":" + v.Price.String()
		if v.OriginalPrice != nil {
			s += ":" + v.OriginalPrice.String()
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ";")
}

// Write exports products with the import columns. category holds the
// category id, which Parse accepts back.
func Write(w io.Writer, products []db.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write([]string{
			escapeCell(p.Name), p.CategoryID, escapeCell(p.Description), escapeCell(p.Image),
			FormatVariants(p.Variants), strconv.FormatBool(p.IsAvailable),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Template returns a sample import file with two products.
func Template() []byte {
	return []byte(`name,category,description,image,variants,isAvailable
"Onion - Curry Cut","Vegetables","Fresh onions cut perfectly for curry preparations","` + DefaultImage + `","300g:45:55;500g:70:85;1kg:130:150",true
"Tomato - Curry Cut","Vegetables","Ripe tomatoes cut for instant cooking","` + DefaultImage + `","300g:60;500g:95;1kg:180",true
`)
}

var orderColumns = []string{
	"id", "created_at", "customer", "phone", "pin_code", "delivery_date", "time_slot",
	"status", "payment_method", "subtotal", "delivery_fee", "loyalty_used", "total",
}

// WriteOrders exports orders for the admin dashboard. Times are rendered in loc.
func WriteOrders(w io.Writer, orders []db.Order, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(orderColumns); err != nil {
		return err
	}
	for _, o := range orders {
		if err := cw.Write([]string{
			o.ID,
			o.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			escapeCell(o.Address.Name),
			escapeCell(o.Address.Phone),
			escapeCell(o.Address.PinCode),
			o.DeliveryDate,
			delivery.Label(delivery.Window(o.TimeSlot)),
			string(o.Status),
			string(o.PaymentMethod),
			o.Subtotal.StringFixed(2),
			o.DeliveryFee.StringFixed(2),
			o.LoyaltyUsed.StringFixed(2),
			o.Total.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// escapeCell stops spreadsheets from evaluating text that starts like a formula.
func escapeCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// unescapeCell undoes escapeCell so exported sheets import unchanged.
func unescapeCell(s string) string {
	if len(s) > 1 && s[0] == '\'' && strings.ContainsRune("=+-@", rune(s[1])) {
		return s[1:]
	}
	return s
}
