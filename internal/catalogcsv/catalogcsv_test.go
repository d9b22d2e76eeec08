package catalogcsv

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"ecfresh/internal/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolver(known map[string]string) CategoryResolver {
	return func(ref string) (string, bool) {
		if id, ok := known[ref]; ok {
			return id, true
		}
		for _, id := range known {
			if id == ref {
				return id, true
			}
		}
		return "", false
	}
}

var veg = resolver(map[string]string{"Vegetables": "cat-veg"})

func TestParse_Template(t *testing.T) {
	results, err := Parse(bytes.NewReader(Template()), veg)
	require.NoError(t, err)
	require.Len(t, results, 2)

	onion := results[0].Product
	require.NotNil(t, onion)
	assert.Equal(t, 2, results[0].Line)
	assert.Equal(t, "Onion - Curry Cut", onion.Name)
	assert.Equal(t, "cat-veg", onion.CategoryID)
	assert.True(t, onion.IsAvailable)
	require.Len(t, onion.Variants, 3)
	assert.True(t, onion.Variants[0].Price.Equal(decimal.NewFromInt(45)))
	require.NotNil(t, onion.Variants[0].OriginalPrice)
	assert.True(t, onion.Variants[0].OriginalPrice.Equal(decimal.NewFromInt(55)))
	assert.Nil(t, results[1].Product.Variants[0].OriginalPrice)
}

func TestParse_RowErrors(t *testing.T) {
	in := strings.Join([]string{
		"name,category,description,image,variants,isAvailable",
		`"Onion",Vegetables,,,,TRUE`,
		`,Vegetables,,,,true`,
		``,
		`"Mint",Herbs,,,,true`,
		`"Garlic",cat-veg,,,"300g:-5",true`,
		`"Ginger",Vegetables,,,"2kg:40",yes`,
	}, "\n")

	results, err := Parse(strings.NewReader(in), veg)
	require.NoError(t, err)
	require.Len(t, results, 5)

	ok := results[0].Product
	require.NotNil(t, ok)
	assert.True(t, ok.IsAvailable)
	assert.Equal(t, DefaultImage, ok.Image)
	require.Len(t, ok.Variants, 1)
	assert.Equal(t, db.Weight300g, ok.Variants[0].Weight)
	assert.True(t, ok.Variants[0].Price.IsZero())

	assert.EqualError(t, results[1].Err, "Row 3: Name and category are required")
	assert.EqualError(t, results[2].Err, `Row 5: Category "Herbs" not found`)
	assert.ErrorContains(t, results[3].Err, "Row 6: variant 300g: negative price")
	assert.ErrorContains(t, results[4].Err, `Row 7: unknown weight "2kg"`)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(strings.NewReader(""), veg)
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("title,price\nx,1\n"), veg)
	assert.ErrorContains(t, err, `missing "name" column`)

	_, err = Parse(strings.NewReader("name,category\n\"unterminated,Vegetables\n"), veg)
	assert.Error(t, err)
}

func TestParse_ColumnOrderFree(t *testing.T) {
	in := "isAvailable,variants,category,name,extra\nfalse,500g:95,Vegetables,Tomato,ignored\n"
	results, err := Parse(strings.NewReader(in), veg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	p := results[0].Product
	require.NotNil(t, p)
	assert.Equal(t, "Tomato", p.Name)
	assert.False(t, p.IsAvailable)
	assert.Equal(t, db.Weight500g, p.Variants[0].Weight)
}

func TestWrite_ParsesBack(t *testing.T) {
	orig := decimal.NewFromInt(55)
	products := []db.Product{{
		Name: `Onion, "red"`, CategoryID: "cat-veg", Image: "https://img/onion.jpg", IsAvailable: true,
		Variants: db.Variants{
			{Weight: db.Weight300g, Price: decimal.RequireFromString("45.5"), OriginalPrice: &orig},
			{Weight: db.Weight1kg, Price: decimal.NewFromInt(130)},
		},
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, products))
	assert.True(t, strings.HasPrefix(buf.String(), "name,category,description,image,variants,isAvailable\n"))

	results, err := Parse(&buf, veg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := results[0].Product
	require.NotNil(t, got)
	assert.Equal(t, products[0].Name, got.Name)
	assert.Equal(t, "300g:45.5:55;1kg:130", FormatVariants(got.Variants))
}

func TestWriteOrders(t *testing.T) {
	orders := []db.Order{{
		ID:            "o1",
		CreatedAt:     time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC),
		Address:       db.Address{Name: "Asha", Phone: "9876543210", PinCode: "560001"},
		DeliveryDate:  "2026-03-11",
		TimeSlot:      "evening",
		Status:        db.OrderStatusConfirmed,
		PaymentMethod: db.PaymentCashOnDelivery,
		Subtotal:      decimal.NewFromInt(250),
		DeliveryFee:   decimal.NewFromInt(40),
		LoyaltyUsed:   decimal.Zero,
		Total:         decimal.NewFromInt(290),
	}}
	ist := time.FixedZone("IST", 5*3600+1800)

	var buf bytes.Buffer
	require.NoError(t, WriteOrders(&buf, orders, ist))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "o1,2026-03-10 10:00,Asha,9876543210,560001,2026-03-11,5:00 PM - 8:00 PM,confirmed,cod,250.00,40.00,0.00,290.00", lines[1])
}

func TestWrite_EscapesFormulaCells(t *testing.T) {
	products := []db.Product{{
		Name: `=HYPERLINK("http://evil","x")`, CategoryID: "cat-veg", Description: "+91 fresh",
		Image: "https://img/a.jpg", IsAvailable: true,
		Variants: db.Variants{{Weight: db.Weight300g, Price: decimal.NewFromInt(45)}},
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, products))
	assert.Contains(t, buf.String(), `"'=HYPERLINK(""http://evil"",""x"")"`)
	assert.Contains(t, buf.String(), "'+91 fresh")

	results, err := Parse(&buf, veg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Product)
	assert.Equal(t, products[0].Name, results[0].Product.Name)
	assert.Equal(t, products[0].Description, results[0].Product.Description)
}

func TestWriteOrders_EscapesCustomerCells(t *testing.T) {
	orders := []db.Order{{
		ID:            "o2",
		CreatedAt:     time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC),
		Address:       db.Address{Name: "@SUM(A1:A9)", Phone: "-1+1", PinCode: "560001"},
		DeliveryDate:  "2026-03-11",
		TimeSlot:      "morning",
		Status:        db.OrderStatusPending,
		PaymentMethod: db.PaymentCashOnDelivery,
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteOrders(&buf, orders, time.UTC))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",'@SUM(A1:A9),'-1+1,560001,")
}

func TestParse_KeepsPlainApostrophes(t *testing.T) {
	in := "name,category\n'Nana's Mix,Vegetables\n"
	results, err := Parse(strings.NewReader(in), veg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Product)
	assert.Equal(t, "'Nana's Mix", results[0].Product.Name)
}
