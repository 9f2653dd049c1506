package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"CustomerID":            "customer_id",
		"WebsiteURL":            "website_url",
		"DeliveryAddressLine1":  "delivery_address_line1",
		"IsoAlpha3Code":         "iso_alpha3_code",
		"LastEditedWhen_parsed": "last_edited_when_parsed",
		"BillToCustomerID":      "bill_to_customer_id",
		"ColorName":             "color_name",
		"already_snake":         "already_snake",
		"Sales Territory":       "sales_territory",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToSnake(in), in)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(TableSpec{Name: "colors", Domain: DomainDimensions, Source: "warehouse.colors", Target: "colors.parquet"}))

	spec, err := r.Lookup("colors")
	require.NoError(t, err)
	assert.Equal(t, "warehouse.colors.csv", spec.BronzeKey())
	assert.Equal(t, "dimensions/colors.parquet", spec.SilverKey())

	_, err = r.Lookup("nope")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.PipelineUnknownTable))

	err = r.Register(TableSpec{Name: "colors", Domain: DomainDimensions, Source: "x", Target: "y"})
	assert.True(t, errors.HasCode(err, SchemaDuplicateTable))
}

func TestRegistryHandsOutCopies(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(TableSpec{
		Name: "t", Domain: DomainSales, Source: "s", Target: "t.parquet",
		Columns:       []ColumnRename{{From: "A", To: "a"}},
		ExpectedNulls: map[string]string{"a": "why"},
	}))

	spec, err := r.Lookup("t")
	require.NoError(t, err)
	spec.Columns[0].To = "mutated"
	spec.ExpectedNulls["a"] = "mutated"

	again, err := r.Lookup("t")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Columns[0].To)
	assert.Equal(t, "why", again.ExpectedNulls["a"])
}

func TestValidateRejectsBadSpecs(t *testing.T) {
	base := TableSpec{Name: "t", Domain: DomainSales, Source: "s", Target: "t.parquet"}

	noName := base
	noName.Name = ""
	badDomain := base
	badDomain.Domain = "gold"
	dupTarget := base
	dupTarget.Columns = []ColumnRename{{From: "A", To: "a"}, {From: "B", To: "a"}}
	conflict := base
	conflict.Temporal = []string{"a"}
	conflict.IDColumns = []string{"a"}

	for _, s := range []TableSpec{noName, badDomain, dupTarget, conflict} {
		err := s.Validate()
		assert.True(t, errors.HasCode(err, SchemaInvalidSpec), "%+v", s)
	}
	assert.NoError(t, base.Validate())
}

func TestBuiltinSpecs(t *testing.T) {
	specs := Builtin()
	require.Len(t, specs, 14)

	byName := map[string]TableSpec{}
	for _, s := range specs {
		require.NoError(t, s.Validate(), s.Name)
		byName[s.Name] = s
	}

	orders := byName["orders"]
	m := orders.RenameMap()
	assert.Equal(t, "salesperson_id", m["SalespersonPersonID"])
	assert.Equal(t, "picked_by_id", m["PickedByPersonID"])
	assert.Equal(t, "customer_po_number", m["CustomerPurchaseOrderNumber"])
	assert.Equal(t, "last_edited_when_parsed", m["LastEditedWhen_parsed"])
	assert.ElementsMatch(t, []string{"OrderID", "CustomerID", "OrderDate", "SalespersonPersonID"}, orders.Required)

	customers := byName["customers"]
	assert.Equal(t, "website_url", customers.RenameMap()["WebsiteURL"])
	assert.Equal(t, []string{"buying_group_id", "alternate_contact_person_id"}, customers.IDColumns)
	assert.Equal(t, "sales/customers.parquet", customers.SilverKey())

	assert.Equal(t, "packed_by_id", byName["invoices"].RenameMap()["PackedByPersonID"])
	assert.Equal(t, "sales.incvoiceslines.csv", byName["invoice_lines"].BronzeKey())
	assert.Equal(t, "purchasing/supplier_transactions.parquet", byName["supplier_transactions"].SilverKey())
	assert.Len(t, byName["stock_items"].Rules, 1)
}

func TestDefaultDimensions(t *testing.T) {
	dims, err := DefaultDimensions()
	require.NoError(t, err)

	var names []string
	for _, d := range dims {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"colors", "countries", "delivery_methods", "package_types", "payment_methods", "transaction_types"}, names)

	colors := dims[0]
	assert.Equal(t, "warehouse.colors.csv", colors.BronzeKey())
	assert.Equal(t, "dimensions/colors.parquet", colors.SilverKey())
	assert.Equal(t, "color_id", colors.PrimaryKey)
	assert.Equal(t, []string{"ColorID"}, colors.Required)
	assert.Equal(t, []string{"valid_from", "valid_to"}, colors.Temporal)
	assert.Equal(t, []string{"color_id"}, colors.IDColumns)
	assert.True(t, colors.AuditAll)
	assert.Contains(t, colors.ExpectedNulls, "valid_to")

	countries := dims[1]
	assert.Equal(t, "iso_alpha3_code", countries.RenameMap()["IsoAlpha3Code"])
	assert.Contains(t, countries.ExpectedNulls, "border")
}

func TestLoadDimensionsErrors(t *testing.T) {
	_, err := LoadDimensions(strings.NewReader("dimensions: [1, 2]"))
	assert.True(t, errors.HasCode(err, SchemaDimensionsInvalid))

	_, err = LoadDimensions(strings.NewReader("dimensions:\n  x:\n    target_name: x.parquet\n"))
	assert.True(t, errors.HasCode(err, SchemaDimensionsInvalid))

	specs, err := LoadDimensions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, specs)

	_, err = LoadDimensionsFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, errors.HasCode(err, SchemaDimensionsRead))
}

func TestLoadDimensionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dims.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
dimensions:
  zones:
    source_name: application.zones
    target_name: zones.parquet
    columns:
      - {from: ZoneID}
      - {from: ZoneLabel, to: label}
    temporal_columns: []
    id_columns: [ZoneID]
`), 0644))

	specs, err := LoadDimensionsFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "label", specs[0].RenameMap()["ZoneLabel"])
	assert.Equal(t, []string{"zone_id"}, specs[0].IDColumns)
	assert.Empty(t, specs[0].PrimaryKey)
}

func TestNewDefaultRegistryOrder(t *testing.T) {
	dims, err := DefaultDimensions()
	require.NoError(t, err)

	r, err := NewDefaultRegistry(dims)
	require.NoError(t, err)
	names := r.Names()
	require.Len(t, names, 20)
	assert.Equal(t, "orders", names[0])
	assert.Equal(t, "purchase_orders", names[5])
	assert.Equal(t, "colors", names[9])
	assert.Equal(t, "cities", names[15])
	assert.Equal(t, "stock_item_holdings", names[19])

	_, err = NewDefaultRegistry(append(dims, dims[0]))
	assert.True(t, errors.HasCode(err, SchemaDuplicateTable))
}
