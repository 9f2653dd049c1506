package transform

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nullTokens = []string{"", "NULL", "NaN", "nan"}

func stringFrame(t *testing.T, header []string, rows ...[]string) *table.Frame {
	t.Helper()
	f, err := table.FromRaw(&table.Raw{Name: "t", Header: header, Records: rows}, table.NewNullSet(nullTokens))
	require.NoError(t, err)
	return f
}

func colorsSpec() schema.TableSpec {
	return schema.TableSpec{
		Name:   "colors",
		Domain: schema.DomainDimensions,
		Source: "warehouse.colors",
		Target: "colors.parquet",
		Columns: []schema.ColumnRename{
			{From: "ColorID", To: "color_id"},
			{From: "ColorName", To: "color_name"},
			{From: "LastEditedBy", To: "last_edited_by"},
			{From: "ValidFrom", To: "valid_from"},
			{From: "ValidTo", To: "valid_to"},
		},
		Temporal:      []string{"valid_from", "valid_to"},
		IDColumns:     []string{"color_id"},
		TextColumns:   []string{"color_name"},
		PrimaryKey:    "color_id",
		Required:      []string{"ColorID"},
		AuditAll:      true,
		ExpectedNulls: map[string]string{"valid_to": "currently active records"},
	}
}

func TestNormalizerRenamesDeclaredColumnsOnly(t *testing.T) {
	f := stringFrame(t, []string{"ColorID", "ColorName", "Extra", "Secret"}, []string{"1", "Red", "x", "y"})
	spec := colorsSpec()
	spec.Ignore = []string{"Secret"}

	out, err := Normalizer{}.Apply(f, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"color_id", "color_name", "Extra"}, out.Names())
	assert.Equal(t, []string{"ColorID", "ColorName", "Extra", "Secret"}, f.Names())
}

func TestNormalizerRequiredAndCollisions(t *testing.T) {
	f := stringFrame(t, []string{"ColorName"}, []string{"Red"})
	_, err := Normalizer{}.Apply(f, colorsSpec())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.PipelineSchemaMismatch))
	assert.Equal(t, "ColorID", errors.GetContext(err)["missing"])

	clash := stringFrame(t, []string{"ColorID", "color_name", "ColorName"}, []string{"1", "a", "b"})
	_, err = Normalizer{}.Apply(clash, colorsSpec())
	assert.True(t, errors.HasCode(err, errors.PipelineSchemaMismatch))
}

func TestParseID(t *testing.T) {
	n, ok, err := ParseID("123.0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(123), n)

	n, ok, err = ParseID(" 42 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, _, err = ParseID("123.5")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.PipelineTypeCoercion))

	_, ok, err = ParseID("abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseIDExact(t *testing.T) {
	for in, want := range map[string]int64{
		"9007199254740993.0":    9007199254740993,
		"9223372036854775807.0": math.MaxInt64,
		"-9223372036854775808.": math.MinInt64,
		"00123.000":             123,
		"+7.0":                  7,
		".0":                    0,
		"1.5e3":                 1500,
		"9007199254740993e0":    9007199254740993,
	} {
		n, ok, err := ParseID(in)
		require.NoError(t, err, in)
		assert.True(t, ok, in)
		assert.Equal(t, want, n, in)
	}

	for _, in := range []string{"9223372036854775808.0", "1e19", "NaN", "Inf", "3/4", "0x10", "."} {
		_, ok, err := ParseID(in)
		require.NoError(t, err, in)
		assert.False(t, ok, in)
	}

	for _, in := range []string{"9007199254740993.5", "1.25e1", "1e-3"} {
		_, _, err := ParseID(in)
		require.Error(t, err, in)
		assert.True(t, errors.HasCode(err, errors.PipelineTypeCoercion), in)
	}
}

func TestCoercerNullableIDs(t *testing.T) {
	f := stringFrame(t, []string{"buying_group_id"}, []string{"123.0"}, []string{""}, []string{"7"}, []string{"n/a-ish"})
	spec := schema.TableSpec{Name: "customers", IDColumns: []string{"buying_group_id"}}

	out, report, err := NewCoercer().Apply(f, spec)
	require.NoError(t, err)

	col, _ := out.Column("buying_group_id")
	assert.Equal(t, table.KindInt64, col.Kind)
	assert.Equal(t, []int64{123, 0, 7, 0}, col.Ints)
	assert.Equal(t, []bool{true, false, true, false}, col.Valid)

	stats, ok := report.Lookup("buying_group_id")
	require.True(t, ok)
	assert.Equal(t, table.ColumnCoercion{Column: "buying_group_id", Kind: table.KindInt64, Parsed: 2, Absent: 1, Invalid: 1}, stats)
}

func TestCoercerFractionalIDIsFatal(t *testing.T) {
	f := stringFrame(t, []string{"buying_group_id"}, []string{"1"}, []string{"123.5"})
	_, _, err := NewCoercer().Apply(f, schema.TableSpec{Name: "customers", IDColumns: []string{"buying_group_id"}})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.PipelineTypeCoercion))
	ctx := errors.GetContext(err)
	assert.Equal(t, "customers", ctx["table"])
	assert.Equal(t, "buying_group_id", ctx["column"])
	assert.Equal(t, "2", ctx["row"])
}

func TestCoercerTimestamps(t *testing.T) {
	f := stringFrame(t, []string{"valid_from"},
		[]string{"2013-01-01 00:00:00.0000000"},
		[]string{"2016-05-31 23:11:00"},
		[]string{"2014-03-05"},
		[]string{"31/12/2015"},
		[]string{""},
		[]string{"not a date"},
	)

	out, report, err := NewCoercer().Apply(f, schema.TableSpec{Name: "t", Temporal: []string{"valid_from"}})
	require.NoError(t, err)

	col, _ := out.Column("valid_from")
	require.Equal(t, table.KindTimestamp, col.Kind)
	assert.Equal(t, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), col.Times[0])
	assert.Equal(t, time.Date(2016, 5, 31, 23, 11, 0, 0, time.UTC), col.Times[1])
	assert.Equal(t, time.Date(2014, 3, 5, 0, 0, 0, 0, time.UTC), col.Times[2])
	assert.Equal(t, time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC), col.Times[3])
	assert.Equal(t, []bool{true, true, true, true, false, false}, col.Valid)
	assert.True(t, col.Times[5].IsZero(), "unparseable values never get a default date")

	stats, _ := report.Lookup("valid_from")
	assert.Equal(t, 4, stats.Parsed)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, 1, stats.Invalid)
}

func TestCoercerInference(t *testing.T) {
	f := stringFrame(t, []string{"qty", "price", "flag", "name", "postal", "blank"},
		[]string{"1", "1.50", "True", "Azure", "90410", ""},
		[]string{"", "2", "false", "7", "00501", ""},
	)
	spec := schema.TableSpec{Name: "t", TextColumns: []string{"postal"}}

	out, _, err := NewCoercer().Apply(f, spec)
	require.NoError(t, err)

	kinds := map[string]table.Kind{}
	for _, c := range out.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, map[string]table.Kind{
		"qty":    table.KindInt64,
		"price":  table.KindFloat64,
		"flag":   table.KindBool,
		"name":   table.KindString,
		"postal": table.KindString,
		"blank":  table.KindString,
	}, kinds)

	qty, _ := out.Column("qty")
	assert.Equal(t, []bool{true, false}, qty.Valid)
	postal, _ := out.Column("postal")
	assert.Equal(t, "00501", postal.Strings[1])
}

func TestPrunerDropsOnlyFullyEmptyColumns(t *testing.T) {
	f := stringFrame(t, []string{"a", "b", "c"},
		[]string{"1", "", ""},
		[]string{"2", "x", "NULL"},
	)

	out, report := Pruner{}.Apply(f)
	assert.Equal(t, []string{"c"}, report.Columns)
	assert.Equal(t, []string{"a", "b"}, out.Names())

	b, _ := out.Column("b")
	assert.Equal(t, []bool{false, true}, b.Valid, "partially empty column is kept whole")
}

func TestCheckPrimaryKey(t *testing.T) {
	spec := schema.TableSpec{Name: "colors", PrimaryKey: "color_id"}

	ok := stringFrame(t, []string{"color_id"}, []string{"1"}, []string{"2"})
	assert.NoError(t, CheckPrimaryKey(ok, spec))

	dup := stringFrame(t, []string{"color_id"}, []string{"1"}, []string{"1"})
	err := CheckPrimaryKey(dup, spec)
	assert.True(t, errors.HasCode(err, errors.PipelineKeyViolation))
	assert.Equal(t, "2", errors.GetContext(err)["row"])

	null := stringFrame(t, []string{"color_id"}, []string{"1"}, []string{""})
	assert.True(t, errors.HasCode(CheckPrimaryKey(null, spec), errors.PipelineKeyViolation))

	missing := stringFrame(t, []string{"other"}, []string{"1"})
	assert.True(t, errors.HasCode(CheckPrimaryKey(missing, spec), errors.PipelineKeyViolation))
}

func TestAuditNulls(t *testing.T) {
	f := stringFrame(t, []string{"color_id", "color_name", "valid_to"},
		[]string{"1", "Red", ""},
		[]string{"2", "", ""},
	)
	findings := AuditNulls(f, colorsSpec(), zerolog.Nop())

	byCol := map[string]NullFinding{}
	for _, fd := range findings {
		byCol[fd.Column] = fd
	}
	assert.True(t, byCol["valid_to"].Expected)
	assert.Equal(t, 2, byCol["valid_to"].Nulls)
	assert.Equal(t, 1, byCol["color_name"].Nulls)
	assert.False(t, byCol["color_name"].Expected)
	assert.Zero(t, byCol["color_id"].Nulls)
}

func TestTransformColorsScenario(t *testing.T) {
	raw := &table.Raw{
		Name:   "colors",
		Header: []string{"ColorID", "ColorName", "LastEditedBy", "ValidFrom", "ValidTo"},
		Records: [][]string{
			{"1", "Red", "1", "2013-01-01 00:00:00.0000000", "9999-12-31 23:59:59.9999999"},
			{"2", "", "1", "2013-01-01 00:00:00.0000000", "9999-12-31 23:59:59.9999999"},
		},
	}

	clean, err := New(colorsSpec(), nullTokens, zerolog.Nop()).Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, 2, clean.Rows())
	assert.Equal(t, []string{"color_id", "color_name", "last_edited_by", "valid_from", "valid_to"}, clean.Frame.Names())
	assert.Empty(t, clean.Dropped.Columns)

	id, _ := clean.Frame.Column("color_id")
	assert.Equal(t, table.KindInt64, id.Kind)
	assert.Equal(t, []int64{1, 2}, id.Ints)

	name, _ := clean.Frame.Column("color_name")
	assert.Equal(t, table.KindString, name.Kind)
	assert.Equal(t, []bool{true, false}, name.Valid)

	validTo, _ := clean.Frame.Column("valid_to")
	assert.Equal(t, 9999, validTo.Times[0].Year())
}

func TestTransformCustomerCommentsPruned(t *testing.T) {
	spec := schema.TableSpec{
		Name:       "customers",
		Domain:     schema.DomainSales,
		Source:     "sales.customer",
		Target:     "customers.parquet",
		Columns:    []schema.ColumnRename{{From: "CustomerID", To: "customer_id"}, {From: "CustomerName", To: "customer_name"}},
		PrimaryKey: "customer_id",
	}
	raw := &table.Raw{
		Name:   "customers",
		Header: []string{"CustomerID", "CustomerName", "Comments"},
		Records: [][]string{
			{"1", "Tailspin Toys", ""},
			{"2", "Wingtip Toys", ""},
		},
	}

	clean, err := New(spec, nullTokens, zerolog.Nop()).Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Comments"}, clean.Dropped.Columns)
	assert.False(t, clean.Frame.Has("Comments"))
	assert.Equal(t, []string{"customer_id", "customer_name"}, clean.Frame.Names())
}

func TestTransformBuiltinOrderMergesParsedHelper(t *testing.T) {
	var orders schema.TableSpec
	for _, s := range schema.Builtin() {
		if s.Name == "orders" {
			orders = s
		}
	}
	raw := &table.Raw{
		Name: "orders",
		Header: []string{
			"OrderID", "CustomerID", "SalespersonPersonID", "PickedByPersonID", "ContactPersonID",
			"BackorderOrderID", "OrderDate", "ExpectedDeliveryDate", "CustomerPurchaseOrderNumber",
			"IsUndersupplyBackordered", "Comments", "PickingCompletedWhen", "LastEditedBy",
			"LastEditedWhen", "LastEditedWhen_parsed",
		},
		Records: [][]string{
			{"1", "832", "2", "", "3032", "45.0", "2013-01-01", "2013-01-02", "12126", "True", "", "", "7", "", "2013-01-01 12:00:00"},
			{"2", "803", "8", "3.0", "3003", "", "2013-01-01", "2013-01-02", "15342", "False", "", "2013-01-01 11:00:00", "3", "2013-01-01 11:00:00", ""},
		},
	}

	clean, err := New(orders, nullTokens, zerolog.Nop()).Transform(context.Background(), raw)
	require.NoError(t, err)

	f := clean.Frame
	assert.False(t, f.Has("last_edited_when_parsed"))
	assert.False(t, f.Has("Comments"))
	assert.True(t, f.Has("salesperson_id"))

	edited, _ := f.Column("last_edited_when")
	assert.Equal(t, table.KindTimestamp, edited.Kind)
	assert.Equal(t, []bool{true, true}, edited.Valid)
	assert.Equal(t, 12, edited.Times[0].Hour())

	picked, _ := f.Column("picked_by_id")
	assert.Equal(t, table.KindInt64, picked.Kind)
	assert.Equal(t, []bool{false, true}, picked.Valid)
	assert.Equal(t, int64(3), picked.Ints[1])

	po, _ := f.Column("customer_po_number")
	assert.Equal(t, table.KindString, po.Kind)
}

func TestTransformHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var orders schema.TableSpec
	for _, s := range schema.Builtin() {
		if s.Name == "orders" {
			orders = s
		}
	}
	raw := &table.Raw{Name: "orders", Header: append([]string(nil), orders.Required...), Records: [][]string{{"1", "2", "2013-01-01", "3"}}}

	_, err := New(orders, nullTokens, zerolog.Nop()).Transform(ctx, raw)
	assert.True(t, errors.HasCode(err, errors.CommonTimeout))
}
