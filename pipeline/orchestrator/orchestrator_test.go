package orchestrator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/gear6io/wwi-etl/pipeline/bronze"
	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/silver"
	"github.com/gear6io/wwi-etl/pipeline/storage/memory"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fiveDimensions = []string{"colors", "countries", "delivery_methods", "package_types", "payment_methods"}

var bronzeFiles = map[string]string{
	"warehouse.colors.csv":             "ColorID,ColorName\n1,Azure\n2,Black\n",
	"application.countries.csv":        "CountryID,CountryName\n1,Afghanistan\n",
	"application.deliverymethods.csv":  "DeliveryMethodID,DeliveryMethodName\n1,Post\n2,Courier\n3,Van\n",
	"warehouse.packagetypes.csv":       "PackageTypeID,PackageTypeName\n1,Bag\n",
	"application.paymentmethods.csv":   "PaymentMethodID,PaymentMethodName\n1,Cash\n2,Check\n",
	"application.transactiontypes.csv": "TransactionTypeID,TransactionTypeName\n1,Invoice\n",
}

type fixture struct {
	registry *schema.Registry
	bronze   *memory.Store
	silver   *memory.Store
	reader   *bronze.Reader
	writer   *silver.Writer
}

func newFixture(t *testing.T, skip ...string) *fixture {
	t.Helper()
	dims, err := schema.DefaultDimensions()
	require.NoError(t, err)
	reg, err := schema.NewDefaultRegistry(dims)
	require.NoError(t, err)

	src := memory.New()
	omit := make(map[string]bool)
	for _, s := range skip {
		omit[s] = true
	}
	for key, body := range bronzeFiles {
		if !omit[key] {
			require.NoError(t, src.WriteFile(key, []byte(body)))
		}
	}
	sink := memory.New()
	w, err := silver.NewWriter(sink, silver.Options{Compression: "snappy"}, zerolog.Nop())
	require.NoError(t, err)

	return &fixture{
		registry: reg,
		bronze:   src,
		silver:   sink,
		reader:   bronze.NewReader(src, bronze.DefaultOptions(), zerolog.Nop()),
		writer:   w,
	}
}

func (f *fixture) orchestrator(workers int) *Orchestrator {
	return New(f.registry, f.reader, f.writer, []string{"", "NULL"}, workers, zerolog.Nop())
}

func TestRunMissingSourceDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, "warehouse.packagetypes.csv")

	res := f.orchestrator(1).Run(context.Background(), fiveDimensions...)

	require.Len(t, res.Tables, 5)
	assert.Len(t, res.Succeeded(), 4)
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, 1, res.ExitCode())
	assert.NotEmpty(t, res.RunID)

	failed := res.Failed()[0]
	assert.Equal(t, "package_types", failed.Name)
	assert.Equal(t, errors.PipelineMissingSource.String(), failed.Code)
	assert.Equal(t, StageLoad, failed.Stage)
	assert.NotEmpty(t, failed.Reason)

	keys, err := f.silver.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dimensions/colors.parquet",
		"dimensions/countries.parquet",
		"dimensions/delivery_methods.parquet",
		"dimensions/payment_methods.parquet",
	}, keys)

	colors, ok := res.Lookup("colors")
	require.True(t, ok)
	assert.Equal(t, 2, colors.Rows)
	assert.Equal(t, "dimensions/colors.parquet", colors.Output)
	assert.Len(t, colors.Checksum, 16)
	assert.Equal(t, "dimensions", colors.Domain)
}

func TestRunAllSucceed(t *testing.T) {
	f := newFixture(t)

	res := f.orchestrator(1).Run(context.Background(), fiveDimensions...)
	assert.False(t, res.HasFailures())
	assert.Equal(t, 0, res.ExitCode())
	for _, tr := range res.Tables {
		assert.Equal(t, StageDone, tr.Stage, tr.Name)
	}
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}

func TestRunParallelKeepsOrder(t *testing.T) {
	f := newFixture(t, "application.countries.csv")

	res := f.orchestrator(4).Run(context.Background(), fiveDimensions...)

	names := make([]string, len(res.Tables))
	for i, tr := range res.Tables {
		names[i] = tr.Name
	}
	assert.Equal(t, fiveDimensions, names)
	assert.Len(t, res.Failed(), 1)
	assert.Equal(t, "countries", res.Failed()[0].Name)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(2)

	first := o.Run(context.Background(), fiveDimensions...)
	second := o.Run(context.Background(), fiveDimensions...)
	for i := range first.Tables {
		assert.Equal(t, first.Tables[i].Checksum, second.Tables[i].Checksum, first.Tables[i].Name)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunUnknownTable(t *testing.T) {
	f := newFixture(t)

	res := f.orchestrator(1).Run(context.Background(), "colors", "unicorns", "colors")
	require.Len(t, res.Tables, 2)
	assert.True(t, res.Tables[0].Succeeded())

	unknown := res.Tables[1]
	assert.Equal(t, StatusFailed, unknown.Status)
	assert.Equal(t, StageLookup, unknown.Stage)
	assert.Equal(t, errors.PipelineUnknownTable.String(), unknown.Code)
}

type panickyLoader struct {
	Loader
	table string
}

func (p panickyLoader) Load(ctx context.Context, spec schema.TableSpec) (*table.Raw, error) {
	if spec.Name == p.table {
		panic("boom")
	}
	return p.Loader.Load(ctx, spec)
}

func TestRunRecoversPanics(t *testing.T) {
	f := newFixture(t)
	o := New(f.registry, panickyLoader{Loader: f.reader, table: "countries"}, f.writer, nil, 1, zerolog.Nop())

	res := o.Run(context.Background(), "colors", "countries", "delivery_methods")
	assert.Len(t, res.Succeeded(), 2)
	failed, ok := res.Lookup("countries")
	require.True(t, ok)
	assert.Equal(t, errors.CommonInternal.String(), failed.Code)
	assert.Contains(t, failed.Reason, "boom")
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.orchestrator(1).Run(ctx, fiveDimensions...)
	assert.Len(t, res.Failed(), 5)
	for _, tr := range res.Tables {
		assert.Equal(t, errors.CommonTimeout.String(), tr.Code)
	}
	assert.Equal(t, 0, f.silver.Puts())
}

func TestRunDefaultsToRegistryOrder(t *testing.T) {
	f := newFixture(t)

	res := f.orchestrator(1).Run(context.Background())
	assert.Equal(t, f.registry.Names(), tableNames(res))
	// sales and purchasing files are absent from the fixture
	assert.True(t, res.HasFailures())
	colors, _ := res.Lookup("colors")
	assert.True(t, colors.Succeeded())
}

func tableNames(r *RunResult) []string {
	out := make([]string, len(r.Tables))
	for i, t := range r.Tables {
		out[i] = t.Name
	}
	return out
}

func TestRunTagsStageLogsWithRunID(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	o := New(f.registry, f.reader, f.writer, []string{""}, 1, zerolog.New(&buf))

	res := o.Run(context.Background(), "colors")
	require.False(t, res.HasFailures())

	components := make(map[string]int)
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		assert.Equal(t, res.RunID, line["run_id"], sc.Text())
		comp, _ := line["component"].(string)
		components[comp]++
	}
	assert.Positive(t, components["transform"])
	assert.Positive(t, components["orchestrator"])
}
