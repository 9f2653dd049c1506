package bronze

import (
	"context"
	"testing"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/storage/memory"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorsSpec() schema.TableSpec {
	return schema.TableSpec{
		Name:   "colors",
		Domain: schema.DomainDimensions,
		Source: "warehouse.colors",
		Target: "colors.parquet",
	}
}

func load(t *testing.T, body string, opts Options) *Reader {
	t.Helper()
	src := memory.New()
	require.NoError(t, src.WriteFile("warehouse.colors.csv", []byte(body)))
	return NewReader(src, opts, zerolog.Nop())
}

func TestLoadStripsBOM(t *testing.T) {
	r := load(t, "\xef\xbb\xbfColorID,ColorName\n1,Azure\n2,\"Black, matte\"\n", DefaultOptions())

	raw, err := r.Load(context.Background(), colorsSpec())
	require.NoError(t, err)
	assert.Equal(t, []string{"ColorID", "ColorName"}, raw.Header)
	assert.Equal(t, [][]string{{"1", "Azure"}, {"2", "Black, matte"}}, raw.Records)
	assert.Equal(t, "colors", raw.Name)
	assert.Equal(t, "warehouse.colors.csv", raw.Source)
}

func TestLoadDelimiter(t *testing.T) {
	r := load(t, "ColorID;ColorName\n1;Azure\n", Options{Delimiter: ';'})

	raw, err := r.Load(context.Background(), colorsSpec())
	require.NoError(t, err)
	assert.Equal(t, 1, raw.Rows())
	assert.Equal(t, "Azure", raw.Records[0][1])
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"empty", "", errors.PipelineMissingSource},
		{"header only", "ColorID,ColorName\n", errors.PipelineMissingSource},
		{"ragged", "ColorID,ColorName\n1,Azure\n2\n", errors.PipelineSchemaMismatch},
		{"duplicate header", "ColorID,ColorID\n1,2\n", errors.PipelineSchemaMismatch},
		{"blank header", "ColorID,\n1,2\n", errors.PipelineSchemaMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := load(t, tt.body, DefaultOptions())
			_, err := r.Load(context.Background(), colorsSpec())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, "colors", errors.GetContext(err)["table"])
		})
	}
}

func TestLoadRaggedReportsLine(t *testing.T) {
	r := load(t, "ColorID,ColorName\n1,Azure\n2\n", DefaultOptions())
	_, err := r.Load(context.Background(), colorsSpec())
	require.Error(t, err)
	assert.Equal(t, "3", errors.GetContext(err)["line"])
}

func TestLoadMissingFile(t *testing.T) {
	r := NewReader(memory.New(), DefaultOptions(), zerolog.Nop())
	_, err := r.Load(context.Background(), colorsSpec())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.PipelineMissingSource))
}

func TestLoadCancelled(t *testing.T) {
	r := load(t, "ColorID,ColorName\n1,Azure\n", DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Load(ctx, colorsSpec())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CommonTimeout))
}
