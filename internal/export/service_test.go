package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/repository"
)

func TestExportDatasetsXLSX(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveDataset(ctx, "2", entity.Dataset{County: entity.String("Kern")}))
	require.NoError(t, store.SaveDataset(ctx, "1", entity.Dataset{
		TaxYear:             entity.String("2025"),
		AnnualizedAmountDue: entity.Float(4321.5),
		County:              entity.String("Alameda"),
		PropertyAddress:     entity.String("1 Secret Lane"),
	}))

	data, err := NewService(store, nil).ExportDatasetsXLSX(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "2025", rows[1][1])
	assert.Equal(t, "Alameda", rows[1][4])
	assert.Equal(t, "2", rows[2][0])
	for _, r := range rows {
		for _, c := range r {
			assert.NotContains(t, c, "Secret")
		}
	}
	assert.Equal(t, []string{sheet}, f.GetSheetList())
}
