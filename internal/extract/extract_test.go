package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/model"
)

func TestExtract_AssignsSequentialIDs(t *testing.T) {
	records := []model.Record{
		{Index: 2, Name: "Jane Doe", Email: " Jane@Acme.io", Company: "Acme", JobTitle: "CEO", Location: "Austin, TX"},
		{Index: 5, Name: "John Roe", Email: "john@initech.com", Company: "Initech", JobTitle: "Manager"},
	}

	leads, issues := Extract(records)
	require.Len(t, leads, 2)
	assert.Empty(t, issues)

	assert.Equal(t, 1, leads[0].ID)
	assert.Equal(t, 2, leads[0].RowIndex)
	assert.Equal(t, "jane@acme.io", leads[0].Email)
	assert.Equal(t, "Austin, TX", leads[0].Location)
	assert.Equal(t, 2, leads[1].ID)
	assert.Empty(t, leads[1].Location, "optional fields stay empty")
	assert.Nil(t, leads[1].EmailValid)
	assert.False(t, leads[1].Enriched)
}

func TestExtract_SkipsIncompleteRows(t *testing.T) {
	records := []model.Record{
		{Index: 1, Name: "Jane Doe", Email: "jane@acme.io", Company: "", JobTitle: ""},
		{Index: 2, Name: "John Roe", Email: "john@initech.com", Company: "Initech", JobTitle: "Manager"},
	}

	leads, issues := Extract(records)
	require.Len(t, leads, 1)
	assert.Equal(t, 1, leads[0].ID, "ids follow surviving rows")
	assert.Equal(t, 2, leads[0].RowIndex)

	require.Len(t, issues, 1)
	assert.Equal(t, model.RowIssue{
		Stage:    model.StageFeatureExtraction,
		Severity: model.SeverityError,
		RowIndex: 1,
		Reason:   "missing company, job_title",
	}, issues[0])
}

func TestExtract_NeverOverProduces(t *testing.T) {
	for n := range 20 {
		records := make([]model.Record, n)
		for i := range records {
			if i%3 == 0 {
				records[i] = model.Record{Index: i + 1, Name: "A B", Email: "a@b.io", Company: "C", JobTitle: "D"}
			}
		}
		leads, _ := Extract(records)
		assert.LessOrEqual(t, len(leads), len(records))
	}
}

func TestExtract_CompanySize(t *testing.T) {
	records := []model.Record{
		{Index: 1, Name: "A B", Email: "a@b.io", Company: "C", JobTitle: "D", CompanySize: "1,200 employees"},
		{Index: 2, Name: "E F", Email: "e@f.io", Company: "G", JobTitle: "H", CompanySize: "lots"},
	}

	leads, issues := Extract(records)
	require.Len(t, leads, 2)
	assert.Equal(t, model.SizeLarge, leads[0].CompanySize)
	assert.Empty(t, leads[1].CompanySize)

	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityWarning, issues[0].Severity)
	assert.Equal(t, 2, issues[0].RowIndex)
}

func TestParseCompanySize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"5000+", model.SizeEnterprise, true},
		{"1000-5000", model.SizeLarge, true},
		{"1000+", model.SizeLarge, true},
		{"10-50", model.SizeMicro, true},
		{"< 50", model.SizeMicro, true},
		{"51-200", model.SizeSmall, true},
		{"201-500", model.SizeMid, true},
		{"12000", model.SizeEnterprise, true},
		{"7", model.SizeMicro, true},
		{"Unknown", "", true},
		{"a few", "", false},
		{"-5", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseCompanySize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
